package tap

import "sync/atomic"

// Metrics tracks in-memory stats for a tap (not persisted).
type Metrics struct {
	Connections    atomic.Int64
	ActiveConns    atomic.Int32
	PacketsDecoded atomic.Int64
	DecodeErrors   atomic.Int64
	BytesIn        atomic.Int64 // client to server
	BytesOut       atomic.Int64 // server to client
}

// Snapshot is a point-in-time copy of Metrics.
type Snapshot struct {
	Connections    int64
	ActiveConns    int32
	PacketsDecoded int64
	DecodeErrors   int64
	BytesIn        int64
	BytesOut       int64
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Connections:    m.Connections.Load(),
		ActiveConns:    m.ActiveConns.Load(),
		PacketsDecoded: m.PacketsDecoded.Load(),
		DecodeErrors:   m.DecodeErrors.Load(),
		BytesIn:        m.BytesIn.Load(),
		BytesOut:       m.BytesOut.Load(),
	}
}
