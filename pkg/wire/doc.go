// Package wire implements the SSH primitive data types of RFC 4251 section 5.
//
// Every type has an Append function that encodes a value onto a byte slice
// and a Parse function that decodes one value and returns the remaining
// input. Encoding is canonical: booleans are always 0 or 1 and mpints carry
// no redundant sign-extension bytes. Decoding is lenient where the RFC asks
// for it (any non-zero boolean is true, over-padded mpints are accepted) and
// strict everywhere else.
//
// Length-prefixed values are checked against a configurable maximum before
// any allocation sized by the untrusted length field.
//
// Reader and Writer wrap the primitives for whole-message use. A Reader keeps
// the first error together with the field name and byte offset that caused
// it, so message decoders can read every field and check Err once.
//
// Nothing in this package holds global state; all functions are safe for
// concurrent use.
package wire
