// Package tlv implements the tag-length-value element codec used to embed
// vendor and RRM subelements inside a fixed-size neighbor report buffer.
//
// A TLV list is a run of (tag byte, length byte, length bytes of value)
// triples packed back-to-back inside a buffer that may be larger than the
// list itself; every byte past the last element must be zero. Callers treat
// an all-zero buffer as an empty list rather than an error.
package tlv
