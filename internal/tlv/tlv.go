// Package tlv implements a single pure-function reader for the
// tag-length-value format used by the Distinguished Encoding Rules (DER), as
// specified in [Rec. ITU-T X.690]. Unlike a streaming decoder, it never reads
// from an [io.Reader]: it decodes exactly one header at a fixed byte offset
// within an already in-memory buffer and hands back borrowed slices of that
// same buffer. This matches how the emitter in this module works: it recurses
// into sub-slices of the original record, never copying bytes until it
// hex-encodes a leaf.
//
// Only definite-length encodings are accepted; this package has no concept of
// an end-of-contents marker because DER forbids indefinite length.
//
// [Rec. ITU-T X.690]: https://www.itu.int/rec/T-REC-X.690
package tlv

import "github.com/HasibNirjhar07/asn1-der-decoder"

// Header is a decoded DER tag-length header.
type Header struct {
	Class       asn1.Class
	Constructed bool
	Tag         uint32 // tag number, not including class
	Length      int    // content length in bytes
}

// TLV is one decoded tag-length-value element: its header plus borrowed slices
// of the buffer it was decoded from.
type TLV struct {
	Header
	Value []byte // content octets only
	Raw   []byte // header and content octets together
}

// Parse decodes one DER header at buf[offset:] and returns the resulting TLV
// together with the offset of the byte following it. ok is false for any
// structural failure: a truncated header, an indefinite-length encoding
// (0x80), a length that does not fit in the remaining buffer, or a high-tag-
// number form that never terminates or overflows. Callers treat a false ok as
// "stop reading siblings at this level"; Parse never distinguishes failure
// kinds beyond that.
func Parse(buf []byte, offset int) (t TLV, next int, ok bool) {
	start := offset
	if offset >= len(buf) {
		return TLV{}, 0, false
	}
	b := buf[offset]
	offset++

	h := Header{
		Class:       asn1.Class(b >> 6),
		Constructed: b&0x20 != 0,
		Tag:         uint32(b & 0x1f),
	}
	if h.Tag == 0x1f {
		n, next, ok := readHighTagNumber(buf, offset)
		if !ok {
			return TLV{}, 0, false
		}
		h.Tag = n
		offset = next
	}

	if offset >= len(buf) {
		return TLV{}, 0, false
	}
	lb := buf[offset]
	offset++
	switch {
	case lb&0x80 == 0:
		h.Length = int(lb)
	case lb == 0x80:
		// Indefinite length: BER-only, not valid DER.
		return TLV{}, 0, false
	default:
		n := int(lb & 0x7f)
		if n == 0 || offset+n > len(buf) {
			return TLV{}, 0, false
		}
		length := 0
		for i := 0; i < n; i++ {
			if length > maxLength>>8 {
				return TLV{}, 0, false
			}
			length = length<<8 | int(buf[offset])
			offset++
		}
		h.Length = length
	}

	if h.Length < 0 || offset+h.Length > len(buf) || offset+h.Length < offset {
		return TLV{}, 0, false
	}

	t = TLV{
		Header: h,
		Raw:    buf[start : offset+h.Length],
		Value:  buf[offset : offset+h.Length],
	}
	return t, offset + h.Length, true
}

// maxLength bounds the accumulation of multi-byte length octets so it cannot
// overflow a platform int.
const maxLength = int(^uint(0) >> 1)
