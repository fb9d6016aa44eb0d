package tlv

import asn1 "github.com/HasibNirjhar07/asn1-der-decoder"

// readHighTagNumber decodes the base-128 (VLQ) encoded tag number that follows
// an identifier octet whose low five bits are all set. Each byte contributes
// its low seven bits, most significant group first; a byte with the top bit
// clear ends the sequence. This is the same encoding used for BER tag numbers
// and for MIDI variable-length quantities.
//
// It returns the decoded number, the offset of the first byte after the
// encoding, and false if buf is exhausted before a terminating byte is seen or
// the accumulated value would overflow [asn1.MaxTagNumber].
func readHighTagNumber(buf []byte, offset int) (n uint32, next int, ok bool) {
	for {
		if offset >= len(buf) {
			return 0, 0, false
		}
		b := buf[offset]
		offset++
		if n > asn1.MaxTagNumber>>7 {
			return 0, 0, false
		}
		n = n<<7 | uint32(b&0x7f)
		if b&0x80 == 0 {
			if n > asn1.MaxTagNumber {
				return 0, 0, false
			}
			return n, offset, true
		}
	}
}
