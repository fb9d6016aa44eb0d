// Package emit implements the schema-driven JSON emitter: the component that
// walks a decoded DER TLV tree and writes a JSON value whose shape comes from
// a [schema.Dictionary] and whose leaves are always lowercase hex strings of
// raw value bytes.
//
// The emitter never allocates a JSON document in memory; it writes directly
// to an io.Writer (typically a *bufio.Writer owned by the caller, one per
// output file) and never emits whitespace outside of string contents.
package emit

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"unicode"
	"unicode/utf8"

	asn1 "github.com/HasibNirjhar07/asn1-der-decoder"
	"github.com/HasibNirjhar07/asn1-der-decoder/internal/tlv"
	"github.com/HasibNirjhar07/asn1-der-decoder/schema"
)

// Emitter writes schema-driven JSON for DER-encoded records. The zero value is
// not usable; construct one with [New]. An Emitter holds no per-record state
// of its own beyond a reusable hex scratch buffer, so a single Emitter can be
// reused across every record in a file, but must not be shared across
// goroutines: concurrent callers should each construct their own (dictionary
// lookups are read-only and safe to share, the scratch buffer is not).
type Emitter struct {
	dict   *schema.Dictionary
	w      io.Writer
	hexBuf []byte
}

// New returns an Emitter that writes to w, resolving type names against dict.
func New(w io.Writer, dict *schema.Dictionary) *Emitter {
	return &Emitter{dict: dict, w: w}
}

// WriteType resolves typeName's alias chain and dispatches to a CHOICE,
// SEQUENCE/SET, or hex fallback.
func (e *Emitter) WriteType(bytes []byte, typeName string) error {
	resolved, kind := e.dict.Lookup(typeName)
	switch kind {
	case schema.KindChoice:
		return e.writeChoice(bytes, e.dict.Choices[resolved])
	case schema.KindSequence:
		return e.writeSequence(bytes, e.dict.Sequences[resolved])
	case schema.KindSet:
		return e.writeSequence(bytes, e.dict.Sets[resolved])
	default:
		return e.writeHex(bytes)
	}
}

// writeSequence emits a SEQUENCE or SET as a JSON object keyed by field name.
// DER distinguishes SEQUENCE from SET only by their universal tag (16 vs.
// 17, Rec. ITU-T X.680 §8.9/§8.11); field decoding itself is driven entirely
// by the context-specific tag numbers in fields, so the same code serves
// both [schema.Dictionary.Sequences] and [schema.Dictionary.Sets].
func (e *Emitter) writeSequence(buf []byte, fields map[uint32]schema.FieldSpec) error {
	if err := e.writeByte('{'); err != nil {
		return err
	}
	first := true
	offset := 0
	for {
		t, next, ok := tlv.Parse(buf, offset)
		if !ok || next <= offset {
			break
		}
		offset = next

		if !first {
			if err := e.writeByte(','); err != nil {
				return err
			}
		}
		first = false

		field, known := fields[t.Tag]
		if !known {
			if err := e.writeKey(unknownTagKey(t.Tag)); err != nil {
				return err
			}
			if err := e.writeHex(t.Value); err != nil {
				return err
			}
			continue
		}
		if err := e.writeKey(field.Name); err != nil {
			return err
		}
		if err := e.writeField(t, field); err != nil {
			return err
		}
	}
	return e.writeByte('}')
}

// writeField emits the value of a single SEQUENCE/SET field, once its key has
// already been written.
func (e *Emitter) writeField(t tlv.TLV, field schema.FieldSpec) error {
	if field.SequenceOf {
		return e.writeSequenceOf(t.Value, field.Type)
	}
	resolved, kind := e.dict.Lookup(field.Type)
	if kind == schema.KindChoice {
		// The CHOICE needs to see the outer tag to disambiguate, so pass the
		// whole TLV including its own header, not just its content.
		return e.WriteType(t.Raw, resolved)
	}
	if t.Constructed {
		return e.WriteType(t.Value, field.Type)
	}
	return e.writeHex(t.Value)
}

// writeSequenceOf emits a repeated element type as a JSON array, decoding
// each element TLV in turn.
func (e *Emitter) writeSequenceOf(buf []byte, elementType string) error {
	resolved, kind := e.dict.Lookup(elementType)
	isChoice := kind == schema.KindChoice

	if err := e.writeByte('['); err != nil {
		return err
	}
	first := true
	offset := 0
	for {
		t, next, ok := tlv.Parse(buf, offset)
		if !ok || next <= offset {
			break
		}
		offset = next

		if !first {
			if err := e.writeByte(','); err != nil {
				return err
			}
		}
		first = false

		var err error
		switch {
		case isChoice:
			err = e.WriteType(t.Raw, resolved)
		case t.Constructed:
			err = e.WriteType(t.Value, elementType)
		default:
			err = e.writeHex(t.Value)
		}
		if err != nil {
			return err
		}
	}
	return e.writeByte(']')
}

// writeChoice emits a CHOICE value. Up to three candidate TLVs are built (the
// outer TLV, its first inner TLV if constructed, and its first inner TLV if
// the outer is an OCTET STRING wrapper), and tagged alternatives are matched
// against the tag numbers of those candidates in that order. Untagged
// alternatives have no tag of their own to match, so they're disambiguated by
// structurally probing only the last candidate built against each untagged
// alternative's expected shape.
func (e *Emitter) writeChoice(buf []byte, alts map[uint32]schema.ChoiceAlt) error {
	outer, _, ok := tlv.Parse(buf, 0)
	if !ok {
		return e.writeRaw("null")
	}

	candidates := make([]tlv.TLV, 0, 3)
	candidates = append(candidates, outer)
	if outer.Constructed {
		if inner, _, ok := tlv.Parse(outer.Value, 0); ok {
			candidates = append(candidates, inner)
		}
	}
	if outer.Class == asn1.ClassUniversal && !outer.Constructed && outer.Tag == asn1.TagOctetString {
		if wrapped, _, ok := tlv.Parse(outer.Value, 0); ok {
			candidates = append(candidates, wrapped)
		}
	}

	if err := e.writeByte('{'); err != nil {
		return err
	}
	for _, c := range candidates {
		if alt, ok := alts[c.Tag]; ok && c.Tag < asn1.SynthBase {
			if err := e.writeKey(alt.Name); err != nil {
				return err
			}
			if err := e.WriteType(c.Value, alt.Type); err != nil {
				return err
			}
			return e.writeByte('}')
		}
	}

	probe := candidates[len(candidates)-1]
	synthKeys := make([]uint32, 0)
	for tag := range alts {
		if tag >= asn1.SynthBase {
			synthKeys = append(synthKeys, tag)
		}
	}
	sort.Slice(synthKeys, func(i, j int) bool { return synthKeys[i] < synthKeys[j] })

	for _, tag := range synthKeys {
		alt := alts[tag]
		if !e.choiceAltMatches(alt.Type, probe) {
			continue
		}
		if err := e.writeKey(alt.Name); err != nil {
			return err
		}
		resolved, kind := e.dict.Lookup(alt.Type)
		var payload []byte
		if kind == schema.KindChoice {
			payload = probe.Raw
		} else {
			payload = probe.Value
		}
		if err := e.WriteType(payload, resolved); err != nil {
			return err
		}
		return e.writeByte('}')
	}

	if err := e.writeKey("unknown_alternative"); err != nil {
		return err
	}
	if err := e.writeHex(probe.Raw); err != nil {
		return err
	}
	return e.writeByte('}')
}

// choiceAltMatches reports whether an untagged CHOICE alternative's shape
// matches probe: a nested CHOICE matches if its own tag table contains the
// probe's tag; a SEQUENCE matches universal constructed tag 16; a SET
// matches universal constructed tag 17 (Rec. ITU-T X.680 §8.9/§8.11);
// anything else never matches.
func (e *Emitter) choiceAltMatches(altType string, probe tlv.TLV) bool {
	resolved, kind := e.dict.Lookup(altType)
	switch kind {
	case schema.KindChoice:
		_, ok := e.dict.Choices[resolved][probe.Tag]
		return ok
	case schema.KindSequence:
		return probe.Class == asn1.ClassUniversal && probe.Constructed && probe.Tag == asn1.TagSequence
	case schema.KindSet:
		return probe.Class == asn1.ClassUniversal && probe.Constructed && probe.Tag == asn1.TagSet
	default:
		return false
	}
}

// WriteAutoRecord classifies and emits a top-level record in auto-root mode,
// using a precomputed [schema.AutoRootIndex] to map the record's outer tag to
// a CHOICE alternative without the caller naming a root type up front. The
// emitted key is the matched alternative's field name, as in writeChoice,
// but lower-cased on its first rune (writeChoice writes the name unchanged).
func (e *Emitter) WriteAutoRecord(t tlv.TLV, index schema.AutoRootIndex) error {
	if t.Class == asn1.ClassContextSpecific {
		if alt, ok := index[t.Tag]; ok {
			if err := e.writeByte('{'); err != nil {
				return err
			}
			if err := e.writeKey(lowerFirst(alt.Name)); err != nil {
				return err
			}
			if err := e.WriteType(t.Value, alt.Type); err != nil {
				return err
			}
			return e.writeByte('}')
		}
	}
	if err := e.writeRaw(`{"unknown":`); err != nil {
		return err
	}
	if err := e.writeHex(t.Raw); err != nil {
		return err
	}
	return e.writeByte('}')
}

// unknownTagKey formats the fallback key used when a SEQUENCE/SET TLV's tag
// number is not in the field map. Decimal, unsigned, no leading zeros.
func unknownTagKey(tag uint32) string {
	return "unknown_tag_" + strconv.FormatUint(uint64(tag), 10)
}

// lowerFirst lowercases only the first code point of s, leaving the remainder
// unchanged.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func (e *Emitter) writeByte(b byte) error {
	_, err := e.w.Write([]byte{b})
	return err
}

func (e *Emitter) writeRaw(s string) error {
	_, err := io.WriteString(e.w, s)
	return err
}

// writeKey writes a JSON object key (with its trailing colon) for name, using
// the same minimal escaping as writeEscaped.
func (e *Emitter) writeKey(name string) error {
	if err := e.writeByte('"'); err != nil {
		return err
	}
	if err := e.writeEscaped(name); err != nil {
		return err
	}
	return e.writeRaw(`":`)
}

// writeEscaped writes s between the surrounding quotes already written by the
// caller, escaping only quote, backslash, newline, carriage return, tab, and
// other control bytes < 0x20 as \u00XX. Everything else passes through
// unchanged; UTF-8 is assumed but never validated.
func (e *Emitter) writeEscaped(s string) error {
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		var esc string
		switch {
		case c == '"':
			esc = `\"`
		case c == '\\':
			esc = `\\`
		case c == '\n':
			esc = `\n`
		case c == '\r':
			esc = `\r`
		case c == '\t':
			esc = `\t`
		case c < 0x20:
			esc = fmt.Sprintf(`\u%04x`, c)
		default:
			continue
		}
		if err := e.writeRaw(s[start:i]); err != nil {
			return err
		}
		if err := e.writeRaw(esc); err != nil {
			return err
		}
		start = i + 1
	}
	return e.writeRaw(s[start:])
}

// writeHex writes data as a lowercase hex JSON string.
func (e *Emitter) writeHex(data []byte) error {
	if err := e.writeByte('"'); err != nil {
		return err
	}
	n := hex.EncodedLen(len(data))
	if cap(e.hexBuf) < n {
		e.hexBuf = make([]byte, n)
	}
	buf := e.hexBuf[:n]
	hex.Encode(buf, data)
	if err := e.writeRaw(string(buf)); err != nil {
		return err
	}
	return e.writeByte('"')
}
