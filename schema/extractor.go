package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	asn1 "github.com/HasibNirjhar07/asn1-der-decoder"
)

// reservedKeyword is the set of ASN.1 keywords that can appear on the right-
// hand side of a type assignment. A line "A ::= B" is only recorded as an
// alias if B is none of these (case-insensitively) — otherwise B names a kind,
// not a type, and the line belongs to [typeAssignRe] instead.
var reservedKeyword = map[string]bool{
	"CHOICE": true, "SEQUENCE": true, "SET": true, "ENUMERATED": true,
	"INTEGER": true, "OCTET": true, "OCTET STRING": true,
	"BIT": true, "BIT STRING": true, "IA5STRING": true, "UTF8STRING": true,
	"BOOLEAN": true, "NULL": true, "TBCD-STRING": true,
}

// ident matches a bare ASN.1 reference identifier: the strict grammar allows
// only letters, digits and hyphens starting with a letter, but real-world
// schemas also use underscores, so this is a superset.
const ident = `[A-Za-z][A-Za-z0-9_-]*`

var (
	commentRe = regexp.MustCompile(`--.*?(?:\n|$)`)

	aliasRe = regexp.MustCompile(`(?m)^\s*(` + ident + `)\s*::=\s*(` + ident + `)\s*$`)

	typeAssignRe = regexp.MustCompile(`(?is)(` + ident + `)\s*::=\s*` +
		`(CHOICE|SEQUENCE|SET|ENUMERATED|OCTET STRING|BIT STRING|INTEGER|IA5String|UTF8String|BOOLEAN|NULL|TBCD-STRING)` +
		`\s*(\([^)]*\))?\s*(\{.*?\})?`)

	taggedAltRe   = regexp.MustCompile(`(` + ident + `)\s*\[\s*(\d+)\s*\]\s*(` + ident + `)`)
	untaggedAltRe = regexp.MustCompile(`(` + ident + `)\s+(` + ident + `)`)

	fieldRe = regexp.MustCompile(`(` + ident + `)\s*\[\s*(\d+)\s*\]\s*(` +
		ident + `)(?:\s+OF\s+(` + ident + `))?(?:(?:\s+` + ident + `)*?(\s+OPTIONAL))?`)
)

// maxUntaggedAlts is the hard cap on synthetic alternatives the extractor will
// assign to a single untagged CHOICE.
const maxUntaggedAlts = 255

// TagParseError reports that a "[n]" tag annotation in schema text failed to
// parse as a non-negative decimal integer. This is the only fatal error the
// extractor produces; every other malformed or unrecognised fragment is
// silently ignored.
type TagParseError struct {
	Type string // the enclosing type assignment, if known
	Text string // the offending tag text
	Err  error
}

func (e *TagParseError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema: invalid tag %q in %s: %v", e.Text, e.Type, e.Err)
	}
	return fmt.Sprintf("schema: invalid tag %q: %v", e.Text, e.Err)
}

func (e *TagParseError) Unwrap() error { return e.Err }

// Extract scans ASN.1 module text and builds a [Dictionary] from the
// fragments of grammar it recognises: "A ::= B" aliases, and "IDENT ::= KIND
// { ... }" type assignments for CHOICE, SEQUENCE, SET and primitive kinds.
// Unknown or malformed schema fragments are silently ignored, except that a
// "[n]" tag annotation that fails to parse as a decimal integer is a fatal
// error, since it indicates the author intended a specific wire tag that the
// extractor cannot safely guess at.
//
// Extract does not validate that referenced types exist; a dangling reference
// simply means [Dictionary.KnowsType] returns false for it at decode time.
func Extract(text string) (*Dictionary, error) {
	text = stripComments(text)
	dict := New()

	extractAliases(text, dict)
	if err := extractTypeAssignments(text, dict); err != nil {
		return nil, err
	}
	return dict, nil
}

// stripComments removes every "--" to end-of-line (or end-of-input) comment
// from text. The matching is intentionally coarse: a "--" inside a string
// literal is stripped along with everything after it on that line. This is
// documented as a known limitation — ASN.1 schemas for DER-oriented formats
// essentially never contain "--" inside a string.
func stripComments(text string) string {
	return commentRe.ReplaceAllString(text, "\n")
}

// extractAliases records every "A ::= B" line where B is a plain reference to
// another user type, not a keyword and not a self-reference.
func extractAliases(text string, dict *Dictionary) {
	for _, m := range aliasRe.FindAllStringSubmatch(text, -1) {
		a, b := m[1], m[2]
		if a == b {
			continue
		}
		if reservedKeyword[strings.ToUpper(b)] {
			continue
		}
		dict.Aliases[a] = b
	}
}

// extractTypeAssignments records every "IDENT ::= KIND { ... }" assignment
// found in text.
func extractTypeAssignments(text string, dict *Dictionary) error {
	for _, m := range typeAssignRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		kind := strings.ToUpper(m[2])
		body := m[4]

		switch kind {
		case "CHOICE":
			alts, err := extractChoiceBody(name, body)
			if err != nil {
				return err
			}
			if len(alts) > 0 {
				dict.Choices[name] = alts
			}
		case "SEQUENCE", "SET":
			fields, err := extractFields(name, body)
			if err != nil {
				return err
			}
			if len(fields) == 0 {
				continue
			}
			if kind == "SEQUENCE" {
				dict.Sequences[name] = fields
			} else {
				dict.Sets[name] = fields
			}
		default:
			dict.Primitives[name] = kind
		}
	}
	return nil
}

// extractChoiceBody parses the alternatives of a single CHOICE body. It first
// tries the tagged form "NAME [n] TYPE"; if that yields nothing, it falls
// back to the untagged form "NAME TYPE" and assigns synthetic tag numbers
// starting at asn1.SynthBase, capped at [maxUntaggedAlts].
func extractChoiceBody(typeName, body string) (map[uint32]ChoiceAlt, error) {
	alts := make(map[uint32]ChoiceAlt)
	for _, m := range taggedAltRe.FindAllStringSubmatch(body, -1) {
		name, tagText, typ := m[1], m[2], m[3]
		tag, err := strconv.ParseUint(tagText, 10, 32)
		if err != nil {
			return nil, &TagParseError{Type: typeName, Text: tagText, Err: err}
		}
		alts[uint32(tag)] = ChoiceAlt{Name: name, Type: typ}
	}
	if len(alts) > 0 {
		return alts, nil
	}

	i := 0
	for _, m := range untaggedAltRe.FindAllStringSubmatch(body, -1) {
		if i >= maxUntaggedAlts {
			break
		}
		name, typ := m[1], m[2]
		if name == "" || typ == "" {
			continue
		}
		alts[asn1.SynthBase+uint32(i)] = ChoiceAlt{Name: name, Type: typ}
		i++
	}
	return alts, nil
}

// extractFields parses the fields of a single SEQUENCE or SET body.
func extractFields(typeName, body string) (map[uint32]FieldSpec, error) {
	fields := make(map[uint32]FieldSpec)
	for _, m := range fieldRe.FindAllStringSubmatch(body, -1) {
		name, tagText, typ, ofType, optional := m[1], m[2], m[3], m[4], m[5]
		if tagText == "" {
			// A field without an explicit "[n]" tag cannot be placed in a
			// tag-keyed map, so it's skipped.
			continue
		}
		tag, err := strconv.ParseUint(tagText, 10, 32)
		if err != nil {
			return nil, &TagParseError{Type: typeName, Text: tagText, Err: err}
		}
		field := FieldSpec{Name: name, Optional: strings.TrimSpace(optional) == "OPTIONAL"}
		if ofType != "" {
			field.SequenceOf = true
			field.Type = ofType
		} else {
			field.Type = typ
		}
		fields[uint32(tag)] = field
	}
	return fields, nil
}
