// Package schema builds the runtime type dictionary that drives decoding. A
// [Dictionary] is produced once from ASN.1 schema text by [Extract] and is
// immutable afterward; it is looked up by name from the emit and decode
// packages while walking a DER TLV tree.
//
// The dictionary is deliberately lossy: it throws away everything about a
// schema that the emitter does not need to assign field names and recurse
// into nested values, and it represents "this type needs a constraint or body
// we did not understand" the same way it represents "this type does not
// exist" — by the type's absence from every map. Callers compensate by
// falling back to a hex dump of the raw bytes whenever a lookup misses.
package schema

import (
	"sort"

	asn1 "github.com/HasibNirjhar07/asn1-der-decoder"
)

// FieldSpec describes one member of a SEQUENCE or SET: its name, its declared
// type, and how that type was declared.
type FieldSpec struct {
	Name string
	Type string

	// Optional records that the field's declaration carried the OPTIONAL
	// keyword. It is preserved for introspection but not consulted while
	// decoding: DER field presence is determined entirely by which tags
	// actually appear on the wire, not by the schema's OPTIONAL markers.
	Optional bool

	// SequenceOf is true if the field was declared as "TYPE OF ELEMENT"
	// (SEQUENCE OF or SET OF). When true, Type holds the element type, not
	// the SEQUENCE/SET type itself.
	SequenceOf bool
}

// ChoiceAlt describes one alternative of a CHOICE type.
type ChoiceAlt struct {
	Name string
	Type string
}

// Dictionary is the type information extracted from an ASN.1 schema, keyed by
// type name. The four type maps are independent namespaces: a name may appear
// in more than one, and lookups that need to pick one follow a fixed
// precedence (choices, then sequences, then sets, then primitives), matching
// [Dictionary.Lookup].
type Dictionary struct {
	// Choices maps a CHOICE type name to its alternatives, keyed by context-
	// specific tag number. Keys at or above [asn1.SynthBase] are synthetic:
	// they were assigned to an untagged alternative by the extractor and never
	// appear on the wire.
	Choices map[string]map[uint32]ChoiceAlt

	// Sequences maps a SEQUENCE type name to its fields, keyed by the
	// context-specific tag number from the field's "[n]" prefix.
	Sequences map[string]map[uint32]FieldSpec

	// Sets is shaped identically to Sequences. DER distinguishes SEQUENCE from
	// SET only by their universal tag (16 vs. 17); field decoding is
	// tag-driven and order-insensitive for both, so the two maps are queried
	// the same way.
	Sets map[string]map[uint32]FieldSpec

	// Primitives maps a type name to the ASN.1 keyword it was declared with
	// (INTEGER, OCTET STRING, BOOLEAN, ...). The kind is retained only so
	// [Dictionary.Lookup] can report that a name is known; the value bytes of
	// a primitive are always emitted as hex regardless of kind.
	Primitives map[string]string

	// Aliases maps a type name declared as "A ::= B" (where B names another
	// user-defined type, not a primitive keyword) to its target B.
	Aliases map[string]string
}

// New returns an empty Dictionary with all maps initialised.
func New() *Dictionary {
	return &Dictionary{
		Choices:    make(map[string]map[uint32]ChoiceAlt),
		Sequences:  make(map[string]map[uint32]FieldSpec),
		Sets:       make(map[string]map[uint32]FieldSpec),
		Primitives: make(map[string]string),
		Aliases:    make(map[string]string),
	}
}

// maxAliasHops bounds alias chain resolution so a cycle in the alias map
// cannot loop forever.
const maxAliasHops = 16

// ResolveAlias follows the alias chain starting at name, stopping after at
// most [maxAliasHops] hops. It returns name unchanged if name has no alias
// entry, and returns whatever name it has reached once a cycle or the hop
// limit is detected — it never reports an error, matching the "alias chains
// terminate" invariant: this method always returns within bounded time.
func (d *Dictionary) ResolveAlias(name string) string {
	for i := 0; i < maxAliasHops; i++ {
		target, ok := d.Aliases[name]
		if !ok {
			return name
		}
		name = target
	}
	return name
}

// Kind classifies how a (resolved) type name is represented in the
// dictionary.
type Kind int

const (
	// KindUnknown means the name is absent from every map, so it should be
	// treated as an opaque byte string.
	KindUnknown Kind = iota
	KindChoice
	KindSequence
	KindSet
	KindPrimitive
)

// Lookup resolves name's alias chain and classifies the result, following the
// fixed choices → sequences → sets → primitives precedence described on
// [Dictionary]. It returns [KindUnknown] if the resolved name appears in none
// of the four maps.
func (d *Dictionary) Lookup(name string) (resolved string, kind Kind) {
	resolved = d.ResolveAlias(name)
	switch {
	case d.Choices[resolved] != nil:
		return resolved, KindChoice
	case d.Sequences[resolved] != nil:
		return resolved, KindSequence
	case d.Sets[resolved] != nil:
		return resolved, KindSet
	case d.Primitives[resolved] != "":
		return resolved, KindPrimitive
	default:
		return resolved, KindUnknown
	}
}

// KnowsType reports whether name (after alias resolution) appears as a key in
// any of the four type maps.
func (d *Dictionary) KnowsType(name string) bool {
	_, kind := d.Lookup(name)
	return kind != KindUnknown
}

// Stats summarises the population of d, one count per map, the alias map
// included. Stats exists for schema validation tooling (the CLI logs it after
// parsing the schema and in its --dry-run report of how much of a schema file
// was understood); the decoder itself never calls it.
type Stats struct {
	Choices, Sequences, Sets, Primitives, Aliases int
}

// Stats computes [Stats] for d.
func (d *Dictionary) Stats() Stats {
	return Stats{
		Choices:    len(d.Choices),
		Sequences:  len(d.Sequences),
		Sets:       len(d.Sets),
		Primitives: len(d.Primitives),
		Aliases:    len(d.Aliases),
	}
}

// AutoRootIndex maps a top-level context-specific tag number to the CHOICE
// alternative (its field name and type name) that should be used to decode a
// record when the root type is "auto". It is built once by
// [BuildAutoRootIndex] at decoder construction time, not by the extractor,
// since it is a join across every CHOICE in the dictionary rather than a
// property of any single type.
//
// The indexed name is the alternative's field name, not its type name: the
// emitted JSON key for an auto-dispatched record is that field name
// (lower-cased on its first rune), matching how emit's writeChoice keys its
// output by alternative name rather than type name.
type AutoRootIndex map[uint32]ChoiceAlt

// BuildAutoRootIndex scans every CHOICE in d and indexes its non-synthetic
// alternatives by tag number. Synthetic keys (>= asn1.SynthBase) never appear
// on the wire and are excluded. On a tag collision across two different
// CHOICE types, the first one encountered wins; to make that deterministic,
// CHOICEs are visited in lexicographic order of their type name rather than
// Go's randomised map iteration order.
func BuildAutoRootIndex(d *Dictionary) AutoRootIndex {
	names := make([]string, 0, len(d.Choices))
	for name := range d.Choices {
		names = append(names, name)
	}
	sort.Strings(names)

	index := make(AutoRootIndex)
	for _, name := range names {
		alts := d.Choices[name]
		tags := make([]uint32, 0, len(alts))
		for tag := range alts {
			tags = append(tags, tag)
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
		for _, tag := range tags {
			if tag >= asn1.SynthBase {
				continue
			}
			if _, exists := index[tag]; exists {
				continue
			}
			index[tag] = alts[tag]
		}
	}
	return index
}
