package schema_test

import (
	"testing"

	"github.com/HasibNirjhar07/asn1-der-decoder/schema"
	"github.com/stretchr/testify/require"
)

func TestExtract_sequence(t *testing.T) {
	dict, err := schema.Extract(`Rec ::= SEQUENCE { a [0] OCTET STRING, b [1] INTEGER }`)
	require.NoError(t, err)

	require.Contains(t, dict.Sequences, "Rec")
	fields := dict.Sequences["Rec"]
	require.Equal(t, schema.FieldSpec{Name: "a", Type: "OCTET"}, fields[0])
	require.Equal(t, schema.FieldSpec{Name: "b", Type: "INTEGER"}, fields[1])
}

func TestExtract_choiceTagged(t *testing.T) {
	dict, err := schema.Extract(`C ::= CHOICE { x [5] OCTET STRING, y [7] OCTET STRING }`)
	require.NoError(t, err)

	alts := dict.Choices["C"]
	require.Equal(t, schema.ChoiceAlt{Name: "x", Type: "OCTET"}, alts[5])
	require.Equal(t, schema.ChoiceAlt{Name: "y", Type: "OCTET"}, alts[7])
}

func TestExtract_choiceUntagged(t *testing.T) {
	dict, err := schema.Extract(`C ::= CHOICE { a FooRec, b BarRec }`)
	require.NoError(t, err)

	alts := dict.Choices["C"]
	require.Len(t, alts, 2)
	require.Equal(t, "a", alts[0xFFFF_FF00].Name)
	require.Equal(t, "FooRec", alts[0xFFFF_FF00].Type)
	require.Equal(t, "b", alts[0xFFFF_FF01].Name)
}

func TestExtract_sequenceOf(t *testing.T) {
	dict, err := schema.Extract(`L ::= SEQUENCE { items [0] SEQUENCE OF OCTET STRING }`)
	require.NoError(t, err)

	field := dict.Sequences["L"][0]
	require.True(t, field.SequenceOf)
	require.Equal(t, "OCTET", field.Type)
}

func TestExtract_optional(t *testing.T) {
	dict, err := schema.Extract(`Rec ::= SEQUENCE { a [0] OCTET STRING OPTIONAL }`)
	require.NoError(t, err)

	require.True(t, dict.Sequences["Rec"][0].Optional)
}

func TestExtract_aliasChain(t *testing.T) {
	dict, err := schema.Extract(`
		A ::= B
		B ::= C
		C ::= SEQUENCE { n [0] INTEGER }
	`)
	require.NoError(t, err)

	require.Equal(t, "B", dict.Aliases["A"])
	require.Equal(t, "C", dict.Aliases["B"])
	require.Equal(t, "C", dict.ResolveAlias("A"))
}

func TestExtract_aliasSkipsKeywordTarget(t *testing.T) {
	dict, err := schema.Extract(`A ::= INTEGER`)
	require.NoError(t, err)

	require.NotContains(t, dict.Aliases, "A")
	require.Equal(t, "INTEGER", dict.Primitives["A"])
}

func TestExtract_aliasSkipsSelfReference(t *testing.T) {
	dict, err := schema.Extract(`A ::= A`)
	require.NoError(t, err)

	require.NotContains(t, dict.Aliases, "A")
}

func TestExtract_comments(t *testing.T) {
	dict, err := schema.Extract(`
		-- this describes Rec
		Rec ::= SEQUENCE { a [0] OCTET STRING } -- trailing
		-- no trailing newline at EOF`)
	require.NoError(t, err)
	require.Contains(t, dict.Sequences, "Rec")
}

func TestExtract_primitiveKind(t *testing.T) {
	dict, err := schema.Extract(`Count ::= INTEGER`)
	require.NoError(t, err)
	require.Equal(t, "INTEGER", dict.Primitives["Count"])
}

func TestExtract_invalidTag(t *testing.T) {
	huge := "99999999999999999999"
	_, err := schema.Extract(`Rec ::= SEQUENCE { a [` + huge + `] OCTET STRING }`)
	require.Error(t, err)
	var tagErr *schema.TagParseError
	require.ErrorAs(t, err, &tagErr)
}

func TestExtract_untaggedCap(t *testing.T) {
	var body string
	for i := 0; i < 300; i++ {
		body += "alt" + itoa(i) + " Foo "
	}
	dict, err := schema.Extract(`C ::= CHOICE { ` + body + ` }`)
	require.NoError(t, err)
	require.LessOrEqual(t, len(dict.Choices["C"]), 255)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	return string(b)
}
