package emit_test

import (
	"bytes"
	"testing"

	"github.com/HasibNirjhar07/asn1-der-decoder/emit"
	"github.com/HasibNirjhar07/asn1-der-decoder/internal/tlv"
	"github.com/HasibNirjhar07/asn1-der-decoder/schema"
)

// decodeOne mimics the one-record dispatch in decode.Decoder.DecodeFile: a CHOICE root
// sees the outer TLV including its header, anything else sees only the
// content octets.
func decodeOne(t *testing.T, schemaText, root string, data []byte) string {
	t.Helper()
	dict, err := schema.Extract(schemaText)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	top, _, ok := tlv.Parse(data, 0)
	if !ok {
		t.Fatalf("tlv.Parse() = false")
	}
	var buf bytes.Buffer
	e := emit.New(&buf, dict)
	_, kind := dict.Lookup(root)
	payload := top.Value
	if kind == schema.KindChoice {
		payload = top.Raw
	}
	if err := e.WriteType(payload, root); err != nil {
		t.Fatalf("WriteType() error = %v", err)
	}
	return buf.String()
}

func TestWriteType_plainSequence(t *testing.T) {
	got := decodeOne(t,
		`Rec ::= SEQUENCE { a [0] OCTET STRING, b [1] INTEGER }`,
		"Rec",
		[]byte{0x30, 0x06, 0x80, 0x01, 0xAA, 0x81, 0x01, 0x2A},
	)
	want := `{"a":"aa","b":"2a"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWriteType_unknownTag(t *testing.T) {
	got := decodeOne(t,
		`Rec ::= SEQUENCE { a [0] OCTET STRING, b [1] INTEGER }`,
		"Rec",
		[]byte{0x30, 0x06, 0x80, 0x01, 0xAA, 0x82, 0x01, 0x99},
	)
	want := `{"a":"aa","unknown_tag_2":"99"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWriteType_taggedChoice(t *testing.T) {
	got := decodeOne(t,
		`C ::= CHOICE { x [5] OCTET STRING, y [7] OCTET STRING }`,
		"C",
		[]byte{0xA5, 0x02, 0xAB, 0xCD},
	)
	want := `{"x":"abcd"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWriteType_sequenceOf(t *testing.T) {
	got := decodeOne(t,
		`L ::= SEQUENCE { items [0] SEQUENCE OF OCTET STRING }`,
		"L",
		[]byte{0x30, 0x0A, 0xA0, 0x08, 0x04, 0x02, 0x11, 0x22, 0x04, 0x02, 0x33, 0x44},
	)
	want := `{"items":["1122","3344"]}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWriteType_aliasChain(t *testing.T) {
	got := decodeOne(t,
		`
		A ::= B
		B ::= C
		C ::= SEQUENCE { n [0] INTEGER }
		`,
		"A",
		[]byte{0x30, 0x03, 0x80, 0x01, 0x07},
	)
	want := `{"n":"07"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWriteType_unknownAlternative(t *testing.T) {
	got := decodeOne(t,
		`C ::= CHOICE { x [5] OCTET STRING }`,
		"C",
		[]byte{0xA6, 0x02, 0xAB, 0xCD},
	)
	want := `{"unknown_alternative":"a602abcd"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWriteType_untaggedChoiceBySequenceProbe(t *testing.T) {
	// The outer TLV (tag 9, context-specific, constructed) carries no tag the
	// dictionary recognises, so writeChoice falls back to structural probing:
	// the first TLV inside it is a genuine universal/constructed SEQUENCE
	// (0x30), which matches FooRec's kind before BarRec's.
	got := decodeOne(t,
		`
		C ::= CHOICE { a FooRec, b BarRec }
		FooRec ::= SEQUENCE { x [0] OCTET STRING }
		BarRec ::= SEQUENCE { y [0] OCTET STRING }
		`,
		"C",
		[]byte{0xA9, 0x06, 0x30, 0x04, 0x80, 0x02, 0x11, 0x22},
	)
	want := `{"a":{"x":"1122"}}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWriteAutoRecord(t *testing.T) {
	dict, err := schema.Extract(`
		Top ::= CHOICE { foo [9] FooRec, bar [10] BarRec }
		FooRec ::= SEQUENCE { a [0] OCTET STRING }
		BarRec ::= SEQUENCE { b [0] OCTET STRING }
	`)
	if err != nil {
		t.Fatal(err)
	}
	index := schema.BuildAutoRootIndex(dict)

	data := []byte{0xA9, 0x04, 0x80, 0x02, 0x01, 0x02}
	top, _, ok := tlv.Parse(data, 0)
	if !ok {
		t.Fatal("tlv.Parse() = false")
	}

	var buf bytes.Buffer
	e := emit.New(&buf, dict)
	if err := e.WriteAutoRecord(top, index); err != nil {
		t.Fatalf("WriteAutoRecord() error = %v", err)
	}

	want := `{"foo":{"a":"0102"}}`
	if got := buf.String(); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWriteAutoRecord_unknownTag(t *testing.T) {
	dict, err := schema.Extract(`Top ::= CHOICE { foo [9] FooRec }
		FooRec ::= SEQUENCE { a [0] OCTET STRING }`)
	if err != nil {
		t.Fatal(err)
	}
	index := schema.BuildAutoRootIndex(dict)

	data := []byte{0xAA, 0x02, 0x01, 0x02}
	top, _, ok := tlv.Parse(data, 0)
	if !ok {
		t.Fatal("tlv.Parse() = false")
	}

	var buf bytes.Buffer
	e := emit.New(&buf, dict)
	if err := e.WriteAutoRecord(top, index); err != nil {
		t.Fatalf("WriteAutoRecord() error = %v", err)
	}

	want := `{"unknown":"aa020102"}`
	if got := buf.String(); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestWriteType_unknownRootType(t *testing.T) {
	dict, err := schema.Extract(`Rec ::= SEQUENCE { a [0] OCTET STRING }`)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	e := emit.New(&buf, dict)
	if err := e.WriteType([]byte{0xAA, 0xBB}, "NoSuchType"); err != nil {
		t.Fatalf("WriteType() error = %v", err)
	}
	if got := buf.String(); got != `"aabb"` {
		t.Errorf("got %s, want %s", got, `"aabb"`)
	}
}
