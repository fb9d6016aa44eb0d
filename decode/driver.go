// Package decode implements the Record Driver: it loops across the TLVs in
// one input file, emits one JSON line per record via [emit.Emitter], and
// coordinates that work across many files concurrently.
package decode

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/HasibNirjhar07/asn1-der-decoder/emit"
	"github.com/HasibNirjhar07/asn1-der-decoder/internal/tlv"
	"github.com/HasibNirjhar07/asn1-der-decoder/schema"
)

// Decoder holds the immutable state shared by every concurrent DecodeFile
// call: the type dictionary and the auto-root index built from it. Both are
// read-only after [NewDecoder] returns and safe to share across goroutines
// without synchronization.
type Decoder struct {
	dict     *schema.Dictionary
	autoRoot schema.AutoRootIndex
	logger   *slog.Logger
}

// NewDecoder builds a Decoder from an already-extracted dictionary.
func NewDecoder(dict *schema.Dictionary, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		dict:     dict,
		autoRoot: schema.BuildAutoRootIndex(dict),
		logger:   logger,
	}
}

// isAuto reports whether root, compared case-insensitively, selects
// auto-mode. An empty root also selects auto-mode.
func isAuto(root string) bool {
	return root == "" || strings.EqualFold(root, "auto")
}

// DecodeFile reads buf as a flat stream of concatenated DER TLVs and writes
// one JSON line per record to w. It returns the number of records written.
// A root type absent from the dictionary is reported as a warning exactly
// once (via path, used only for the log message) and the rest of the file
// decodes in auto-mode.
func (d *Decoder) DecodeFile(w io.Writer, buf []byte, root, path string) (int, error) {
	e := emit.New(w, d.dict)

	auto := isAuto(root)
	resolved := root
	var rootKind schema.Kind
	if !auto {
		resolved, rootKind = d.dict.Lookup(root)
		if rootKind == schema.KindUnknown {
			d.logger.Warn("root type not found in schema, falling back to auto for remainder of file",
				slog.String("path", path), slog.String("root_type", root))
			auto = true
		}
	}

	records := 0
	offset := 0
	for {
		t, next, ok := tlv.Parse(buf, offset)
		if !ok || next <= offset {
			break
		}
		offset = next

		var err error
		switch {
		case auto:
			err = e.WriteAutoRecord(t, d.autoRoot)
		case rootKind == schema.KindChoice:
			err = e.WriteType(t.Raw, resolved)
		default:
			err = e.WriteType(t.Value, resolved)
		}
		if err != nil {
			return records, fmt.Errorf("decode: record %d: %w", records, err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return records, fmt.Errorf("decode: record %d: %w", records, err)
		}
		records++
	}
	return records, nil
}

// DecodeFileBuffered is DecodeFile with w wrapped in a [bufio.Writer] that is
// flushed before returning.
func (d *Decoder) DecodeFileBuffered(w io.Writer, buf []byte, root, path string) (int, error) {
	bw := bufio.NewWriter(w)
	n, err := d.DecodeFile(bw, buf, root, path)
	if flushErr := bw.Flush(); err == nil {
		err = flushErr
	}
	return n, err
}
