package decode

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FileError pairs a per-file failure with the input path that produced it.
// Input-open, output-create, and decode failures are all per-file: they're
// collected into a [Summary] rather than aborting the run.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Summary reports the outcome of a [Driver.Run] across every input file. The
// process exits 0 regardless of per-file failures, so Summary is how a
// caller (the CLI) surfaces them.
type Summary struct {
	FilesOK        int
	FilesFailed    int
	RecordsWritten int
	Errors         []FileError
}

// Driver walks a set of input files and decodes each one to its own output
// file, in parallel. A Driver is built around one [Decoder] and is safe to
// reuse across runs; it carries no state of its own beyond configuration.
type Driver struct {
	decoder   *Decoder
	root      string
	outputDir string
	workers   int
}

// NewDriver returns a Driver that decodes with decoder using rootType (a type
// name or "auto"), writing one "<name>.jsonl" file per input into outputDir.
// workers bounds how many files are decoded concurrently; 0 or negative means
// unlimited (one goroutine per file).
func NewDriver(decoder *Decoder, rootType, outputDir string, workers int) *Driver {
	return &Driver{decoder: decoder, root: rootType, outputDir: outputDir, workers: workers}
}

// Run decodes every path in paths and returns an aggregate [Summary]. A
// failure decoding one file never stops the others, and never fails Run
// itself — the overall process exits 0 regardless of per-file failures.
func (d *Driver) Run(paths []string) (Summary, error) {
	if err := os.MkdirAll(d.outputDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("decode: create output dir %q: %w", d.outputDir, err)
	}

	var (
		mu      sync.Mutex
		summary Summary
	)

	eg := &errgroup.Group{}
	if d.workers > 0 {
		eg.SetLimit(d.workers)
	}

	for _, path := range paths {
		eg.Go(func() error {
			records, err := d.decodeOne(path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.FilesFailed++
				summary.Errors = append(summary.Errors, FileError{Path: path, Err: err})
				return nil
			}
			summary.FilesOK++
			summary.RecordsWritten += records
			return nil
		})
	}

	// eg.Wait's error is always nil: every failure is captured per-file above,
	// matching the "never fail the process on a per-file error" policy.
	_ = eg.Wait()

	return summary, nil
}

// decodeOne reads path, decodes it, and writes "<base>.jsonl" under
// d.outputDir.
func (d *Driver) decodeOne(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("open input: %w", err)
	}

	outPath := filepath.Join(d.outputDir, filepath.Base(path)+".jsonl")
	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	records, err := d.decoder.DecodeFileBuffered(out, data, d.root, path)
	if err != nil {
		return records, fmt.Errorf("decode: %w", err)
	}
	return records, nil
}
