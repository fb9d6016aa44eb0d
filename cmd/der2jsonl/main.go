// Command der2jsonl converts files of concatenated ASN.1 DER-encoded records
// into line-delimited JSON, driven by a text ASN.1 schema.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/HasibNirjhar07/asn1-der-decoder/decode"
	internallog "github.com/HasibNirjhar07/asn1-der-decoder/internal/log"
	"github.com/HasibNirjhar07/asn1-der-decoder/schema"
)

func main() {
	cfg := NewConfig()

	rootCmd := &cobra.Command{
		Use:   "der2jsonl --schema PATH --root-type NAME --output-dir PATH [flags] PATH...",
		Short: "Convert concatenated ASN.1 DER records into line-delimited JSON",
		Long: `der2jsonl decodes files of concatenated ASN.1 DER-encoded records into
line-delimited JSON, one compact JSON value per record, using a text ASN.1
schema to assign field names. Every leaf value is emitted as lowercase hex;
no semantic decoding of primitives is performed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			return run(cfg, args, os.Stderr)
		},
	}

	cfg.RegisterFlags(rootCmd.Flags())
	for _, name := range []string{"schema", "root-type", "output-dir"} {
		if err := rootCmd.MarkFlagRequired(name); err != nil {
			fmt.Fprintf(os.Stderr, "mark %s required: %v\n", name, err)
			os.Exit(1)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(cfg *Config, args []string, stderr *os.File) error {
	handler, err := internallog.NewHandlerFromStrings(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	logger := slog.New(handler)

	schemaText, err := os.ReadFile(cfg.Schema)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	dict, err := schema.Extract(string(schemaText))
	if err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}
	logger.Debug("schema parsed", statsAttrs(dict.Stats())...)

	if cfg.RootType != "" && !strings.EqualFold(cfg.RootType, "auto") && !dict.KnowsType(cfg.RootType) {
		logger.Warn("root type not found in schema; records will fall back to auto-mode",
			slog.String("root_type", cfg.RootType))
	}

	files, err := expandPaths(args, cfg.normalizedExts())
	if err != nil {
		return fmt.Errorf("expand inputs: %w", err)
	}
	if len(files) == 0 {
		logger.Warn("no input files matched")
		return nil
	}

	if cfg.DryRun {
		logger.Info("dry run: schema and inputs validated, no output written",
			append([]any{slog.Int("files", len(files))}, statsAttrs(dict.Stats())...)...)
		return nil
	}

	decoder := decode.NewDecoder(dict, logger)
	driver := decode.NewDriver(decoder, cfg.RootType, cfg.OutputDir, cfg.Workers)

	summary, err := driver.Run(files)
	if err != nil {
		return err
	}

	printSummary(stderr, summary)
	return nil
}

func statsAttrs(s schema.Stats) []any {
	return []any{
		slog.Int("choices", s.Choices),
		slog.Int("sequences", s.Sequences),
		slog.Int("sets", s.Sets),
		slog.Int("primitives", s.Primitives),
		slog.Int("aliases", s.Aliases),
	}
}

// printSummary writes the run summary to w. When w is a terminal, the line
// is a concise human-readable sentence; when it's redirected (a file or
// pipe, as in CI logs), a stable key=value form is printed instead so it's
// easy to grep.
func printSummary(w *os.File, s decode.Summary) {
	if term.IsTerminal(int(w.Fd())) {
		fmt.Fprintf(w, "decoded %d file(s), %d record(s) written, %d failed\n",
			s.FilesOK, s.RecordsWritten, s.FilesFailed)
	} else {
		fmt.Fprintf(w, "files_ok=%d files_failed=%d records_written=%d\n",
			s.FilesOK, s.FilesFailed, s.RecordsWritten)
	}
	for _, fe := range s.Errors {
		fmt.Fprintf(w, "error: %s\n", fe.Error())
	}
}
