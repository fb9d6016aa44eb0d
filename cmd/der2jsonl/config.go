package main

import (
	"runtime"

	"github.com/spf13/pflag"
)

// Config holds CLI flag values for der2jsonl.
type Config struct {
	Schema    string
	RootType  string
	OutputDir string
	Ext       []string
	Workers   int
	LogLevel  string
	LogFormat string
	DryRun    bool
}

// NewConfig returns a Config with der2jsonl's defaults: no default
// schema/root-type/output-dir (all required), --workers defaulting to
// GOMAXPROCS, text logging at info level.
func NewConfig() *Config {
	return &Config{
		Workers:   runtime.GOMAXPROCS(0),
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// RegisterFlags adds der2jsonl's flags to flags.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Schema, "schema", "", "path to the ASN.1 schema file (required)")
	flags.StringVar(&c.RootType, "root-type", "", `root type name, or "auto" for auto-root inference (required)`)
	flags.StringVar(&c.OutputDir, "output-dir", "", "directory to write <input>.jsonl files into (required)")
	flags.StringSliceVar(&c.Ext, "ext", nil, "comma-separated extension filter for directory inputs (e.g. der,ber)")
	flags.IntVar(&c.Workers, "workers", c.Workers, "number of files to decode concurrently")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	flags.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text, json")
	flags.BoolVar(&c.DryRun, "dry-run", false, "validate the schema and root type without writing output files")
}

// normalizedExts returns c.Ext as a set of trimmed, dot-stripped, lowercased
// extensions. A nil/empty result means "no filter".
func (c *Config) normalizedExts() map[string]bool {
	if len(c.Ext) == 0 {
		return nil
	}
	set := make(map[string]bool, len(c.Ext))
	for _, raw := range c.Ext {
		set[normalizeExt(raw)] = true
	}
	return set
}
