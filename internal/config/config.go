// Package config decodes the Environment section spec §6 describes: an
// input/schema/output directory triple, the subdirectory prefix order the
// Dependency Resolver partitions by, and the toggle flags every later
// component consults.
//
// Grounded on the teacher's internal/config/config.go: a toml-tagged
// struct plus a Load(path) that fills in defaults the decode step leaves
// at its zero value — reshaped here from watch-mode settings into the
// batch Environment spec §6 names, and using toml.MetaData (rather than
// a simple zero-value check) so a default-true toggle can be told apart
// from an explicit `= false` in the file.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"

	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/analyzer"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/depgraph"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/shared/util"
)

// Config is the Environment section (spec §6): directories, subdirectory
// prefixes, and toggle flags.
type Config struct {
	Input     string   `toml:"input"`
	SchemaDir string   `toml:"schema-dir"`
	Output    string   `toml:"output"`
	Prefixes  []string `toml:"prefixes"`

	Heuristics       bool     `toml:"heuristics"`
	KeepTypes        bool     `toml:"keep-types"`
	Inject           bool     `toml:"inject"`
	RosettaOnly      bool     `toml:"rosetta-only"`
	DeleteUnknown    bool     `toml:"delete-unknown"`
	StrictFields     bool     `toml:"strict-fields"`
	Ambiguity        bool     `toml:"ambiguity"`
	Alphabetize      bool     `toml:"alphabetize"`
	IncludeKahlua    bool     `toml:"include-kahlua"`
	IncludeLargeDefs bool     `toml:"include-large-defs"`
	HelperPattern    string   `toml:"helper-pattern"`
	SkipPattern      string   `toml:"skip-pattern"`
	ExtraFiles       []string `toml:"extra-files"`
	Exclude          []string `toml:"exclude"`
	ExcludeFields    []string `toml:"exclude-fields"`
}

// Load decodes path and fills in every default spec §6 states for a
// toggle the file left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, err
	}

	applyDefault(meta, "heuristics", &cfg.Heuristics)
	applyDefault(meta, "inject", &cfg.Inject)
	applyDefault(meta, "delete-unknown", &cfg.DeleteUnknown)
	applyDefault(meta, "strict-fields", &cfg.StrictFields)
	applyDefault(meta, "ambiguity", &cfg.Ambiguity)
	applyDefault(meta, "alphabetize", &cfg.Alphabetize)

	if len(cfg.Prefixes) == 0 {
		cfg.Prefixes = []string{"shared", "client", "server"}
	}
	if cfg.Input == "" {
		cfg.Input = "."
	}
	cfg.Input = util.NormalizePatternPath(cfg.Input)

	return &cfg, nil
}

func applyDefault(meta toml.MetaData, key string, field *bool) {
	if !meta.IsDefined(key) {
		*field = true
	}
}

// AnalyzerOptions bridges the decoded Environment into the Analyzer's own
// options struct (component wiring the teacher's cmd/circular/app.go does
// inline in NewApp; split out here since config owns none of the
// analyzer's types). An invalid exclude-fields pattern is reported through
// err rather than silently dropped.
func (c *Config) AnalyzerOptions() (analyzer.Options, error) {
	excludeFields, err := c.CompiledExcludeFields()
	if err != nil {
		return analyzer.Options{}, err
	}
	return analyzer.Options{
		Prefixes:      c.Prefixes,
		Heuristics:    c.Heuristics,
		ExcludeFields: excludeFields,
	}, nil
}

// CompiledExclude compiles the `exclude` patterns for the Dependency
// Resolver's file-discovery walk.
func (c *Config) CompiledExclude() ([]depgraph.ExcludePattern, error) {
	return depgraph.CompileExcludePatterns(c.Exclude)
}

// CompiledExcludeFields compiles the `exclude-fields` patterns for the
// Finalizer's per-field output filter.
func (c *Config) CompiledExcludeFields() ([]glob.Glob, error) {
	return depgraph.CompileGlobs(c.ExcludeFields)
}
