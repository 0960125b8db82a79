// Command stubgen runs the analysis engine end to end against a directory
// of pre-parsed Lua ASTs (see internal/luast.DecodeChunk) and writes one
// merged schema fragment per analyzed file.
//
// Grounded on the teacher's cmd/circular/main.go: flag-driven setup of
// slog, a config load with a documented fallback path, a single pipeline
// run, then a printed summary — reshaped from urfave/cli/v2's command
// shape in place of the teacher's own flag package (see
// _examples/vyPal-CaffeineC for that library's idiom), and from the
// teacher's watch/UI branches into a single batch Action.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gobwas/glob"
	"github.com/urfave/cli/v2"

	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/analyzer"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/config"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/depgraph"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/finalize"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/luast"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/report"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/schema"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/shared/observability"
	"github.com/PZ-Umbrella/pz-lua-stubgen/internal/shared/util"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "stubgen",
		Usage:   "analyze pre-parsed Lua ASTs and emit merged schema fragments",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "./pz-lua-stubgen.toml", Usage: "path to the Environment config file"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "override the config's input directory"},
			&cli.StringFlag{Name: "schema-dir", Usage: "override the config's pre-existing schema directory"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "override the config's output directory"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		if c.String("config") == "./pz-lua-stubgen.toml" {
			cfg, err = config.Load("./pz-lua-stubgen.example.toml")
		}
		if err != nil {
			slog.Error("failed to load config", "error", err)
			return err
		}
	}
	if v := c.String("input"); v != "" {
		cfg.Input = v
	}
	if v := c.String("schema-dir"); v != "" {
		cfg.SchemaDir = v
	}
	if v := c.String("output"); v != "" {
		cfg.Output = v
	}

	sources, err := loadSources(cfg)
	if err != nil {
		slog.Error("failed to load sources", "error", err)
		return err
	}
	slog.Debug("loaded sources", "count", len(sources))

	opts, err := cfg.AnalyzerOptions()
	if err != nil {
		slog.Error("invalid exclude-fields pattern", "error", err)
		return err
	}
	a := analyzer.New(opts)
	result := a.Run(sources)
	slog.Info("analysis complete", "session", result.SessionID, "files", len(result.Order), "cycles", len(result.Cycles))

	schemaStart := time.Now()
	bridge := schema.NewBridge(cfg.KeepTypes)
	written := 0
	for _, mod := range result.Modules {
		if err := writeSchema(cfg, bridge, mod); err != nil {
			slog.Error("failed to write schema", "file", mod.FileID, "error", err)
			continue
		}
		written++
	}
	observability.AnalysisDuration.WithLabelValues(observability.ComponentSchemaBridge).Observe(time.Since(schemaStart).Seconds())
	observability.SchemaFilesWritten.Add(float64(written))
	observability.HeapAllocMB.Set(float64(util.GetHeapAllocMB()))

	if cfg.Output != "" {
		if err := writeRunReport(cfg, result); err != nil {
			slog.Warn("failed to write run report", "error", err)
		}
	}

	printSummary(result, written)
	return nil
}

// writeRunReport emits the session-scoped run report SPEC_FULL.md
// supplements spec.md with: a JSON summary alongside a dependency-order
// diagram, mirroring the closing report shape the teacher always produces.
func writeRunReport(cfg *config.Config, result *analyzer.Result) error {
	summary := report.Build(result)
	data, err := summary.JSON()
	if err != nil {
		return err
	}
	if err := util.WriteFileWithDirs(filepath.Join(cfg.Output, "report.json"), data, 0o644); err != nil {
		return err
	}
	dot := report.DependencyDOT(result)
	return util.WriteStringWithDirs(filepath.Join(cfg.Output, "report.dot"), dot, 0o644)
}

// loadSources discovers every `<name>.lua.json` AST fixture under the
// Environment's input directory (skipping the Environment's `exclude`
// patterns, spec §6) and decodes each into an analyzer.Source. The file ID
// given to the rest of the pipeline is the `.lua` path the JSON fixture
// describes, stripped of the JSON encoding's own suffix.
//
// The Environment's `skip-pattern` (spec §6) is a second, single-pattern
// exclude applied at the same file-set-building step as `exclude`;
// `helper-pattern` doesn't remove a file from the set but is logged so a
// run can be audited for which files it treated as helpers rather than
// analysis targets.
func loadSources(cfg *config.Config) ([]analyzer.Source, error) {
	exclude, err := cfg.CompiledExclude()
	if err != nil {
		return nil, err
	}

	var skip, helper glob.Glob
	if cfg.SkipPattern != "" {
		if skip, err = glob.Compile(cfg.SkipPattern); err != nil {
			return nil, err
		}
	}
	if cfg.HelperPattern != "" {
		if helper, err = glob.Compile(cfg.HelperPattern); err != nil {
			return nil, err
		}
	}

	files, err := depgraph.DiscoverFiles(cfg.Input, exclude, ".json")
	if err != nil {
		return nil, err
	}

	sources := make([]analyzer.Source, 0, len(files))
	for _, path := range files {
		rel, err := filepath.Rel(cfg.Input, path)
		if err != nil {
			rel = path
		}
		fileID := strings.TrimSuffix(filepath.ToSlash(rel), ".json")

		if skip != nil && skip.Match(fileID) {
			slog.Debug("skip-pattern matched, excluding file", "file", fileID)
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		chunk, err := luast.DecodeChunk(data)
		if err != nil {
			slog.Warn("skipping unparseable AST fixture", "file", path, "error", err)
			continue
		}

		if helper != nil && helper.Match(fileID) {
			slog.Debug("helper-pattern matched", "file", fileID)
		}

		sources = append(sources, analyzer.Source{ID: fileID, Chunk: chunk})
	}
	return sources, nil
}

// writeSchema merges mod against any pre-existing schema fragment for the
// same file under cfg.SchemaDir, then writes the merged result under
// cfg.Output (spec §4's component G, applied once per analyzed file).
func writeSchema(cfg *config.Config, bridge *schema.Bridge, mod *finalize.FinalizedModule) error {
	var existing *schema.Lua
	if cfg.SchemaDir != "" {
		path := filepath.Join(cfg.SchemaDir, mod.FileID+".yaml")
		if f, err := schema.Load(path); err == nil {
			existing = &f.Languages.Lua
		} else if !os.IsNotExist(err) {
			slog.Warn("ignoring unreadable pre-existing schema", "file", path, "error", err)
		}
	}

	merged := bridge.Merge(existing, mod)
	out := &schema.File{Languages: schema.Languages{Lua: *merged}}
	return schema.Save(filepath.Join(cfg.Output, mod.FileID+".yaml"), out)
}

func printSummary(result *analyzer.Result, written int) {
	var classes, tables, functions int
	for _, mod := range result.Modules {
		classes += len(mod.Classes)
		tables += len(mod.Tables)
		functions += len(mod.Functions)
	}

	bold := color.New(color.Bold)
	bold.Println("stubgen run summary")
	fmt.Printf("  files analyzed:   %d\n", len(result.Order))
	fmt.Printf("  schemas written:  %d\n", written)
	fmt.Printf("  classes:          %d\n", classes)
	fmt.Printf("  tables:           %d\n", tables)
	fmt.Printf("  functions:        %d\n", functions)

	if len(result.Cycles) > 0 {
		color.Yellow("  require cycles:   %d", len(result.Cycles))
	}
	for _, d := range result.Diagnostics {
		color.Red("  [%s] %s: %s", d.Kind, d.FileID, d.Message)
	}
}
