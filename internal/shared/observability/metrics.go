// Package observability exposes the per-component Prometheus metrics
// spec.md §2's "Share" column motivates: an AnalysisDuration histogram
// labelled by component letter (A-G) plus gauges for module/class/table/
// function counts, so a long-lived embedding (e.g. an editor language
// server driving internal/analyzer directly) can expose /metrics and see
// where a real corpus actually spends its time against that budget.
//
// Grounded on the teacher's internal/shared/observability/metrics.go:
// promauto-registered histograms/gauges/counters, reshaped here from
// watch-loop/write-queue concerns into one-histogram-per-pipeline-phase.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Component labels match spec.md §2's component letters.
const (
	ComponentDependencyResolver = "A"
	ComponentScopeReader        = "B"
	ComponentTypeResolver       = "C"
	ComponentClassResolver      = "D"
	ComponentFinalizer          = "F"
	ComponentSchemaBridge       = "G"
)

var (
	// AnalysisDuration is observed once per pipeline phase per run, labelled
	// by the component letter that phase belongs to.
	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pz_lua_stubgen_analysis_seconds",
		Help:    "Time spent in one analysis pipeline phase, labelled by component letter.",
		Buckets: prometheus.DefBuckets,
	}, []string{"component"})

	ModulesAnalyzed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pz_lua_stubgen_modules_total",
		Help: "Number of modules finalized in the most recent run.",
	})

	ClassesFound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pz_lua_stubgen_classes_total",
		Help: "Number of classes finalized in the most recent run.",
	})

	TablesFound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pz_lua_stubgen_tables_total",
		Help: "Number of non-class tables finalized in the most recent run.",
	})

	FunctionsFound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pz_lua_stubgen_functions_total",
		Help: "Number of module-scope functions finalized in the most recent run.",
	})

	RequireCyclesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pz_lua_stubgen_require_cycles_total",
		Help: "Total number of unresolved require() cycles encountered across all runs.",
	})

	SchemaFilesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pz_lua_stubgen_schema_files_written_total",
		Help: "Total number of merged schema fragments written across all runs.",
	})

	// HeapAllocMB tracks internal/shared/util.GetHeapAllocMB's reading at
	// the end of each run, a coarse signal for whether one run's resident
	// Context (component E) is growing unreasonably on a large corpus.
	HeapAllocMB = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pz_lua_stubgen_heap_alloc_mb",
		Help: "Heap allocation in MB sampled at the end of the most recent run.",
	})
)
