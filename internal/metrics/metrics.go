// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when net/http/pprof is imported in the main binary.
package metrics

import "expvar"

// Operation counters.
var (
	ImportsTotal       = expvar.NewInt("spangraph_imports_total")
	ImportFailures     = expvar.NewInt("spangraph_import_failures_total")
	SpansCreated       = expvar.NewInt("spangraph_spans_created_total")
	ConnectionsCreated = expvar.NewInt("spangraph_connections_created_total")
	WarningsTotal      = expvar.NewInt("spangraph_import_warnings_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
