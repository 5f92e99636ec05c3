package tracescan

import (
	"strings"
)

// TraceKind classifies a discovered file by how the builder would need to
// read it.
type TraceKind string

const (
	// KindPlainTrace is an uncompressed line-oriented trace.
	KindPlainTrace TraceKind = "trace"
	// KindGzipTrace is a gzip-compressed trace, the form the instrumented
	// compiler pass normally emits.
	KindGzipTrace TraceKind = "trace.gz"
	// KindSummary is a previously written builder summary file.
	KindSummary TraceKind = "summary"
	// KindUnknown is any other file the scanner walked over.
	KindUnknown TraceKind = ""
)

// traceExtensions maps a recognized filename suffix to the TraceKind it
// indicates. Entries are ordered most-specific-first so a compound suffix
// like ".trace.gz" is matched before the bare ".gz" rule below it.
var traceExtensions = []struct {
	suffix string
	kind   TraceKind
}{
	{".trace.gz", KindGzipTrace},
	{".dyn.gz", KindGzipTrace},
	{"dynamic_trace.gz", KindGzipTrace},
	{".trace", KindPlainTrace},
	{".dyn", KindPlainTrace},
	{".gz", KindGzipTrace},
	{"_summary.yaml", KindSummary},
	{"_summary.yml", KindSummary},
}

// DetectTraceKind classifies name by its suffix, case-insensitively,
// against the most specific known suffix it matches.
func DetectTraceKind(name string) TraceKind {
	lower := strings.ToLower(name)
	for _, e := range traceExtensions {
		if strings.HasSuffix(lower, e.suffix) {
			return e.kind
		}
	}
	return KindUnknown
}
