package telemetry

import (
	"context"
	"maps"
	"runtime/pprof"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Label keys attached to profiles. Keep the set small: every distinct
// key/value combination is a separate profile series in Pyroscope.
const (
	ProfilingLabelController   = "controller"
	ProfilingLabelRoute        = "route"
	ProfilingLabelMethod       = "method"
	ProfilingLabelWorkflowStep = "workflow_step"
	ProfilingLabelOperation    = "operation"
	ProfilingLabelRegion       = "region"
)

// MaxLabelValueLength caps label values before they reach the profiler.
const MaxLabelValueLength = 128

// HighCardinalityLabels lists keys whose values are per-request or
// per-entity identifiers. sanitizeLabels drops them so a stray caller
// cannot explode the profile series count.
//
// workflow_step is deliberately absent: the intake questionnaire has a
// fixed step set, so its cardinality is bounded.
var HighCardinalityLabels = map[string]bool{
	"user_id":     true,
	"request_id":  true,
	"session_id":  true,
	"document_id": true,
	"file_id":     true,
	"trace_id":    true,
	"span_id":     true,
}

// WithProfilingLabels runs fn with the given labels attached to its
// goroutine, so CPU samples taken inside fn can be sliced by label in
// the Pyroscope UI. The map is copied and sanitized before use; callers
// may reuse or mutate it afterwards.
//
//	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("generate_summary", nil), func(c context.Context) {
//	    summarize(c)
//	})
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// WithPprofLabels is the same as WithProfilingLabels but goes through
// the standard library pprof API. The two are interchangeable;
// pyroscope.TagWrapper is itself built on pprof labels. Use this in
// code that should stay meaningful under plain `go tool pprof`.
func WithPprofLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pprof.Do(ctx, pprof.Labels(pairs...), fn)
}

// labelPairs copies, sanitizes and flattens a label map. A nil return
// means there is nothing worth attaching.
func labelPairs(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}
	copied := make(map[string]string, len(labels))
	maps.Copy(copied, labels)
	return sanitizeLabels(copied)
}

// ProfilingScope accumulates labels before running a function under
// them. Handy when different layers each contribute a label.
type ProfilingScope struct {
	labels map[string]string
}

// NewProfilingScope starts a scope seeded with the given labels.
// A nil map is fine.
func NewProfilingScope(labels map[string]string) *ProfilingScope {
	s := &ProfilingScope{labels: make(map[string]string, len(labels))}
	maps.Copy(s.labels, labels)
	return s
}

// WithLabel adds one label and returns the scope for chaining.
func (s *ProfilingScope) WithLabel(key, value string) *ProfilingScope {
	s.labels[key] = value
	return s
}

func (s *ProfilingScope) WithController(controller string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelController, controller)
}

func (s *ProfilingScope) WithRoute(route string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelRoute, route)
}

func (s *ProfilingScope) WithMethod(method string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelMethod, method)
}

func (s *ProfilingScope) WithWorkflowStep(step string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelWorkflowStep, step)
}

func (s *ProfilingScope) WithOperation(operation string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelOperation, operation)
}

func (s *ProfilingScope) WithRegion(region string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelRegion, region)
}

// Labels returns a copy of the accumulated labels.
func (s *ProfilingScope) Labels() map[string]string {
	out := make(map[string]string, len(s.labels))
	maps.Copy(out, s.labels)
	return out
}

// Run executes fn with the accumulated labels attached.
func (s *ProfilingScope) Run(ctx context.Context, fn func(context.Context)) {
	WithProfilingLabels(ctx, s.labels, fn)
}

// sanitizeLabels turns a label map into the flat key/value slice the
// profiler APIs want. Keys are sorted so the output is deterministic.
// Empty keys or values, high-cardinality keys, and keys that sanitize
// to nothing are dropped; long values are truncated. Dropped labels are
// not logged, this runs on hot paths.
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" || HighCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		clean := sanitizeLabelKey(key)
		if clean == "" {
			continue
		}
		pairs = append(pairs, clean, value)
	}
	if len(pairs) == 0 {
		return nil
	}
	return pairs
}

// sanitizeLabelKey lowercases a key, maps spaces and dashes to
// underscores, and strips anything outside [a-z0-9_].
func sanitizeLabelKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r == ' ', r == '-':
			return '_'
		default:
			return -1
		}
	}, key)
}

// HTTPRequestLabels builds the label set the HTTP profiling middleware
// attaches per request. Blank components are left out.
func HTTPRequestLabels(controller, route, method string) map[string]string {
	labels := make(map[string]string, 3)
	if controller != "" {
		labels[ProfilingLabelController] = controller
	}
	if route != "" {
		labels[ProfilingLabelRoute] = route
	}
	if method != "" {
		labels[ProfilingLabelMethod] = method
	}
	return labels
}

// OperationLabels builds labels for a named operation, merged with any
// extras the caller supplies.
func OperationLabels(operation string, extra map[string]string) map[string]string {
	labels := make(map[string]string, len(extra)+1)
	labels[ProfilingLabelOperation] = operation
	maps.Copy(labels, extra)
	return labels
}

// RegionLabels builds labels for a code region such as a render or a
// bulk database pass, merged with any extras the caller supplies.
func RegionLabels(region string, extra map[string]string) map[string]string {
	labels := make(map[string]string, len(extra)+1)
	labels[ProfilingLabelRegion] = region
	maps.Copy(labels, extra)
	return labels
}
