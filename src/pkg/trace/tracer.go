package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var logger = log.WithField("package", "trace")

const REPORT_FILENAME = "performance-report.json"

// Tracer records one span per reconciliation step. A nil or disabled Tracer is a no-op.
type Tracer struct {
	provider  *sdktrace.TracerProvider
	tracer    trace.Tracer
	recorder  *spanRecorder
	outputDir string
}

type spanRecord struct {
	Name       string
	Start      time.Time
	End        time.Time
	SpanID     string
	ParentID   string
	Attributes map[string]string
}

type spanRecorder struct {
	mu    sync.Mutex
	spans []spanRecord
}

// SpanInfo is one node of the exported report
type SpanInfo struct {
	Name       string            `json:"name"`
	DurationMs float64           `json:"durationMs"`
	Start      string            `json:"start"`
	End        string            `json:"end"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Children   []SpanInfo        `json:"children,omitempty"`
}

type PerformanceReport struct {
	Spans           []SpanInfo `json:"spans"`
	TotalDurationMs float64    `json:"totalDurationMs"`
	Timestamp       string     `json:"timestamp"`
}

// New creates a Tracer. When enabled is false the returned Tracer records nothing.
func New(serviceName string, enabled bool, outputDir string) (*Tracer, error) {
	if !enabled {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer(serviceName)}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	recorder := &spanRecorder{}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(&recordingSpanProcessor{recorder: recorder}),
	)

	return &Tracer{
		provider:  tp,
		tracer:    tp.Tracer(serviceName),
		recorder:  recorder,
		outputDir: outputDir,
	}, nil
}

// Start starts a span named after a reconciliation step
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Shutdown flushes the provider and writes the performance report
func (t *Tracer) Shutdown() error {
	if t == nil || t.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.provider.Shutdown(ctx); err != nil {
		logger.WithField("error", err).Warn("Failed to shut down tracer provider")
	}
	return t.ExportReport()
}

// ExportReport writes the recorded spans as a JSON tree to the output directory
func (t *Tracer) ExportReport() error {
	if t == nil || t.recorder == nil || t.outputDir == "" {
		return nil
	}

	t.recorder.mu.Lock()
	records := append([]spanRecord(nil), t.recorder.spans...)
	t.recorder.mu.Unlock()
	if len(records) == 0 {
		return nil
	}

	hierarchy := buildHierarchy(records)
	total := 0.0
	for _, span := range hierarchy {
		total += span.DurationMs
	}
	report := PerformanceReport{
		Spans:           hierarchy,
		TotalDurationMs: total,
		Timestamp:       time.Now().Format(time.RFC3339Nano),
	}

	if err := os.MkdirAll(t.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	reportPath := filepath.Join(t.outputDir, REPORT_FILENAME)
	if err := os.WriteFile(reportPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.WithField("path", reportPath).Info("Written performance report")
	return nil
}

// recordingSpanProcessor keeps ended spans in memory for the report
type recordingSpanProcessor struct {
	recorder *spanRecorder
}

func (p *recordingSpanProcessor) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {}

func (p *recordingSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	parentID := ""
	if s.Parent().IsValid() {
		parentID = s.Parent().SpanID().String()
	}
	attrs := make(map[string]string, len(s.Attributes()))
	for _, kv := range s.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}

	p.recorder.mu.Lock()
	defer p.recorder.mu.Unlock()
	p.recorder.spans = append(p.recorder.spans, spanRecord{
		Name:       s.Name(),
		Start:      s.StartTime(),
		End:        s.EndTime(),
		SpanID:     s.SpanContext().SpanID().String(),
		ParentID:   parentID,
		Attributes: attrs,
	})
}

func (p *recordingSpanProcessor) Shutdown(ctx context.Context) error   { return nil }
func (p *recordingSpanProcessor) ForceFlush(ctx context.Context) error { return nil }

// buildHierarchy converts flat span records into a tree ordered by start time.
// Children end before their parents, so records arrive leaves first.
func buildHierarchy(records []spanRecord) []SpanInfo {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Start.Before(records[j].Start)
	})

	children := make(map[string][]spanRecord)
	var roots []spanRecord
	known := make(map[string]bool, len(records))
	for _, r := range records {
		known[r.SpanID] = true
	}
	for _, r := range records {
		if r.ParentID == "" || !known[r.ParentID] {
			roots = append(roots, r)
			continue
		}
		children[r.ParentID] = append(children[r.ParentID], r)
	}

	var build func(r spanRecord) SpanInfo
	build = func(r spanRecord) SpanInfo {
		info := SpanInfo{
			Name:       r.Name,
			DurationMs: float64(r.End.Sub(r.Start).Microseconds()) / 1000.0,
			Start:      r.Start.Format(time.RFC3339Nano),
			End:        r.End.Format(time.RFC3339Nano),
		}
		if len(r.Attributes) > 0 {
			info.Attributes = r.Attributes
		}
		for _, c := range children[r.SpanID] {
			info.Children = append(info.Children, build(c))
		}
		return info
	}

	result := make([]SpanInfo, 0, len(roots))
	for _, r := range roots {
		result = append(result, build(r))
	}
	return result
}
