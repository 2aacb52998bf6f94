// Package metrics counts scans and analyses and exposes them in the
// Prometheus text exposition format.
package metrics

import (
	"io"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/franckalain/healthscanner/internal/models"
)

// Scan sources.
const (
	SourceBarcode  = "barcode"
	SourceLabel    = "label"
	SourceManual   = "manual"
	SourceFallback = "fallback"
)

// scoreBuckets are the upper bounds of the health score histogram.
var scoreBuckets = []float64{20, 40, 60, 80, 100}

// Recorder accumulates counters in memory. The zero value is not usable; use
// NewRecorder.
type Recorder struct {
	mu         sync.Mutex
	scans      map[string]uint64
	categories map[models.Category]uint64
	buckets    []uint64
	count      uint64
	sum        float64
}

func NewRecorder() *Recorder {
	return &Recorder{
		scans:      make(map[string]uint64),
		categories: make(map[models.Category]uint64),
		buckets:    make([]uint64, len(scoreBuckets)),
	}
}

// RecordScan counts one analyzed scan from source.
func (r *Recorder) RecordScan(source string, a models.HealthAnalysis) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scans[source]++
	r.categories[a.Category]++
	r.count++
	r.sum += float64(a.Score)
	for i, ub := range scoreBuckets {
		if float64(a.Score) <= ub {
			r.buckets[i]++
		}
	}
}

// Families snapshots the current values as metric families.
func (r *Recorder) Families() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	scans := &dto.MetricFamily{
		Name: proto.String("healthscanner_scans_total"),
		Help: proto.String("Product scans analyzed, by source."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, source := range sortedKeys(r.scans) {
		scans.Metric = append(scans.Metric, counter("source", source, r.scans[source]))
	}

	categories := &dto.MetricFamily{
		Name: proto.String("healthscanner_analyses_total"),
		Help: proto.String("Health analyses produced, by category."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, c := range []models.Category{models.CategoryExcellent, models.CategoryGood, models.CategoryFair, models.CategoryPoor} {
		categories.Metric = append(categories.Metric, counter("category", string(c), r.categories[c]))
	}

	hist := &dto.Histogram{
		SampleCount: proto.Uint64(r.count),
		SampleSum:   proto.Float64(r.sum),
	}
	for i, ub := range scoreBuckets {
		hist.Bucket = append(hist.Bucket, &dto.Bucket{
			UpperBound:      proto.Float64(ub),
			CumulativeCount: proto.Uint64(r.buckets[i]),
		})
	}
	scores := &dto.MetricFamily{
		Name:   proto.String("healthscanner_health_score"),
		Help:   proto.String("Distribution of health scores."),
		Type:   dto.MetricType_HISTOGRAM.Enum(),
		Metric: []*dto.Metric{{Histogram: hist}},
	}

	return []*dto.MetricFamily{scans, categories, scores}
}

// Render writes every family in the text exposition format.
func (r *Recorder) Render(w io.Writer) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range r.Families() {
		if len(mf.Metric) == 0 {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves Render over HTTP.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		if err := r.Render(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func counter(label, value string, n uint64) *dto.Metric {
	return &dto.Metric{
		Label:   []*dto.LabelPair{{Name: proto.String(label), Value: proto.String(value)}},
		Counter: &dto.Counter{Value: proto.Float64(float64(n))},
	}
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
