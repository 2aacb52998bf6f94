package metrics

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/franckalain/healthscanner/internal/models"
)

func TestRecorder_Render(t *testing.T) {
	r := NewRecorder()
	r.RecordScan(SourceBarcode, models.HealthAnalysis{Score: 85, Category: models.CategoryExcellent})
	r.RecordScan(SourceBarcode, models.HealthAnalysis{Score: 57, Category: models.CategoryFair})
	r.RecordScan(SourceManual, models.HealthAnalysis{Score: 20, Category: models.CategoryPoor})

	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# TYPE healthscanner_scans_total counter",
		`healthscanner_scans_total{source="barcode"} 2`,
		`healthscanner_scans_total{source="manual"} 1`,
		`healthscanner_analyses_total{category="Excellent"} 1`,
		`healthscanner_analyses_total{category="Good"} 0`,
		`healthscanner_analyses_total{category="Poor"} 1`,
		"# TYPE healthscanner_health_score histogram",
		`healthscanner_health_score_bucket{le="20"} 1`,
		`healthscanner_health_score_bucket{le="60"} 2`,
		`healthscanner_health_score_bucket{le="100"} 3`,
		"healthscanner_health_score_sum 162",
		"healthscanner_health_score_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRecorder_EmptyScansOmitted(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRecorder().Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(buf.String(), "healthscanner_scans_total") {
		t.Errorf("scan family with no samples should be skipped:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "healthscanner_health_score_count 0") {
		t.Errorf("histogram should always render:\n%s", buf.String())
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.RecordScan(SourceLabel, models.HealthAnalysis{Score: 70, Category: models.CategoryGood})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `healthscanner_scans_total{source="label"} 1`) {
		t.Errorf("body:\n%s", rec.Body.String())
	}
}
