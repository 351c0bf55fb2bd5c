package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/hyperjump/ragcore/internal/metrics"
	"github.com/hyperjump/ragcore/internal/models"
)

func init() {
	color.NoColor = true
}

func sampleResponse() *models.QueryResponse {
	return &models.QueryResponse{
		Query: "solar",
		Mode:  models.ModeHybrid,
		Results: []*models.RetrievedResult{
			{ChunkID: "doc_0", DocumentID: "doc", Text: strings.Repeat("sun ", 100), FusedScore: 0.8, VectorScore: 0.7, KeywordScore: 1, Rank: 1},
		},
		Confidence:    0.42,
		LowConfidence: true,
		Metrics:       models.RetrievalMetrics{QueryTimeMs: 3.5, NumRetrieved: 1},
	}
}

func TestWriteQueryResponse_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryResponse(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"1 results in 3.5ms (hybrid)", "confidence 0.420 (low)", "[1] doc_0", "score 0.8000", "..."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteQueryResponse_NoResults(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.QueryResponse{Results: []*models.RetrievedResult{}, Message: models.NoResultsMessage}
	if err := WriteQueryResponse(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != models.NoResultsMessage {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteQueryResponse_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryResponse(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.QueryResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded.Results) != 1 || decoded.Results[0].ChunkID != "doc_0" {
		t.Errorf("decoded results: %+v", decoded.Results)
	}
}

func TestWriteReportAndHealth(t *testing.T) {
	var buf bytes.Buffer
	r := &metrics.Report{
		QueriesServed: 7,
		Queries:       metrics.Summary{TotalQueries: 7},
		Errors:        metrics.ErrorStats{Total: 1, ByKind: map[string]int64{"validation": 1}},
	}
	if err := WriteReport(&buf, r, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "served:   7") || !strings.Contains(buf.String(), "validation: 1") {
		t.Errorf("report output:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteHealth(&buf, &models.Health{Status: "ok", Documents: 2, Chunks: 5, VectorSize: 5}, OutputText); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "ok: 2 documents, 5 chunks, 5 vectors" {
		t.Errorf("health output: %q", got)
	}
}

func TestClient(t *testing.T) {
	var gotCaller string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		gotCaller = r.Header.Get("X-Caller-ID")
		var req models.QueryRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(models.QueryResponse{Query: req.Query, Results: []*models.RetrievedResult{}})
	})
	mux.HandleFunc("/api/v1/documents/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"document missing not found"}`))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.Health{Status: "ok", Documents: 3})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL+"/", "cli-test", 5*time.Second)
	ctx := context.Background()

	resp, err := c.Query(ctx, models.QueryRequest{Query: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Query != "hello" || gotCaller != "cli-test" {
		t.Errorf("query: got %q, caller %q", resp.Query, gotCaller)
	}

	h, err := c.Health(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if h.Documents != 3 {
		t.Errorf("health: got %+v", h)
	}

	err = c.Delete(ctx, "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "document missing not found" {
		t.Errorf("api error: %+v", apiErr)
	}
}
