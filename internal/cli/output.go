// Package cli provides the HTTP client and output formatting for the ragcore commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/hyperjump/ragcore/internal/metrics"
	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const snippetLen = 200

var (
	heading = color.New(color.Bold)
	faint   = color.New(color.Faint)
	warn    = color.New(color.FgYellow)
	good    = color.New(color.FgGreen)
)

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteQueryResponse writes a query response in the given format.
func WriteQueryResponse(w io.Writer, resp *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	if len(resp.Results) == 0 {
		msg := resp.Message
		if msg == "" {
			msg = models.NoResultsMessage
		}
		warn.Fprintln(w, msg)
		return nil
	}
	heading.Fprintf(w, "%d results in %.1fms (%s)\n", len(resp.Results), resp.Metrics.QueryTimeMs, resp.Mode)
	conf := good
	if resp.LowConfidence {
		conf = warn
	}
	conf.Fprintf(w, "confidence %.3f", resp.Confidence)
	if resp.LowConfidence {
		conf.Fprint(w, " (low)")
	}
	fmt.Fprintln(w)
	if resp.Answer != "" {
		fmt.Fprintf(w, "\n%s\n", resp.Answer)
	}
	for _, r := range resp.Results {
		fmt.Fprintln(w)
		heading.Fprintf(w, "[%d] %s", r.Rank, r.ChunkID)
		faint.Fprintf(w, "  score %.4f (vector %.4f, keyword %.4f)\n", r.FusedScore, r.VectorScore, r.KeywordScore)
		fmt.Fprintln(w, utils.Truncate(r.Text, snippetLen))
	}
	return nil
}

// WriteReport writes a metrics report in the given format.
func WriteReport(w io.Writer, r *metrics.Report, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, r)
	}
	heading.Fprintln(w, "Queries")
	fmt.Fprintf(w, "  served:   %d (window %d)\n", r.QueriesServed, r.Queries.TotalQueries)
	writeDistribution(w, "  time ms: ", r.Queries.QueryTimeMs)
	writeDistribution(w, "  score:   ", r.Queries.Score)
	heading.Fprintln(w, "Ingest")
	fmt.Fprintf(w, "  documents: %d, chunks: %d (%.1f per doc)\n", r.Ingest.Documents, r.Ingest.Chunks, r.Ingest.AvgChunksPerDoc)
	fmt.Fprintf(w, "  avg time:  %.1fms per doc, %.2fms per chunk\n", r.Ingest.AvgProcessingMs, r.Ingest.AvgTimePerChunkMs)
	heading.Fprintln(w, "Errors")
	fmt.Fprintf(w, "  total: %d (rate %.3f)\n", r.Errors.Total, r.ErrorRate)
	for kind, n := range r.Errors.ByKind {
		fmt.Fprintf(w, "  %s: %d\n", kind, n)
	}
	for _, e := range r.Errors.Recent {
		warn.Fprintf(w, "  %s %s: %s\n", e.Timestamp.Format("15:04:05"), e.Kind, e.Message)
	}
	return nil
}

func writeDistribution(w io.Writer, label string, d metrics.Distribution) {
	fmt.Fprintf(w, "%savg %.3f  p50 %.3f  p95 %.3f  p99 %.3f\n", label, d.Avg, d.Median, d.P95, d.P99)
}

// WriteHealth writes corpus counts in the given format.
func WriteHealth(w io.Writer, h *models.Health, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, h)
	}
	good.Fprintf(w, "%s", h.Status)
	fmt.Fprintf(w, ": %d documents, %d chunks, %d vectors\n", h.Documents, h.Chunks, h.VectorSize)
	return nil
}
