package models

// Retrieval modes.
const (
	ModeHybrid  = "hybrid"
	ModeVector  = "vector"
	ModeKeyword = "keyword"
)

// QueryRequest is a retrieval request. Zero values for TopK, Mode, and nil Alpha/MinSimilarity
// are replaced by configured defaults in ApplyDefaults.
type QueryRequest struct {
	Query         string   `json:"query"`
	TopK          int      `json:"top_k,omitempty"`
	Alpha         *float64 `json:"alpha,omitempty"`
	MinSimilarity *float64 `json:"min_similarity,omitempty"`
	Mode          string   `json:"mode,omitempty"`
}

// QueryDefaults holds the values used for unset QueryRequest fields.
type QueryDefaults struct {
	TopK          int
	MaxTopK       int
	Alpha         float64
	MinSimilarity float64
	Mode          string
}

// ApplyDefaults fills unset fields from d and caps TopK at d.MaxTopK.
func (q *QueryRequest) ApplyDefaults(d QueryDefaults) {
	if q.TopK <= 0 {
		q.TopK = d.TopK
	}
	if d.MaxTopK > 0 && q.TopK > d.MaxTopK {
		q.TopK = d.MaxTopK
	}
	if q.Alpha == nil {
		a := d.Alpha
		q.Alpha = &a
	}
	if q.MinSimilarity == nil {
		m := d.MinSimilarity
		q.MinSimilarity = &m
	}
	if q.Mode == "" {
		q.Mode = d.Mode
	}
}

// Validate ensures the request is well formed. Call after ApplyDefaults.
func (q *QueryRequest) Validate() error {
	if isBlank(q.Query) {
		return Validationf("query cannot be empty")
	}
	if q.TopK < 1 {
		return Validationf("top_k must be at least 1, got %d", q.TopK)
	}
	if q.Alpha != nil && (*q.Alpha < 0 || *q.Alpha > 1) {
		return Validationf("alpha must be in [0,1], got %v", *q.Alpha)
	}
	if q.MinSimilarity != nil && (*q.MinSimilarity < 0 || *q.MinSimilarity > 1) {
		return Validationf("min_similarity must be in [0,1], got %v", *q.MinSimilarity)
	}
	if !ValidMode(q.Mode) {
		return Validationf("unknown retrieval mode %q", q.Mode)
	}
	return nil
}

// ValidMode reports whether mode names a retrieval mode. Empty means default.
func ValidMode(mode string) bool {
	switch mode {
	case "", ModeHybrid, ModeVector, ModeKeyword:
		return true
	}
	return false
}
