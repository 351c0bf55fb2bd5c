package keyword

import "github.com/hyperjump/ragcore/internal/models"

// New creates a keyword index for the named backend. minTermLength applies to the inverted
// backend; Bleve uses its standard analyzer.
func New(backend string, minTermLength int) (KeywordIndex, error) {
	switch backend {
	case BackendInverted, "":
		return NewInvertedIndex(WithMinTermLength(minTermLength)), nil
	case BackendBleve:
		return NewBleveIndex("")
	default:
		return nil, models.Validationf("unknown keyword backend: %s (supported: inverted, bleve)", backend)
	}
}
