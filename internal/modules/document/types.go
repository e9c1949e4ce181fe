package document

import (
	"errors"

	"github.com/clauselens/core/internal/models"
)

type CaptureDocumentDTO struct {
	Title     string `json:"title"     binding:"required"`
	SourceURL string `json:"sourceUrl"`
	Kind      string `json:"kind"`
	// Text and HTML are alternatives; HTML is extracted server-side.
	Text string `json:"text"`
	HTML string `json:"html"`
}

type UpdateDocumentDTO struct {
	Title *string `json:"title"`
	Kind  *string `json:"kind"`
}

var (
	errEmptyDocument    = errors.New("document has no extractable text")
	errDocumentTooLarge = errors.New("document exceeds the configured size limit")
)

func normalizeKind(raw string) string {
	switch raw {
	case models.DocumentKindTerms, models.DocumentKindPrivacy,
		models.DocumentKindContract, models.DocumentKindEULA:
		return raw
	default:
		return models.DocumentKindOther
	}
}
