package analysis

import (
	"errors"

	"github.com/clauselens/core/internal/modules/analysis/passes"
)

// TaskTypeAnalysis is the queue type for asynchronous analysis runs.
const TaskTypeAnalysis = "analysis:run"

var (
	errDocumentNotFound    = errors.New("document not found")
	errAnalysisNotFound    = errors.New("analysis not found")
	errNoProvider          = errors.New("no enabled AI provider")
	errAnalysisUnavailable = errors.New("analysis unavailable")
)

// CreateAnalysisDTO starts an analysis run over a captured document. Passes,
// provider and model are optional overrides; configured defaults apply when
// omitted. Wait runs the passes inline instead of queueing.
type CreateAnalysisDTO struct {
	DocumentID string `json:"documentId" binding:"required"`
	Passes     int    `json:"passes"`
	ProviderID string `json:"providerId"`
	Model      string `json:"model"`
	Wait       bool   `json:"wait"`

	// Force skips the cached-result shortcut.
	Force bool `json:"force"`
}

type rerunAnalysisDTO struct {
	Wait bool `json:"wait"`
}

// runPayload is the task payload for a queued analysis run.
type runPayload struct {
	AnalysisID string `json:"analysis_id"`
	UserID     string `json:"user_id"`
	ProviderID string `json:"provider_id,omitempty"`
	Model      string `json:"model,omitempty"`
}

type providerModelsResponse struct {
	ProviderID   string             `json:"providerId"`
	ProviderName string             `json:"providerName"`
	ProviderType string             `json:"providerType"`
	Models       []passes.ModelInfo `json:"models"`
	Error        string             `json:"error,omitempty"`
}

type fetchModelsDTO struct {
	ProviderID string `json:"providerId"`
	Type       string `json:"type"`
	APIKey     string `json:"apiKey"`
	Endpoint   string `json:"endpoint"`
}

type testConnectionDTO struct {
	ProviderID string `json:"providerId"`
	Type       string `json:"type"`
	APIKey     string `json:"apiKey"`
	Endpoint   string `json:"endpoint"`
	Model      string `json:"model"`
}
