// Package curation implements the privileged dashboard operations: re-running
// data points against the analysis service, adding companies and recording
// feedback.
package curation

import (
	"crypto/subtle"

	"github.com/google/uuid"

	"github.com/sells-group/disclosure-dashboard/internal/store"
	"github.com/sells-group/disclosure-dashboard/pkg/analyzer"
)

// Service runs curation operations against a store and the analysis service.
type Service struct {
	store    store.Store
	analyzer analyzer.Client
	secret   string
	newRunID func() string
}

// NewService creates a Service. An empty secret rejects every privileged call.
func NewService(st store.Store, an analyzer.Client, secret string) *Service {
	return &Service{
		store:    st,
		analyzer: an,
		secret:   secret,
		newRunID: func() string { return uuid.NewString() },
	}
}

// Authorize reports an unauthorized error unless key matches the configured
// secret. Every privileged operation runs the same check itself.
func (s *Service) Authorize(key string) error {
	if !s.authorized(key) {
		return unauthorized()
	}
	return nil
}

func (s *Service) authorized(key string) bool {
	if s.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.secret)) == 1
}

// noDataMessage is reported when the analysis service answers with no results.
const noDataMessage = "Analysis complete, but no data was returned to save."

// Result summarizes a completed re-run.
type Result struct {
	RunID     string    `json:"run_id,omitempty"`
	Message   string    `json:"message"`
	Refreshed []string  `json:"refreshed"`
	Skipped   []Skipped `json:"skipped,omitempty"`
	NoData    bool      `json:"no_data,omitempty"`
}

// Skipped records an analysis result that was not persisted.
type Skipped struct {
	Question string `json:"question"`
	Label    string `json:"label,omitempty"`
	Reason   string `json:"reason"`
}
