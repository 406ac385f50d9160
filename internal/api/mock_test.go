package api

import (
	"context"

	"github.com/sells-group/disclosure-dashboard/internal/curation"
	"github.com/sells-group/disclosure-dashboard/internal/model"
	"github.com/sells-group/disclosure-dashboard/internal/store"
)

// --- Reader Stub ---

type stubReader struct {
	records []model.EmissionRecord
	byID    map[int64]*model.EmissionRecord
	listErr error
	pingErr error

	lastOpts store.ListOptions
}

func (s *stubReader) ListRecords(_ context.Context, opts store.ListOptions) ([]model.EmissionRecord, error) {
	s.lastOpts = opts
	return s.records, s.listErr
}

func (s *stubReader) GetRecord(_ context.Context, id int64) (*model.EmissionRecord, error) {
	rec, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (s *stubReader) Ping(context.Context) error {
	return s.pingErr
}

// --- Curator Stub ---

type stubCurator struct {
	authorize      func(string) error
	rerun          func(curation.RerunRequest) (*curation.Result, error)
	rerunDataPoint func(curation.RerunDataPointRequest) (*curation.Result, error)
	addCompany     func(curation.AddCompanyRequest) (*curation.AddCompanyResult, error)
	submitFeedback func(curation.FeedbackRequest) (string, error)
}

func (s *stubCurator) Authorize(key string) error {
	if s.authorize == nil {
		return nil
	}
	return s.authorize(key)
}

func (s *stubCurator) Rerun(_ context.Context, req curation.RerunRequest) (*curation.Result, error) {
	return s.rerun(req)
}

func (s *stubCurator) RerunDataPoint(_ context.Context, req curation.RerunDataPointRequest) (*curation.Result, error) {
	return s.rerunDataPoint(req)
}

func (s *stubCurator) AddCompany(_ context.Context, req curation.AddCompanyRequest) (*curation.AddCompanyResult, error) {
	return s.addCompany(req)
}

func (s *stubCurator) SubmitFeedback(_ context.Context, req curation.FeedbackRequest) (string, error) {
	return s.submitFeedback(req)
}
