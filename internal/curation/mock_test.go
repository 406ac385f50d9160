package curation

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/disclosure-dashboard/internal/model"
	"github.com/sells-group/disclosure-dashboard/internal/store"
	"github.com/sells-group/disclosure-dashboard/pkg/analyzer"
)

// --- Analyzer Mock ---

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Analyze(ctx context.Context, req analyzer.Request) ([]analyzer.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analyzer.Result), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

var _ store.Store = (*mockStore)(nil)

func (m *mockStore) ListRecords(ctx context.Context, opts store.ListOptions) ([]model.EmissionRecord, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EmissionRecord), args.Error(1)
}

func (m *mockStore) GetRecord(ctx context.Context, id int64) (*model.EmissionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmissionRecord), args.Error(1)
}

func (m *mockStore) FindRecord(ctx context.Context, company string, year int, dataPointType string) (*model.EmissionRecord, error) {
	args := m.Called(ctx, company, year, dataPointType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmissionRecord), args.Error(1)
}

func (m *mockStore) DeleteDataPoints(ctx context.Context, company string, year int, dataPointTypes []string) (int64, error) {
	args := m.Called(ctx, company, year, dataPointTypes)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) InsertRecord(ctx context.Context, rec model.EmissionRecord) (*model.EmissionRecord, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmissionRecord), args.Error(1)
}

func (m *mockStore) InsertEvidence(ctx context.Context, dataID int64, evidence []model.EvidenceRecord) (int64, error) {
	args := m.Called(ctx, dataID, evidence)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) AddPlaceholder(ctx context.Context, company string, year int) (*model.EmissionRecord, error) {
	args := m.Called(ctx, company, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmissionRecord), args.Error(1)
}

func (m *mockStore) RecordFeedback(ctx context.Context, vote model.FeedbackVote) error {
	args := m.Called(ctx, vote)
	return args.Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
