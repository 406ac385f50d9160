package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-dashboard/internal/curation"
	"github.com/sells-group/disclosure-dashboard/internal/model"
	"github.com/sells-group/disclosure-dashboard/internal/store"
	"github.com/sells-group/disclosure-dashboard/pkg/analyzer"
)

func TestEndToEnd_SQLite(t *testing.T) {
	ctx := context.Background()

	st := newSQLiteStore(t)
	analysis, calls := newEchoAnalysis(t)

	svc := curation.NewService(st, analyzer.NewClient(analysis.URL), "topsecret")
	h := NewRouter(st, svc, Options{})

	// Add a company, then the duplicate conflicts.
	rr := do(t, h, http.MethodPost, "/api/add-company", `{"companyName":"Acme","year":2023,"secretKey":"topsecret"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = do(t, h, http.MethodPost, "/api/add-company", `{"companyName":"Acme","year":2023,"secretKey":"topsecret"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	// Placeholder shows up as a row with no columns.
	rr = do(t, h, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var dash dashboardResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dash))
	assert.Equal(t, []string{"Acme"}, dash.Companies)
	assert.Empty(t, dash.Columns)

	// Re-run two data points against custom links.
	rr = do(t, h, http.MethodPost, "/api/rerun-with-links", `{
		"companyName": "Acme", "year": 2023, "secretKey": "topsecret",
		"customLinks": ["https://acme.example/esg-2023.pdf"],
		"targets": ["Scope 1", "Revenue"]
	}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res curation.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.ElementsMatch(t, []string{model.LabelRevenue, model.LabelScope1}, res.Refreshed)

	rr = do(t, h, http.MethodGet, "/api/dashboard", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dash))
	assert.Equal(t, []string{model.LabelRevenue, model.LabelScope1}, dash.Columns)
	require.Len(t, dash.Rows, 1)
	assert.Equal(t, "answer for Revenue", dash.Rows[0].Cells[0].Display)
	scope1 := dash.Rows[0].Cells[1].Record
	require.NotNil(t, scope1)
	require.Len(t, scope1.Evidence, 1)
	assert.Equal(t, 4, scope1.Evidence[0].PageNumber)

	// Vote on the Scope 1 record.
	for _, up := range []string{"true", "true", "true", "false"} {
		rr = do(t, h, http.MethodPost, "/api/submit-feedback", `{"dataId":`+itoa(scope1.ID)+`,"isThumbUp":`+up+`}`)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/api/records/"+itoa(scope1.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var detail recordResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	assert.Equal(t, 75, detail.Approval.Rating)
	assert.Equal(t, model.ApprovalHigh, detail.Approval.Category)

	// Single re-run replaces the record and resets its votes.
	rr = do(t, h, http.MethodPost, "/api/rerun", `{"companyName":"Acme","year":2023,"secretKey":"topsecret","dataPointType":"Scope 1"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rec, err := st.FindRecord(ctx, "Acme", 2023, model.LabelScope1)
	require.NoError(t, err)
	assert.NotEqual(t, scope1.ID, rec.ID)
	assert.Equal(t, model.NoVotes, rec.Approval().Rating)
	assert.Equal(t, []string{"https://acme.example/esg-2023.pdf"}, rec.SourceDocuments)

	// The old record is gone along with its feedback.
	rr = do(t, h, http.MethodGet, "/api/records/"+itoa(scope1.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// A wrong secret touches nothing.
	before := calls.Load()
	rr = do(t, h, http.MethodPost, "/api/rerun-with-links", `{
		"companyName": "Acme", "year": 2023, "secretKey": "guess",
		"customLinks": ["https://x/y.pdf"], "targets": ["Revenue"]
	}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, before, calls.Load())
	_, err = st.FindRecord(ctx, "Acme", 2023, model.LabelRevenue)
	assert.NoError(t, err)
}

func TestEndToEnd_SQLite_TargetLabelsAreCanonical(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteStore(t)
	analysis, _ := newEchoAnalysis(t)

	_, err := st.InsertRecord(ctx, model.EmissionRecord{
		CompanyName: "Acme", Year: 2023, DataPointType: model.LabelScope1, FinalAnswer: "old",
	})
	require.NoError(t, err)

	svc := curation.NewService(st, analyzer.NewClient(analysis.URL), "topsecret")
	h := NewRouter(st, svc, Options{})

	// Invented labels are refused before anything is deleted.
	rr := do(t, h, http.MethodPost, "/api/rerun-with-links", `{
		"companyName": "Acme", "year": 2023, "secretKey": "topsecret",
		"customLinks": ["https://acme.example/esg-2023.pdf"],
		"targets": ["scope 1", {"label": "Misc", "question": "unrelated question"}]
	}`)
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	rec, err := st.FindRecord(ctx, "Acme", 2023, model.LabelScope1)
	require.NoError(t, err)
	assert.Equal(t, "old", rec.FinalAnswer)

	// A lowercase label replaces the canonical row; an unclassifiable
	// question is skipped rather than saved.
	rr = do(t, h, http.MethodPost, "/api/rerun-with-links", `{
		"companyName": "Acme", "year": 2023, "secretKey": "topsecret",
		"customLinks": ["https://acme.example/esg-2023.pdf"],
		"targets": ["scope 1", {"label": "Scope 3", "question": "unrelated question"}]
	}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res curation.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, []string{model.LabelScope1}, res.Refreshed)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, model.LabelUnknown, res.Skipped[0].Label)

	rr = do(t, h, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var dash dashboardResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dash))
	assert.Equal(t, []string{model.LabelScope1}, dash.Columns)
	require.Len(t, dash.Rows, 1)
	assert.Equal(t, "answer for Scope 1", dash.Rows[0].Cells[0].Display)
}

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// newEchoAnalysis answers every question with "answer for <label>".
func newEchoAnalysis(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req analyzer.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		results := make([]analyzer.Result, 0, len(req.Questions))
		for _, q := range req.Questions {
			results = append(results, analyzer.Result{
				Question:        q,
				Summary:         analyzer.Summary{FinalAnswer: "answer for " + model.Classify(q), Discrepancy: "None"},
				SourceDocuments: req.PDFURLs,
				Evidence:        []analyzer.Evidence{{Answer: "42", DocumentName: req.PDFURLs[0], PageNumber: 4}},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(results)
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
