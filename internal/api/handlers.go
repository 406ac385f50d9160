package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-dashboard/internal/curation"
	"github.com/sells-group/disclosure-dashboard/internal/dashboard"
	"github.com/sells-group/disclosure-dashboard/internal/export"
	"github.com/sells-group/disclosure-dashboard/internal/model"
	"github.com/sells-group/disclosure-dashboard/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type dashboardResponse struct {
	Order     store.Order      `json:"order"`
	Companies []string         `json:"companies"`
	Years     map[string][]int `json:"years"`
	Columns   []string         `json:"columns"`
	Rows      []dashboard.Row  `json:"rows"`
}

type recordResponse struct {
	Record   *model.EmissionRecord `json:"record"`
	Approval model.Approval        `json:"approval"`
}

type addCompanyResponse struct {
	Message string                `json:"message"`
	Record  *model.EmissionRecord `json:"record,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.healthTimeout)
	defer cancel()

	if err := s.reader.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadView parses the order query parameter and reconciles the records.
func (s *Server) loadView(w http.ResponseWriter, r *http.Request) (*dashboard.View, store.Order, bool) {
	order, err := store.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		writeBadRequest(w, "order must be alphabetical or recent")
		return nil, "", false
	}
	view, err := dashboard.Load(r.Context(), s.reader, order)
	if err != nil {
		writeError(w, r, err)
		return nil, "", false
	}
	return view, order, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, order, ok := s.loadView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Order:     order,
		Companies: view.Companies,
		Years:     view.Years,
		Columns:   view.Columns,
		Rows:      view.Rows(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	view, _, ok := s.loadView(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, view); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="dashboard.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zap.L().Error("api: write export",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "Record id must be a positive integer.")
		return
	}

	rec, err := s.reader.GetRecord(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Error: "Record not found.",
				Code:  string(curation.KindNotFound),
			})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Record: rec, Approval: rec.Approval()})
}

func (s *Server) handleAddCompany(w http.ResponseWriter, r *http.Request) {
	var req curation.AddCompanyRequest
	if !s.decodeAuthorized(w, r, &req) {
		return
	}
	res, err := s.curator.AddCompany(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addCompanyResponse{Message: res.Message, Record: res.Record})
}

func (s *Server) handleRerunWithLinks(w http.ResponseWriter, r *http.Request) {
	var req curation.RerunRequest
	if !s.decodeAuthorized(w, r, &req) {
		return
	}
	res, err := s.curator.Rerun(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRerunDataPoint(w http.ResponseWriter, r *http.Request) {
	var req curation.RerunDataPointRequest
	if !s.decodeAuthorized(w, r, &req) {
		return
	}
	res, err := s.curator.RerunDataPoint(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req curation.FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := s.curator.SubmitFeedback(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}
