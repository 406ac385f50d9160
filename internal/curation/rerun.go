package curation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/disclosure-dashboard/internal/model"
	"github.com/sells-group/disclosure-dashboard/internal/store"
	"github.com/sells-group/disclosure-dashboard/pkg/analyzer"
)

// Skip reasons.
const (
	reasonUnclassified = "unclassified question"
	reasonNotRequested = "data point was not requested"
	reasonDuplicate    = "duplicate result for data point"
	reasonInsertFailed = "insert failed"
)

// Rerun replaces the selected data points for a company and year with fresh
// answers computed from the supplied document links. Existing records for the
// targets are deleted before the analysis service is called; a failing call
// leaves those data points empty until the next re-run.
func (s *Service) Rerun(ctx context.Context, req RerunRequest) (*Result, error) {
	if !s.authorized(req.SecretKey) {
		return nil, unauthorized()
	}
	targets, verr := req.normalize()
	if verr != nil {
		return nil, verr
	}

	runID := s.newRunID()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("company", req.CompanyName),
		zap.Int("year", req.Year),
	)

	labels := make([]string, len(targets))
	questions := make([]string, len(targets))
	for i, t := range targets {
		labels[i] = t.Label
		questions[i] = t.question(req.CompanyName, req.Year)
	}
	log.Info("curation: starting re-run",
		zap.Strings("data_points", labels),
		zap.Int("links", len(req.CustomLinks)),
	)

	deleted, err := s.store.DeleteDataPoints(ctx, req.CompanyName, req.Year, labels)
	if err != nil {
		return nil, persistence("Failed to clear existing data points.", err)
	}
	log.Info("curation: cleared existing data points", zap.Int64("deleted", deleted))

	results, err := s.analyzer.Analyze(ctx, analyzer.Request{
		PDFURLs:   req.CustomLinks,
		Questions: questions,
		Keywords:  model.UnionKeywords(questions),
	})
	if err != nil {
		log.Error("curation: analysis failed", zap.Error(err))
		return nil, upstream(err)
	}

	out := &Result{RunID: runID, Refreshed: []string{}}
	if len(results) == 0 {
		log.Info("curation: analysis returned no results")
		out.NoData = true
		out.Message = noDataMessage
		return out, nil
	}

	requested := make(map[string]bool, len(labels))
	for _, l := range labels {
		requested[l] = true
	}
	saved := make(map[string]bool, len(labels))

	for _, r := range results {
		label := model.Classify(r.Question)
		skip := func(reason string) {
			log.Warn("curation: skipping result",
				zap.String("question", r.Question),
				zap.String("label", label),
				zap.String("reason", reason),
			)
			out.Skipped = append(out.Skipped, Skipped{Question: r.Question, Label: label, Reason: reason})
		}

		switch {
		case label == model.LabelUnknown:
			skip(reasonUnclassified)
			continue
		case !requested[label]:
			skip(reasonNotRequested)
			continue
		case saved[label]:
			skip(reasonDuplicate)
			continue
		}

		if _, err := s.persistResult(ctx, log, req.CompanyName, req.Year, label, r); err != nil {
			log.Error("curation: failed to save result", zap.String("label", label), zap.Error(err))
			skip(reasonInsertFailed)
			continue
		}
		saved[label] = true
		out.Refreshed = append(out.Refreshed, label)
	}

	out.Message = refreshMessage(req.CompanyName, req.Year, out.Refreshed)
	log.Info("curation: re-run complete",
		zap.Strings("refreshed", out.Refreshed),
		zap.Int("skipped", len(out.Skipped)),
	)
	return out, nil
}

// RerunDataPoint re-runs a single existing data point against the documents it
// was originally computed from.
func (s *Service) RerunDataPoint(ctx context.Context, req RerunDataPointRequest) (*Result, error) {
	if !s.authorized(req.SecretKey) {
		return nil, unauthorized()
	}
	company := NormalizeCompany(req.CompanyName)
	if verr := validateCompanyYear(company, req.Year); verr != nil {
		return nil, verr
	}
	label, verr := canonicalLabel(req.DataPointType)
	if verr != nil {
		return nil, verr
	}

	runID := s.newRunID()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("company", company),
		zap.Int("year", req.Year),
		zap.String("label", label),
	)

	existing, err := s.store.FindRecord(ctx, company, req.Year, label)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("No %s record exists for '%s' in %d.", label, company, req.Year)
		}
		return nil, persistence("Failed to load the existing record.", err)
	}
	if len(existing.SourceDocuments) == 0 {
		return nil, badRequest("The %s record for '%s' in %d has no source documents; re-run it with links instead.", label, company, req.Year)
	}
	docs := append([]string(nil), existing.SourceDocuments...)

	if _, err := s.store.DeleteDataPoints(ctx, company, req.Year, []string{label}); err != nil {
		return nil, persistence("Failed to clear the existing record.", err)
	}
	log.Info("curation: cleared data point", zap.Int64("previous_id", existing.ID))

	question := Target{Label: label, Question: req.Question}.question(company, req.Year)
	results, err := s.analyzer.Analyze(ctx, analyzer.Request{
		PDFURLs:   docs,
		Questions: []string{question},
		Keywords:  model.DeriveKeywords(question),
	})
	if err != nil {
		log.Error("curation: analysis failed", zap.Error(err))
		return nil, upstream(err)
	}
	if len(results) == 0 {
		return nil, &Error{Kind: KindUpstream, Message: fmt.Sprintf("Analysis returned no result for %s.", label)}
	}

	if _, err := s.persistResult(ctx, log, company, req.Year, label, results[0]); err != nil {
		log.Error("curation: failed to save result", zap.Error(err))
		return nil, persistence(fmt.Sprintf("Failed to save the new %s record.", label), err)
	}

	return &Result{
		RunID:     runID,
		Message:   refreshMessage(company, req.Year, []string{label}),
		Refreshed: []string{label},
	}, nil
}

// persistResult inserts one analysis result under label, then its evidence.
// An evidence failure is logged and does not undo the record.
func (s *Service) persistResult(ctx context.Context, log *zap.Logger, company string, year int, label string, r analyzer.Result) (*model.EmissionRecord, error) {
	rec, err := s.store.InsertRecord(ctx, model.EmissionRecord{
		CompanyName:     company,
		Year:            year,
		DataPointType:   label,
		FinalAnswer:     r.Summary.FinalAnswer,
		Explanation:     r.Summary.Explanation,
		Discrepancy:     r.Summary.Discrepancy,
		SourceDocuments: r.SourceDocuments,
	})
	if err != nil {
		return nil, err
	}

	if len(r.Evidence) == 0 {
		return rec, nil
	}
	evidence := make([]model.EvidenceRecord, len(r.Evidence))
	for i, e := range r.Evidence {
		evidence[i] = model.EvidenceRecord{
			DataID:       rec.ID,
			Answer:       e.Answer,
			Explanation:  e.Explanation,
			Quotes:       e.Quotes,
			PageNumber:   e.PageNumber,
			DocumentName: e.DocumentName,
		}
	}
	if _, err := s.store.InsertEvidence(ctx, rec.ID, evidence); err != nil {
		log.Warn("curation: failed to save evidence",
			zap.String("label", label),
			zap.Int64("data_id", rec.ID),
			zap.Error(err),
		)
		return rec, nil
	}
	rec.Evidence = evidence
	return rec, nil
}

func refreshMessage(company string, year int, refreshed []string) string {
	if len(refreshed) == 0 {
		return fmt.Sprintf("Analysis for '%s' (%d) finished, but none of the results could be saved.", company, year)
	}
	return fmt.Sprintf("Successfully re-ran %s for '%s' (%d).", strings.Join(refreshed, ", "), company, year)
}
