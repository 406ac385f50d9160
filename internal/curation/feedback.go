package curation

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/disclosure-dashboard/internal/model"
	"github.com/sells-group/disclosure-dashboard/internal/store"
)

const feedbackMessage = "Feedback submitted successfully!"

// SubmitFeedback records a vote on one record. It is open to unauthenticated
// callers.
func (s *Service) SubmitFeedback(ctx context.Context, req FeedbackRequest) (string, error) {
	if req.DataID <= 0 {
		return "", badRequest("A valid dataId is required.")
	}
	if req.IsThumbUp == nil {
		return "", badRequest("isThumbUp is required.")
	}

	vote := model.FeedbackVote{
		DataID:    req.DataID,
		IsThumbUp: *req.IsThumbUp,
		Email:     strings.TrimSpace(req.Email),
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := s.store.RecordFeedback(ctx, vote); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", notFound("Record %d does not exist.", req.DataID)
		}
		return "", persistence("Failed to record feedback.", err)
	}

	zap.L().Debug("curation: feedback recorded",
		zap.Int64("data_id", vote.DataID),
		zap.Bool("thumb_up", vote.IsThumbUp),
	)
	return feedbackMessage, nil
}
