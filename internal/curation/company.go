package curation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/disclosure-dashboard/internal/model"
)

// AddCompanyResult reports a newly added placeholder.
type AddCompanyResult struct {
	Message string                `json:"message"`
	Record  *model.EmissionRecord `json:"record,omitempty"`
}

// AddCompany creates an empty dashboard row for a company and year. It fails
// with KindConflict when any record for the pair already exists.
func (s *Service) AddCompany(ctx context.Context, req AddCompanyRequest) (*AddCompanyResult, error) {
	if !s.authorized(req.SecretKey) {
		return nil, unauthorized()
	}
	company := NormalizeCompany(req.CompanyName)
	if verr := validateCompanyYear(company, req.Year); verr != nil {
		return nil, verr
	}

	rec, err := s.store.AddPlaceholder(ctx, company, req.Year)
	if err != nil {
		return nil, persistence("Failed to add company.", err)
	}
	if rec == nil {
		return nil, conflict("Company '%s' for year %d already exists.", company, req.Year)
	}

	zap.L().Info("curation: added company",
		zap.String("company", company),
		zap.Int("year", req.Year),
		zap.Int64("id", rec.ID),
	)
	return &AddCompanyResult{
		Message: fmt.Sprintf("Successfully added '%s' to the dashboard.", company),
		Record:  rec,
	}, nil
}
