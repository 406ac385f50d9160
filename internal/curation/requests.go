package curation

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/disclosure-dashboard/internal/model"
)

// Target names one data point to re-run. Question is optional; when empty
// the question is derived from the label.
type Target struct {
	Label    string `json:"label"`
	Question string `json:"question,omitempty"`
}

// UnmarshalJSON accepts either a bare label string or a {label, question}
// object.
func (t *Target) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var label string
		if err := json.Unmarshal(b, &label); err != nil {
			return eris.Wrap(err, "target: decode label")
		}
		*t = Target{Label: label}
		return nil
	}
	type plain Target
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return eris.Wrap(err, "target: expected a label or {label, question}")
	}
	*t = Target(p)
	return nil
}

func (t Target) question(company string, year int) string {
	if q := strings.TrimSpace(t.Question); q != "" {
		return q
	}
	return model.DeriveQuestion(t.Label, company, year)
}

// RerunRequest re-runs the selected data points against custom document links.
type RerunRequest struct {
	CompanyName string   `json:"companyName"`
	Year        int      `json:"year"`
	SecretKey   string   `json:"secretKey"`
	CustomLinks []string `json:"customLinks"`
	Targets     []Target `json:"targets"`

	// DataPointsToRerun is the older name for Targets.
	DataPointsToRerun []Target `json:"dataPointsToRerun,omitempty"`
}

// RerunDataPointRequest re-runs one data point against its stored source documents.
type RerunDataPointRequest struct {
	CompanyName   string `json:"companyName"`
	Year          int    `json:"year"`
	SecretKey     string `json:"secretKey"`
	DataPointType string `json:"dataPointType"`
	Question      string `json:"question,omitempty"`
}

// AddCompanyRequest adds a placeholder row for a company and year.
type AddCompanyRequest struct {
	CompanyName string `json:"companyName"`
	Year        int    `json:"year"`
	SecretKey   string `json:"secretKey"`
}

// FeedbackRequest is a thumbs-up/down vote on one record. IsThumbUp is a
// pointer so a missing value can be told apart from false.
type FeedbackRequest struct {
	DataID    int64  `json:"dataId"`
	IsThumbUp *bool  `json:"isThumbUp"`
	Email     string `json:"email,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// NormalizeCompany trims and NFC-normalizes a company name so visually
// identical names group together.
func NormalizeCompany(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func validateCompanyYear(company string, year int) *Error {
	if company == "" {
		return badRequest("Company name is required.")
	}
	if year <= 0 {
		return badRequest("A valid year is required.")
	}
	return nil
}

// canonicalLabel maps a caller-supplied label onto the canonical label it
// names, ignoring case and spacing, so "scope 1" targets the stored "Scope 1"
// rows. Labels outside the canonical set are rejected.
func canonicalLabel(label string) (string, *Error) {
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return "", badRequest("Data point label must not be empty.")
	}
	for _, c := range model.CanonicalLabels() {
		if strings.EqualFold(label, c) {
			return c, nil
		}
	}
	return "", badRequest("%q is not a data point that can be re-run.", label)
}

// normalize validates the request and returns its de-duplicated targets.
func (r *RerunRequest) normalize() ([]Target, *Error) {
	r.CompanyName = NormalizeCompany(r.CompanyName)
	if err := validateCompanyYear(r.CompanyName, r.Year); err != nil {
		return nil, err
	}

	if len(r.CustomLinks) == 0 {
		return nil, badRequest("You must provide at least one custom link.")
	}
	links := make([]string, 0, len(r.CustomLinks))
	for _, l := range r.CustomLinks {
		l = strings.TrimSpace(l)
		if l == "" {
			return nil, badRequest("Custom links must be non-empty strings.")
		}
		links = append(links, l)
	}
	r.CustomLinks = links

	raw := r.Targets
	if len(raw) == 0 {
		raw = r.DataPointsToRerun
	}
	if len(raw) == 0 {
		return nil, badRequest("You must select at least one data point to re-run.")
	}

	seen := make(map[string]bool, len(raw))
	targets := make([]Target, 0, len(raw))
	for _, t := range raw {
		label, err := canonicalLabel(t.Label)
		if err != nil {
			return nil, err
		}
		t.Label = label
		if seen[t.Label] {
			continue
		}
		seen[t.Label] = true
		targets = append(targets, t)
	}
	return targets, nil
}
