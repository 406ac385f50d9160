package model

import "time"

// EmissionRecord is one disclosed value for one company, year and data point.
type EmissionRecord struct {
	ID              int64            `json:"id"`
	CompanyName     string           `json:"company_name"`
	Year            int              `json:"year"`
	DataPointType   string           `json:"data_point_type"`
	FinalAnswer     string           `json:"final_answer,omitempty"`
	Explanation     string           `json:"explanation,omitempty"`
	Discrepancy     string           `json:"discrepancy,omitempty"`
	SourceDocuments []string         `json:"source_documents"`
	CreatedAt       time.Time        `json:"created_at"`
	ThumbsUpCount   int              `json:"thumbs_up_count"`
	ThumbsDownCount int              `json:"thumbs_down_count"`
	Evidence        []EvidenceRecord `json:"evidence,omitempty"`
}

// HasAnswer reports whether an extracted value is present.
func (r EmissionRecord) HasAnswer() bool {
	return r.FinalAnswer != ""
}

// HasDiscrepancy reports whether the extraction flagged conflicting sources.
// An empty value and the literal "None" both mean no conflict.
func (r EmissionRecord) HasDiscrepancy() bool {
	return r.Discrepancy != "" && r.Discrepancy != "None"
}

// Approval returns the derived approval rating for the record's votes.
func (r EmissionRecord) Approval() Approval {
	return NewApproval(r.ThumbsUpCount, r.ThumbsDownCount)
}

// EvidenceRecord is one citation backing an EmissionRecord. It is owned by
// the record referenced by DataID and is deleted with it.
type EvidenceRecord struct {
	ID           int64  `json:"id"`
	DataID       int64  `json:"data_id"`
	Answer       string `json:"answer"`
	Explanation  string `json:"explanation"`
	Quotes       string `json:"quotes"`
	PageNumber   int    `json:"page_number,omitempty"` // 0 = unknown
	DocumentName string `json:"document_name"`
}

// FeedbackVote is a single thumbs-up/down vote on a record.
type FeedbackVote struct {
	DataID    int64  `json:"data_id"`
	IsThumbUp bool   `json:"is_thumb_up"`
	Email     string `json:"email,omitempty"`
	Comment   string `json:"comment,omitempty"`
}
