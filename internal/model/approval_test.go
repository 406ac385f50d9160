package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewApproval(t *testing.T) {
	tests := []struct {
		name     string
		up, down int
		rating   int
		votes    int
		category ApprovalCategory
	}{
		{"no votes", 0, 0, NoVotes, 0, ApprovalNone},
		{"high boundary is inclusive", 3, 1, 75, 4, ApprovalHigh},
		{"all up", 5, 0, 100, 5, ApprovalHigh},
		{"medium boundary", 1, 1, 50, 2, ApprovalMedium},
		{"rounds half up", 2, 1, 67, 3, ApprovalMedium},
		{"low", 1, 3, 25, 4, ApprovalLow},
		{"all down", 0, 2, 0, 2, ApprovalLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewApproval(tt.up, tt.down)
			assert.Equal(t, tt.rating, a.Rating)
			assert.Equal(t, tt.votes, a.Votes)
			assert.Equal(t, tt.category, a.Category)
		})
	}
}

func TestEmissionRecord_Helpers(t *testing.T) {
	r := EmissionRecord{FinalAnswer: "12,000 tCO2e", Discrepancy: "None", ThumbsUpCount: 3, ThumbsDownCount: 1}
	assert.True(t, r.HasAnswer())
	assert.False(t, r.HasDiscrepancy())
	assert.Equal(t, 75, r.Approval().Rating)

	r.Discrepancy = "Report A says 12,000; report B says 11,500"
	assert.True(t, r.HasDiscrepancy())

	assert.False(t, EmissionRecord{}.HasAnswer())
	assert.False(t, EmissionRecord{}.HasDiscrepancy())
}
