package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary_CloneDoesNotShareLabels(t *testing.T) {
	var s Summary
	s.Add(MoveRecord{Outcome: OutcomeMoved, Classification: Classification{Type: FileTypeMedia, Kind: KindPhoto}})

	c := s.Clone()
	s.Add(MoveRecord{Outcome: OutcomeMoved, Classification: Classification{Type: FileTypeMedia, Kind: KindPhoto}})

	assert.Equal(t, 1, c.Moved)
	for _, n := range c.ByLabel {
		assert.Equal(t, 1, n)
	}
	assert.Nil(t, Summary{}.Clone().ByLabel)
}

func TestSummarize(t *testing.T) {
	records := []MoveRecord{
		{Outcome: OutcomeMoved, Classification: Classification{Type: FileTypePDF, Category: CategoryBankStatement}},
		{Outcome: OutcomeMoved, Classification: Classification{Type: FileTypeMedia, Kind: KindPhoto}},
		{Outcome: OutcomeMoved, Classification: Classification{Type: FileTypeMedia, Kind: KindPhoto}},
		{Outcome: OutcomeSkippedDuplicate},
		{Outcome: OutcomeSkippedExcluded},
		{Outcome: OutcomeSkippedUnknown},
		{Outcome: OutcomeFailed, Err: ErrVerification},
	}

	s := Summarize(records)
	assert.Equal(t, 3, s.Moved)
	assert.Equal(t, 3, s.Skipped())
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 7, s.Total())
	assert.True(t, s.HasFailures())
	assert.Equal(t, "moved 3, skipped 3, failed 1 (BankStatement: 1, Photo: 2)", s.String())
}

func TestSummary_DryRunLine(t *testing.T) {
	s := Summarize([]MoveRecord{
		{Outcome: OutcomeWouldMove, Classification: Classification{Type: FileTypeMedia, Kind: KindVideo}},
	})
	assert.False(t, s.HasFailures())
	assert.Equal(t, "would move 1, moved 0, skipped 0, failed 0 (Video: 1)", s.String())
}

func TestMoveRecord_MarshalJSON(t *testing.T) {
	r := MoveRecord{Source: "/tmp/a.pdf", Outcome: OutcomeFailed, Err: errors.New("boom")}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "boom", decoded["error"])
	assert.Equal(t, "failed", decoded["outcome"])
	assert.Equal(t, "/tmp/a.pdf", decoded["source"])
}
