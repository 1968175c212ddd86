package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/election-scraper/internal/entity"
)

func TestEncodeRun(t *testing.T) {
	ds := &entity.Dataset{
		Schema: []string{"Strana A", "Strana B"},
		Rows: []entity.OutputRow{
			{Code: "1", Name: "Obec", Counts: map[string]int{"Strana A": 5}},
		},
		Report: entity.RunReport{
			RunID: "run-1",
			Skipped: []entity.SkippedEntity{
				{Code: "2", Name: "Jiná", Reason: "timeout", SkippedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
			},
		},
	}

	run, err := encodeRun(ds)
	require.NoError(t, err)

	assert.JSONEq(t, `["Strana A","Strana B"]`, string(run.columns))
	require.Len(t, run.counts, 1)
	assert.JSONEq(t, `{"Strana A":5,"Strana B":0}`, string(run.counts[0]))

	var skipped []entity.SkippedEntity
	require.NoError(t, json.Unmarshal(run.skipped, &skipped))
	assert.Equal(t, ds.Report.Skipped, skipped)
}

func TestEncodeRunEmpty(t *testing.T) {
	run, err := encodeRun(&entity.Dataset{})
	require.NoError(t, err)

	assert.Equal(t, "[]", string(run.columns))
	assert.Equal(t, "[]", string(run.skipped))
	assert.Empty(t, run.counts)
}
