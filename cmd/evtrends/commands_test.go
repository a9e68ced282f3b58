package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evtrends/evtrends/internal/dataset"
	"github.com/evtrends/evtrends/internal/forecast"
	"github.com/evtrends/evtrends/internal/report"
)

func TestWriteArtifacts(t *testing.T) {
	var series dataset.Series
	for i := 0; i < 4; i++ {
		series = append(series, dataset.Record{
			County:  "San Juan",
			Date:    time.Date(2023, time.Month(i+2), 0, 0, 0, 0, 0, time.UTC),
			EVTotal: float64(10 + i),
		})
	}
	points := []forecast.Point{
		{Date: time.Date(2023, time.May, 31, 0, 0, 0, 0, time.UTC), Total: 14},
		{Date: time.Date(2023, time.June, 30, 0, 0, 0, 0, time.UTC), Total: 15},
	}
	r := report.Build("San Juan", series, points)

	dir := t.TempDir()
	paths, err := writeArtifacts(r, dir, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	want := []string{
		"San_Juan_forecast.csv",
		"San_Juan_forecast.xlsx",
		"San_Juan_forecast.png",
		"San_Juan_prediction.png",
		"San_Juan_summary.md",
	}
	require.Len(t, paths, len(want))
	for i, name := range want {
		assert.Equal(t, filepath.Join(dir, name), paths[i])
		info, err := os.Stat(paths[i])
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), name)
	}
}

func TestFileSafe(t *testing.T) {
	assert.Equal(t, "Walla_Walla", fileSafe("Walla Walla"))
	assert.Equal(t, "a_b", fileSafe("a/b"))
}
