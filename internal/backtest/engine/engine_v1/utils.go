package engine

import (
	"fmt"
	"path/filepath"
	"time"
)

// getResultFolder returns <results>/<start>_<end>/<run id> for one run.
func getResultFolder(resultsFolder string, start, end time.Time, runID string) string {
	timeRange := fmt.Sprintf("%s_%s", start.UTC().Format("20060102"), end.UTC().Format("20060102"))

	return filepath.Join(resultsFolder, timeRange, runID)
}

// symbolResolution is one primed (symbol, resolution) pair.
type symbolResolution struct {
	symbol     string
	resolution time.Duration
}
