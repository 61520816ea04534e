package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPruneImports(t *testing.T) {
	now := time.Now()
	qc := &QuestionController{imports: map[string]*importProgress{
		"finished-stale": {Done: true, started: now.Add(-importTTL - time.Minute)},
		"finished-fresh": {Done: true, started: now.Add(-time.Minute)},
		"running-stale":  {started: now.Add(-importTTL - time.Minute)},
	}}

	qc.pruneImports(now)

	assert.NotContains(t, qc.imports, "finished-stale")
	assert.Contains(t, qc.imports, "finished-fresh")
	// A still-running import is never evicted, however old.
	assert.Contains(t, qc.imports, "running-stale")
}
