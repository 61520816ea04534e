package controllers

import (
	"testing"
	"time"

	"carabin/backend/models"

	"github.com/stretchr/testify/assert"
)

func TestPruneUploads(t *testing.T) {
	now := time.Now()
	vc := &ValidationController{uploads: map[string]uploadEntry{
		"stale": {created: now.Add(-uploadTTL - time.Minute)},
		"fresh": {created: now.Add(-time.Minute)},
	}}

	vc.pruneUploads(now)

	assert.NotContains(t, vc.uploads, "stale")
	assert.Contains(t, vc.uploads, "fresh")
}

func TestTerminalStatus(t *testing.T) {
	assert.True(t, terminalStatus(models.JobCompleted))
	assert.True(t, terminalStatus(models.JobFailed))
	assert.False(t, terminalStatus(models.JobQueued))
	assert.False(t, terminalStatus(models.JobProcessing))
	assert.False(t, terminalStatus("canceled"))
}
