package models

import "time"

const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// AiValidationJob tracks one asynchronous AI-assisted question validation
// run. Progress is polled or streamed over SSE; deleting the row cancels
// the job.
type AiValidationJob struct {
	ID             string `gorm:"primaryKey"` // uuid
	UserID         uint   `gorm:"index;not null"`
	LectureID      uint   `gorm:"index;not null"`
	FileName       string
	Status         string `gorm:"index;default:queued"` // queued, processing, completed, failed
	TotalItems     int
	ProcessedItems int
	FixedItems     int
	Message        string
	CreatedAt      time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
}

// Progress returns the completion percentage, 0-100.
func (j AiValidationJob) Progress() int {
	if j.Status == JobCompleted {
		return 100
	}
	if j.TotalItems == 0 {
		return 0
	}
	return j.ProcessedItems * 100 / j.TotalItems
}
