package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"carabin/backend/events"
	"carabin/backend/importer"
	"carabin/backend/models"

	"gorm.io/gorm"
)

const systemPrompt = `Tu es un relecteur de banques de questions de medecine (QCM/QROC).
Pour chaque question, verifie que les lettres de reponse correspondent aux bonnes options.
Reponds uniquement avec un tableau JSON: [{"id": <id>, "ok": <bool>, "correct_answers": "<lettres>", "note": "<courte justification>"}].`

// verdict is one model answer for one question.
type verdict struct {
	ID             uint   `json:"id"`
	OK             bool   `json:"ok"`
	CorrectAnswers string `json:"correct_answers"`
	Note           string `json:"note"`
}

// Runner drains the validation-job queue. A single goroutine claims the
// oldest queued job, walks its questions in batches and reports progress
// through the jobs table and the SSE hub. Cancellation is a row deletion:
// when the progress update touches zero rows, the job is gone and the
// runner abandons it.
type Runner struct {
	db     *gorm.DB
	client ChatClient
	hub    *events.Hub
	logger *log.Logger

	Interval  time.Duration
	BatchSize int
}

func NewRunner(db *gorm.DB, client ChatClient, hub *events.Hub, logger *log.Logger) *Runner {
	return &Runner{
		db:        db,
		client:    client,
		hub:       hub,
		logger:    logger,
		Interval:  2 * time.Second,
		BatchSize: 10,
	}
}

// Start runs the polling loop until ctx is canceled.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := r.claim()
			if err != nil {
				r.logger.Printf("job claim failed: %v", err)
				continue
			}
			if job == nil {
				continue
			}
			r.process(ctx, job)
		}
	}
}

// claim picks the oldest queued job and flips it to processing. The status
// guard on the UPDATE keeps two runners from claiming the same job.
func (r *Runner) claim() (*models.AiValidationJob, error) {
	var job models.AiValidationJob
	err := r.db.Where("status = ?", models.JobQueued).Order("created_at").First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now()
	res := r.db.Model(&models.AiValidationJob{}).
		Where("id = ? AND status = ?", job.ID, models.JobQueued).
		Updates(map[string]interface{}{"status": models.JobProcessing, "started_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil // someone else got it, or it was deleted
	}

	job.Status = models.JobProcessing
	job.StartedAt = &now
	return &job, nil
}

func (r *Runner) process(ctx context.Context, job *models.AiValidationJob) {
	var questions []models.Question
	if err := r.db.Where("lecture_id = ?", job.LectureID).Order("id").Find(&questions).Error; err != nil {
		r.fail(job, fmt.Sprintf("chargement des questions: %v", err))
		return
	}
	if len(questions) == 0 {
		r.fail(job, "aucune question pour ce cours")
		return
	}

	job.TotalItems = len(questions)
	if !r.update(job, map[string]interface{}{"total_items": job.TotalItems}) {
		return
	}
	r.broadcastProgress(job)

	for start := 0; start < len(questions); start += r.BatchSize {
		end := start + r.BatchSize
		if end > len(questions) {
			end = len(questions)
		}
		batch := questions[start:end]

		verdicts, err := r.reviewBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.fail(job, fmt.Sprintf("validation IA: %v", err))
			return
		}
		job.FixedItems += r.applyVerdicts(batch, verdicts)

		job.ProcessedItems = end
		if !r.update(job, map[string]interface{}{
			"processed_items": job.ProcessedItems,
			"fixed_items":     job.FixedItems,
		}) {
			r.logger.Printf("job %s deleted, abandoning", job.ID)
			return
		}
		r.broadcastProgress(job)
	}

	now := time.Now()
	job.Status = models.JobCompleted
	job.FinishedAt = &now
	job.Message = fmt.Sprintf("%d questions verifiees, %d corrigees", job.TotalItems, job.FixedItems)
	r.update(job, map[string]interface{}{
		"status":      job.Status,
		"finished_at": now,
		"message":     job.Message,
	})
	r.broadcastProgress(job)
}

// reviewBatch asks the model to verify one batch of questions.
func (r *Runner) reviewBatch(ctx context.Context, batch []models.Question) ([]verdict, error) {
	content, err := r.client.ChatCompletion(ctx, systemPrompt, batchPrompt(batch))
	if err != nil {
		return nil, err
	}
	return parseVerdicts(content)
}

func batchPrompt(batch []models.Question) string {
	var b strings.Builder
	for _, q := range batch {
		fmt.Fprintf(&b, "id=%d type=%s\n", q.ID, q.Type)
		if q.CaseText != "" {
			fmt.Fprintf(&b, "cas: %s\n", q.CaseText)
		}
		fmt.Fprintf(&b, "question: %s\n", q.Text)
		if q.IsQCM() {
			for _, letter := range []string{"A", "B", "C", "D", "E"} {
				if opt := q.Option(letter); opt != "" {
					fmt.Fprintf(&b, "%s) %s\n", letter, opt)
				}
			}
			fmt.Fprintf(&b, "reponse actuelle: %s\n", q.CorrectAnswers)
		} else {
			fmt.Fprintf(&b, "reponse actuelle: %s\n", q.Answer)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parseVerdicts decodes the model output, tolerating markdown code fences.
func parseVerdicts(content string) ([]verdict, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	var verdicts []verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &verdicts); err != nil {
		return nil, fmt.Errorf("reponse du modele illisible: %w", err)
	}
	return verdicts, nil
}

// applyVerdicts corrects QCM answer letters the model rejected. Returns the
// number of fixed questions.
func (r *Runner) applyVerdicts(batch []models.Question, verdicts []verdict) int {
	byID := make(map[uint]models.Question, len(batch))
	for _, q := range batch {
		byID[q.ID] = q
	}

	fixed := 0
	for _, v := range verdicts {
		q, ok := byID[v.ID]
		if !ok || v.OK || !q.IsQCM() {
			continue
		}
		letters := importer.ParseAnswerLetters(v.CorrectAnswers)
		if len(letters) == 0 {
			continue
		}
		valid := true
		for _, letter := range letters {
			if q.Option(letter) == "" {
				valid = false
				break
			}
		}
		corrected := strings.Join(letters, ",")
		if !valid || corrected == q.CorrectAnswers {
			continue
		}
		if err := r.db.Model(&models.Question{}).Where("id = ?", q.ID).
			Update("correct_answers", corrected).Error; err != nil {
			r.logger.Printf("question %d fix failed: %v", q.ID, err)
			continue
		}
		fixed++
	}
	return fixed
}

// update writes job fields; false means the row is gone (canceled).
func (r *Runner) update(job *models.AiValidationJob, fields map[string]interface{}) bool {
	res := r.db.Model(&models.AiValidationJob{}).Where("id = ?", job.ID).Updates(fields)
	if res.Error != nil {
		r.logger.Printf("job %s update failed: %v", job.ID, res.Error)
		return false
	}
	return res.RowsAffected > 0
}

func (r *Runner) fail(job *models.AiValidationJob, message string) {
	now := time.Now()
	job.Status = models.JobFailed
	job.Message = message
	job.FinishedAt = &now
	r.update(job, map[string]interface{}{
		"status":      job.Status,
		"message":     message,
		"finished_at": now,
	})
	r.broadcastProgress(job)
}

func (r *Runner) broadcastProgress(job *models.AiValidationJob) {
	r.hub.Broadcast(events.JobEvent{
		JobID:     job.ID,
		Status:    job.Status,
		Progress:  job.Progress(),
		Processed: job.ProcessedItems,
		Total:     job.TotalItems,
		Message:   job.Message,
	})
}
