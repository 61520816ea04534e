package controllers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"carabin/backend/config"
	"carabin/backend/events"
	"carabin/backend/importer"
	"carabin/backend/middleware"
	"carabin/backend/models"
	"carabin/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"
)

// uploadTTL bounds how long a classification stays downloadable.
const uploadTTL = time.Hour

type uploadEntry struct {
	result  *importer.Result
	created time.Time
}

// ValidationController owns the classify-only uploads and the asynchronous
// AI validation jobs.
type ValidationController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Hub    *events.Hub
	Logger *log.Logger

	mu      sync.Mutex
	uploads map[string]uploadEntry // session token -> last classification
}

func NewValidationController(db *gorm.DB, cfg *config.Config, hub *events.Hub, logger *log.Logger) *ValidationController {
	return &ValidationController{
		DB:      db,
		Cfg:     cfg,
		Hub:     hub,
		Logger:  logger,
		uploads: make(map[string]uploadEntry),
	}
}

// pruneUploads drops expired sessions. Callers hold vc.mu.
func (vc *ValidationController) pruneUploads(now time.Time) {
	for session, entry := range vc.uploads {
		if now.Sub(entry.created) > uploadTTL {
			delete(vc.uploads, session)
		}
	}
}

// ValidateUpload godoc
// @Summary Validate a question-bank spreadsheet without importing it
// @Description Classifies every row and keeps the result for report and bad-rows downloads
// @Tags validation
// @Accept mpfd
// @Produce json
// @Param file formData file true "xlsx or csv question bank"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /validation [post]
func (vc *ValidationController) ValidateUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequest(c, "Missing file upload")
	}
	reader, err := openUpload(fh, vc.Cfg)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	sheets, err := importer.ReadWorkbook(fh.Filename, reader)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	result := importer.Classify(sheets)

	session := uuid.NewString()
	vc.mu.Lock()
	vc.pruneUploads(time.Now())
	vc.uploads[session] = uploadEntry{result: result, created: time.Now()}
	vc.mu.Unlock()

	var sheetSummaries []fiber.Map
	for _, s := range result.Sheets {
		sheetSummaries = append(sheetSummaries, fiber.Map{
			"name": s.Name, "kind": s.Kind, "good": s.Good, "bad": s.Bad,
		})
	}
	var badRows []fiber.Map
	for _, bad := range result.Bad {
		badRows = append(badRows, fiber.Map{
			"sheet": bad.Sheet, "row": bad.Number, "reason": bad.Reason,
		})
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"session":  session,
		"good":     len(result.Good),
		"bad":      len(result.Bad),
		"sheets":   sheetSummaries,
		"bad_rows": badRows,
	})
}

func (vc *ValidationController) resultFor(c *fiber.Ctx) (*importer.Result, error) {
	session := c.Query("session")
	if session == "" {
		return nil, errors.New("session parameter required")
	}
	vc.mu.Lock()
	vc.pruneUploads(time.Now())
	entry, ok := vc.uploads[session]
	vc.mu.Unlock()
	if !ok {
		return nil, errors.New("unknown validation session")
	}
	return entry.result, nil
}

// Report streams the text report of a previous validation upload.
func (vc *ValidationController) Report(c *fiber.Ctx) error {
	result, err := vc.resultFor(c)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="rapport-validation.txt"`)
	return c.SendString(importer.TextReport(result))
}

// BadRows streams the rejected rows of a previous upload as an xlsx file.
func (vc *ValidationController) BadRows(c *fiber.Ctx) error {
	result, err := vc.resultFor(c)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	f, err := importer.BadRowsWorkbook(result)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return utils.InternalServerError(c, "Could not build workbook")
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="lignes-rejetees.xlsx"`)
	return c.Send(buf.Bytes())
}

// GoodRows streams the accepted rows, re-serialized with canonical headers.
func (vc *ValidationController) GoodRows(c *fiber.Ctx) error {
	result, err := vc.resultFor(c)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	f, err := importer.WriteWorkbook(result.Good)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return utils.InternalServerError(c, "Could not build workbook")
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="lignes-valides.xlsx"`)
	return c.Send(buf.Bytes())
}

// CreateJob queues an AI validation job for the questions of one lecture.
func (vc *ValidationController) CreateJob(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)

	var input struct {
		LectureID uint `json:"lecture_id"`
	}
	if err := c.BodyParser(&input); err != nil || input.LectureID == 0 {
		return utils.BadRequest(c, "lecture_id required")
	}

	var lecture models.Lecture
	if err := vc.DB.First(&lecture, input.LectureID).Error; err != nil {
		return utils.NotFound(c, "Lecture not found")
	}

	job := models.AiValidationJob{
		ID:        uuid.NewString(),
		UserID:    claims.UserID,
		LectureID: input.LectureID,
		FileName:  lecture.Matiere + " - " + lecture.Title,
		Status:    models.JobQueued,
	}
	if err := vc.DB.Create(&job).Error; err != nil {
		return utils.InternalServerError(c, "Could not create job")
	}
	return utils.Created(c, jobView(job))
}

// GetJob is the polling endpoint for job progress.
func (vc *ValidationController) GetJob(c *fiber.Ctx) error {
	var job models.AiValidationJob
	if err := vc.DB.First(&job, "id = ?", c.Params("id")).Error; err != nil {
		return utils.NotFound(c, "Job not found")
	}
	return utils.Success(c, fiber.StatusOK, jobView(job))
}

// DeleteJob cancels a job by removing its row; the runner notices on its
// next progress write.
func (vc *ValidationController) DeleteJob(c *fiber.Ctx) error {
	res := vc.DB.Delete(&models.AiValidationJob{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		return utils.InternalServerError(c, "Could not delete job")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Job not found")
	}
	return utils.NoContent(c)
}

func jobView(job models.AiValidationJob) fiber.Map {
	return fiber.Map{
		"id":        job.ID,
		"status":    job.Status,
		"progress":  job.Progress(),
		"processed": job.ProcessedItems,
		"total":     job.TotalItems,
		"fixed":     job.FixedItems,
		"message":   job.Message,
		"file_name": job.FileName,
	}
}

// StreamJob pushes job progress over Server-Sent Events. Hub broadcasts
// arrive as the runner works; a one-second poll of the job row backs them
// up and detects cancellation.
func (vc *ValidationController) StreamJob(c *fiber.Ctx) error {
	jobID := c.Params("id")

	var job models.AiValidationJob
	if err := vc.DB.First(&job, "id = ?", jobID).Error; err != nil {
		return utils.NotFound(c, "Job not found")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	db := vc.DB
	hub := vc.Hub
	logger := vc.Logger

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ch := hub.Subscribe(jobID)
		defer hub.Unsubscribe(jobID, ch)

		last := events.JobEvent{
			JobID:     job.ID,
			Status:    job.Status,
			Progress:  job.Progress(),
			Processed: job.ProcessedItems,
			Total:     job.TotalItems,
			Message:   job.Message,
		}
		if err := writeSSE(w, last); err != nil {
			return
		}
		if terminalStatus(last.Status) {
			return
		}

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				last = event
				if err := writeSSE(w, event); err != nil {
					return
				}
				if terminalStatus(event.Status) {
					return
				}

			case <-ticker.C:
				// Polling fallback, also catches row deletion. The tick
				// always writes, so a dead connection surfaces here as a
				// write error instead of the stream lingering forever.
				var current models.AiValidationJob
				if err := db.First(&current, "id = ?", jobID).Error; err != nil {
					event := last
					event.Status = "canceled"
					if err := writeSSE(w, event); err != nil {
						logger.Printf("sse write failed for job %s: %v", jobID, err)
					}
					return
				}
				last = events.JobEvent{
					JobID:     current.ID,
					Status:    current.Status,
					Progress:  current.Progress(),
					Processed: current.ProcessedItems,
					Total:     current.TotalItems,
					Message:   current.Message,
				}
				if err := writeSSE(w, last); err != nil {
					return
				}
				if terminalStatus(current.Status) {
					return
				}
			}
		}
	}))
	return nil
}

// terminalStatus reports whether a job can no longer change.
func terminalStatus(status string) bool {
	return status == models.JobCompleted || status == models.JobFailed
}

func writeSSE(w *bufio.Writer, event events.JobEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
