package controllers

import (
	"log"
	"strconv"
	"sync"
	"time"

	"carabin/backend/config"
	"carabin/backend/importer"
	"carabin/backend/models"
	"carabin/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// importTTL bounds how long a finished import stays pollable.
const importTTL = time.Hour

// importProgress tracks one background bulk import.
type importProgress struct {
	Total   int    `json:"total"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Done    bool   `json:"done"`
	Error   string `json:"error,omitempty"`

	started time.Time
}

type QuestionController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Logger *log.Logger

	mu      sync.Mutex
	imports map[string]*importProgress
}

func NewQuestionController(db *gorm.DB, cfg *config.Config, logger *log.Logger) *QuestionController {
	return &QuestionController{
		DB:      db,
		Cfg:     cfg,
		Logger:  logger,
		imports: make(map[string]*importProgress),
	}
}

type QuestionInput struct {
	LectureID      uint   `json:"lecture_id" validate:"required"`
	Type           string `json:"type" validate:"required,oneof=qcm qroc cas_qcm cas_qroc"`
	Source         string `json:"source"`
	CaseText       string `json:"case_text"`
	Text           string `json:"text" validate:"required"`
	OptionA        string `json:"option_a"`
	OptionB        string `json:"option_b"`
	OptionC        string `json:"option_c"`
	OptionD        string `json:"option_d"`
	OptionE        string `json:"option_e"`
	CorrectAnswers string `json:"correct_answers"`
	Answer         string `json:"answer"`
	Rappel         string `json:"rappel"`
	Explanation    string `json:"explanation"`
	ImageURL       string `json:"image_url"`
}

func (qc *QuestionController) CreateQuestion(c *fiber.Ctx) error {
	var input QuestionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationErrors(err))
	}

	var lecture models.Lecture
	if err := qc.DB.First(&lecture, input.LectureID).Error; err != nil {
		return utils.NotFound(c, "Lecture not found")
	}

	question := models.Question{
		LectureID:   input.LectureID,
		Type:        input.Type,
		Source:      input.Source,
		CaseText:    input.CaseText,
		Text:        input.Text,
		OptionA:     input.OptionA,
		OptionB:     input.OptionB,
		OptionC:     input.OptionC,
		OptionD:     input.OptionD,
		OptionE:     input.OptionE,
		Answer:      input.Answer,
		Rappel:      input.Rappel,
		Explanation: input.Explanation,
		ImageURL:    input.ImageURL,
		Niveau:      lecture.Niveau,
		Semestre:    lecture.Semestre,
	}
	if question.IsQCM() {
		letters := importer.ParseAnswerLetters(input.CorrectAnswers)
		if len(letters) == 0 {
			return utils.BadRequest(c, "QCM question needs at least one answer letter A-E")
		}
		for _, letter := range letters {
			if question.Option(letter) == "" {
				return utils.BadRequest(c, "Answer letter "+letter+" has no matching option")
			}
		}
		question.CorrectAnswers = joinLetters(letters)
	} else if question.Answer == "" {
		return utils.BadRequest(c, "QROC question needs an answer")
	}

	if err := qc.DB.Create(&question).Error; err != nil {
		return utils.InternalServerError(c, "Could not create question")
	}
	return utils.Created(c, question)
}

func joinLetters(letters []string) string {
	out := ""
	for i, l := range letters {
		if i > 0 {
			out += ","
		}
		out += l
	}
	return out
}

func (qc *QuestionController) UpdateQuestion(c *fiber.Ctx) error {
	questionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question ID")
	}

	var question models.Question
	if err := qc.DB.First(&question, questionID).Error; err != nil {
		return utils.NotFound(c, "Question not found")
	}

	var fields map[string]interface{}
	if err := c.BodyParser(&fields); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	allowed := map[string]string{
		"source": "source", "case_text": "case_text", "text": "text",
		"option_a": "option_a", "option_b": "option_b", "option_c": "option_c",
		"option_d": "option_d", "option_e": "option_e",
		"correct_answers": "correct_answers", "answer": "answer",
		"rappel": "rappel", "explanation": "explanation", "image_url": "image_url",
	}
	updates := make(map[string]interface{})
	for key, column := range allowed {
		if v, ok := fields[key]; ok {
			updates[column] = v
		}
	}
	if len(updates) == 0 {
		return utils.BadRequest(c, "Nothing to update")
	}

	if err := qc.DB.Model(&question).Updates(updates).Error; err != nil {
		return utils.InternalServerError(c, "Could not update question")
	}
	return utils.Success(c, fiber.StatusOK, question)
}

func (qc *QuestionController) DeleteQuestion(c *fiber.Ctx) error {
	questionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question ID")
	}
	if err := qc.DB.Delete(&models.Question{}, questionID).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete question")
	}
	return utils.NoContent(c)
}

// ImportQuestions godoc
// @Summary Bulk import a question-bank spreadsheet
// @Description Classifies the rows, persists the good ones in the background and returns a session token for progress polling
// @Tags questions
// @Accept mpfd
// @Produce json
// @Param file formData file true "xlsx or csv question bank"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /questions/import [post]
func (qc *QuestionController) ImportQuestions(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequest(c, "Missing file upload")
	}
	reader, err := openUpload(fh, qc.Cfg)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	sheets, err := importer.ReadWorkbook(fh.Filename, reader)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	result := importer.Classify(sheets)

	session := uuid.NewString()
	progress := &importProgress{Total: len(result.Good), started: time.Now()}
	qc.mu.Lock()
	qc.pruneImports(time.Now())
	qc.imports[session] = progress
	qc.mu.Unlock()

	go qc.persist(session, result)

	var badRows []fiber.Map
	for _, bad := range result.Bad {
		badRows = append(badRows, fiber.Map{
			"sheet":  bad.Sheet,
			"row":    bad.Number,
			"reason": bad.Reason,
		})
	}
	return utils.Success(c, fiber.StatusAccepted, fiber.Map{
		"session":  session,
		"good":     len(result.Good),
		"bad":      len(result.Bad),
		"bad_rows": badRows,
	})
}

// pruneImports evicts finished sessions past their TTL. Running imports are
// never evicted. Callers hold qc.mu.
func (qc *QuestionController) pruneImports(now time.Time) {
	for session, p := range qc.imports {
		if p.Done && now.Sub(p.started) > importTTL {
			delete(qc.imports, session)
		}
	}
}

// persist writes good rows to the database, skipping questions that already
// exist with the exact same fields.
func (qc *QuestionController) persist(session string, result *importer.Result) {
	snapshot := func(mutate func(p *importProgress)) {
		qc.mu.Lock()
		if p := qc.imports[session]; p != nil {
			mutate(p)
		}
		qc.mu.Unlock()
	}

	lectures := make(map[string]uint)
	for _, good := range result.Good {
		lectureID, err := qc.lectureFor(good, lectures)
		if err != nil {
			qc.Logger.Printf("import %s: lecture lookup failed: %v", session, err)
			snapshot(func(p *importProgress) { p.Failed++ })
			continue
		}

		q := good.Question
		q.LectureID = lectureID

		if qc.existsIdentical(q) {
			snapshot(func(p *importProgress) { p.Skipped++ })
			continue
		}
		if err := qc.DB.Create(&q).Error; err != nil {
			qc.Logger.Printf("import %s: insert failed: %v", session, err)
			snapshot(func(p *importProgress) { p.Failed++ })
			continue
		}
		snapshot(func(p *importProgress) { p.Created++ })
	}
	snapshot(func(p *importProgress) { p.Done = true })
}

// lectureFor finds or creates the lecture a good row belongs to.
func (qc *QuestionController) lectureFor(good importer.GoodRow, cache map[string]uint) (uint, error) {
	key := good.Matiere + "|" + good.Cours + "|" + good.Question.Niveau
	if id, ok := cache[key]; ok {
		return id, nil
	}

	var lecture models.Lecture
	err := qc.DB.Where("matiere = ? AND title = ? AND niveau = ?",
		good.Matiere, good.Cours, good.Question.Niveau).First(&lecture).Error
	if err == gorm.ErrRecordNotFound {
		lecture = models.Lecture{
			Matiere:  good.Matiere,
			Title:    good.Cours,
			Niveau:   good.Question.Niveau,
			Semestre: good.Question.Semestre,
		}
		err = qc.DB.Create(&lecture).Error
	}
	if err != nil {
		return 0, err
	}
	cache[key] = lecture.ID
	return lecture.ID, nil
}

// existsIdentical checks the database for a field-by-field duplicate.
func (qc *QuestionController) existsIdentical(q models.Question) bool {
	var existing []models.Question
	qc.DB.Where("lecture_id = ? AND type = ? AND text = ?", q.LectureID, q.Type, q.Text).
		Find(&existing)

	for _, e := range existing {
		if e.CaseText == q.CaseText &&
			e.OptionA == q.OptionA && e.OptionB == q.OptionB && e.OptionC == q.OptionC &&
			e.OptionD == q.OptionD && e.OptionE == q.OptionE &&
			e.CorrectAnswers == q.CorrectAnswers && e.Answer == q.Answer &&
			e.Rappel == q.Rappel && e.Explanation == q.Explanation &&
			e.Source == q.Source {
			return true
		}
	}
	return false
}

// ImportProgress reports the state of a background import session.
func (qc *QuestionController) ImportProgress(c *fiber.Ctx) error {
	session := c.Query("session")
	if session == "" {
		return utils.BadRequest(c, "session parameter required")
	}

	qc.mu.Lock()
	progress, ok := qc.imports[session]
	var snap importProgress
	if ok {
		snap = *progress
	}
	qc.mu.Unlock()

	if !ok {
		return utils.NotFound(c, "Unknown import session")
	}
	return utils.Success(c, fiber.StatusOK, snap)
}
