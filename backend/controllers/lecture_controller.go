package controllers

import (
	"strconv"
	"time"

	"carabin/backend/config"
	"carabin/backend/middleware"
	"carabin/backend/models"
	"carabin/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LectureController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewLectureController(db *gorm.DB, cfg *config.Config) *LectureController {
	return &LectureController{DB: db, Cfg: cfg}
}

// ListLectures godoc
// @Summary List lectures visible to the student
// @Description Filters by the user's niveau/semestre unless overridden by query parameters
// @Tags lectures
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lectures [get]
func (lc *LectureController) ListLectures(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)

	niveau := c.Query("niveau")
	semestre := c.Query("semestre")
	if claims.Role == models.RoleStudent {
		// Students only see content for their own niveau.
		var user models.User
		if err := lc.DB.First(&user, claims.UserID).Error; err == nil {
			niveau = user.Niveau
			if semestre == "" {
				semestre = user.Semestre
			}
		}
	}

	query := lc.DB.Model(&models.Lecture{})
	if niveau != "" {
		query = query.Where("niveau = ?", niveau)
	}
	if semestre != "" {
		query = query.Where("semestre = ? OR semestre = ''", semestre)
	}
	if matiere := c.Query("matiere"); matiere != "" {
		query = query.Where("matiere ILIKE ?", "%"+matiere+"%")
	}

	var lectures []models.Lecture
	if err := query.Order("matiere, title").Find(&lectures).Error; err != nil {
		return utils.InternalServerError(c, "Could not query lectures")
	}

	var result []fiber.Map
	for _, lecture := range lectures {
		var questionCount int64
		lc.DB.Model(&models.Question{}).Where("lecture_id = ?", lecture.ID).Count(&questionCount)

		var progress models.UserLectureProgress
		lc.DB.Where("user_id = ? AND lecture_id = ?", claims.UserID, lecture.ID).First(&progress)

		result = append(result, fiber.Map{
			"id":          lecture.ID,
			"matiere":     lecture.Matiere,
			"title":       lecture.Title,
			"description": lecture.Description,
			"niveau":      lecture.Niveau,
			"semestre":    lecture.Semestre,
			"questions":   questionCount,
			"answered":    progress.QuestionsAnswered,
			"score":       progress.Score,
		})
	}
	return utils.Success(c, fiber.StatusOK, result)
}

// GetLecture returns a lecture with its questions.
func (lc *LectureController) GetLecture(c *fiber.Ctx) error {
	lectureID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lecture ID")
	}

	var lecture models.Lecture
	if err := lc.DB.Preload("Questions").First(&lecture, lectureID).Error; err != nil {
		return utils.NotFound(c, "Lecture not found")
	}
	return utils.Success(c, fiber.StatusOK, lecture)
}

type LectureInput struct {
	Matiere     string `json:"matiere" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Niveau      string `json:"niveau" validate:"required"`
	Semestre    string `json:"semestre"`
}

func (lc *LectureController) CreateLecture(c *fiber.Ctx) error {
	var input LectureInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationErrors(err))
	}

	lecture := models.Lecture{
		Matiere:     input.Matiere,
		Title:       input.Title,
		Description: input.Description,
		Niveau:      input.Niveau,
		Semestre:    input.Semestre,
	}
	if err := lc.DB.Create(&lecture).Error; err != nil {
		return utils.InternalServerError(c, "Could not create lecture")
	}
	return utils.Created(c, lecture)
}

func (lc *LectureController) UpdateLecture(c *fiber.Ctx) error {
	lectureID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lecture ID")
	}

	var lecture models.Lecture
	if err := lc.DB.First(&lecture, lectureID).Error; err != nil {
		return utils.NotFound(c, "Lecture not found")
	}

	var input LectureInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Matiere != "" {
		lecture.Matiere = input.Matiere
	}
	if input.Title != "" {
		lecture.Title = input.Title
	}
	if input.Description != "" {
		lecture.Description = input.Description
	}
	if input.Niveau != "" {
		lecture.Niveau = input.Niveau
	}
	if input.Semestre != "" {
		lecture.Semestre = input.Semestre
	}

	if err := lc.DB.Save(&lecture).Error; err != nil {
		return utils.InternalServerError(c, "Could not update lecture")
	}
	return utils.Success(c, fiber.StatusOK, lecture)
}

// DeleteLecture removes a lecture and its questions.
func (lc *LectureController) DeleteLecture(c *fiber.Ctx) error {
	lectureID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lecture ID")
	}

	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lecture_id = ?", lectureID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Lecture{}, lectureID).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not delete lecture")
	}
	return utils.NoContent(c)
}

// SubmitProgress records a student's answers for one lecture session.
func (lc *LectureController) SubmitProgress(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)

	lectureID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lecture ID")
	}

	var input struct {
		QuestionsAnswered int `json:"questions_answered"`
		CorrectAnswers    int `json:"correct_answers"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.QuestionsAnswered <= 0 || input.CorrectAnswers < 0 ||
		input.CorrectAnswers > input.QuestionsAnswered {
		return utils.BadRequest(c, "Invalid progress values")
	}

	var lecture models.Lecture
	if err := lc.DB.First(&lecture, lectureID).Error; err != nil {
		return utils.NotFound(c, "Lecture not found")
	}

	var progress models.UserLectureProgress
	err = lc.DB.Where("user_id = ? AND lecture_id = ?", claims.UserID, lectureID).First(&progress).Error
	if err != nil {
		progress = models.UserLectureProgress{
			UserID:    claims.UserID,
			LectureID: uint(lectureID),
		}
	}

	progress.QuestionsAnswered += input.QuestionsAnswered
	progress.CorrectAnswers += input.CorrectAnswers
	progress.Score = float64(progress.CorrectAnswers) / float64(progress.QuestionsAnswered) * 100
	progress.LastAccessed = time.Now().Format("2006-01-02 15:04:05")

	if err := lc.DB.Save(&progress).Error; err != nil {
		return utils.InternalServerError(c, "Could not save progress")
	}
	return utils.Success(c, fiber.StatusOK, progress)
}
