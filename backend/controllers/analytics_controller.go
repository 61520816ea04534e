package controllers

import (
	"carabin/backend/config"
	"carabin/backend/models"
	"carabin/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/montanaflynn/stats"
	"gorm.io/gorm"
)

type AnalyticsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAnalyticsController(db *gorm.DB, cfg *config.Config) *AnalyticsController {
	return &AnalyticsController{DB: db, Cfg: cfg}
}

// Overview godoc
// @Summary Platform analytics for the admin dashboard
// @Description Counts plus score distribution (mean, median, p90) and the weakest lectures
// @Tags analytics
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /admin/analytics [get]
func (ac *AnalyticsController) Overview(c *fiber.Ctx) error {
	var totalUsers, subscribed, totalLectures, totalQuestions, pendingPayments int64
	ac.DB.Model(&models.User{}).Count(&totalUsers)
	ac.DB.Model(&models.User{}).Where("subscribed = true").Count(&subscribed)
	ac.DB.Model(&models.Lecture{}).Count(&totalLectures)
	ac.DB.Model(&models.Question{}).Count(&totalQuestions)
	ac.DB.Model(&models.Payment{}).Where("status = 'pending'").Count(&pendingPayments)

	var scores []float64
	ac.DB.Model(&models.UserLectureProgress{}).
		Where("questions_answered > 0").
		Pluck("score", &scores)

	scoreStats := fiber.Map{"count": len(scores)}
	if len(scores) > 0 {
		data := stats.Float64Data(scores)
		mean, _ := data.Mean()
		median, _ := data.Median()
		p90, _ := data.Percentile(90)
		scoreStats["mean"] = mean
		scoreStats["median"] = median
		scoreStats["p90"] = p90
	}

	type lectureRow struct {
		LectureID uint
		Matiere   string
		Title     string
		Attempts  int64
		AvgScore  float64
	}
	var weakest []lectureRow
	ac.DB.Model(&models.UserLectureProgress{}).
		Select("user_lecture_progresses.lecture_id, lectures.matiere, lectures.title, COUNT(*) as attempts, AVG(user_lecture_progresses.score) as avg_score").
		Joins("JOIN lectures ON lectures.id = user_lecture_progresses.lecture_id").
		Where("user_lecture_progresses.questions_answered > 0").
		Group("user_lecture_progresses.lecture_id, lectures.matiere, lectures.title").
		Order("avg_score ASC").
		Limit(10).
		Scan(&weakest)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"users":            totalUsers,
		"subscribed":       subscribed,
		"lectures":         totalLectures,
		"questions":        totalQuestions,
		"pending_payments": pendingPayments,
		"scores":           scoreStats,
		"weakest_lectures": weakest,
	})
}
