package routes

import (
	"log"

	"carabin/backend/config"
	"carabin/backend/controllers"
	"carabin/backend/events"
	"carabin/backend/middleware"
	"carabin/backend/models"
	"carabin/backend/services/email"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, hub *events.Hub, mailer email.Service, logger *log.Logger) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	auth := middleware.AuthMiddleware(db, cfg)
	maintainer := middleware.RequireRole(models.RoleMaintainer)
	admin := middleware.RequireRole(models.RoleAdmin)

	app.Post("/api/auth/logout", auth, authController.Logout)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", auth, userController.GetProfile)
	app.Put("/api/user/profile", auth, userController.UpdateProfile)

	adminUsers := app.Group("/api/admin/users", auth, admin)
	adminUsers.Get("/", userController.ListUsers)
	adminUsers.Put("/:id", userController.UpdateUser)
	adminUsers.Delete("/:id", userController.DeleteUser)

	// Lecture routes
	lectureController := controllers.NewLectureController(db, cfg)
	lectures := app.Group("/api/lectures", auth)
	lectures.Get("/", lectureController.ListLectures)
	lectures.Get("/:id", lectureController.GetLecture)
	lectures.Post("/:id/progress", lectureController.SubmitProgress)

	adminLectures := app.Group("/api/admin/lectures", auth, maintainer)
	adminLectures.Post("/", lectureController.CreateLecture)
	adminLectures.Put("/:id", lectureController.UpdateLecture)
	adminLectures.Delete("/:id", lectureController.DeleteLecture)

	// Question routes
	questionController := controllers.NewQuestionController(db, cfg, logger)
	adminQuestions := app.Group("/api/admin/questions", auth, maintainer)
	adminQuestions.Post("/", questionController.CreateQuestion)
	adminQuestions.Put("/:id", questionController.UpdateQuestion)
	adminQuestions.Delete("/:id", questionController.DeleteQuestion)

	app.Post("/api/questions/import", auth, maintainer, questionController.ImportQuestions)
	app.Get("/api/questions/bulk-import-progress", auth, maintainer, questionController.ImportProgress)

	// Validation routes (classify-only uploads and AI jobs)
	validationController := controllers.NewValidationController(db, cfg, hub, logger)
	validation := app.Group("/api/validation", auth, maintainer)
	validation.Post("/", validationController.ValidateUpload)
	validation.Get("/report", validationController.Report)
	validation.Get("/bad-rows", validationController.BadRows)
	validation.Get("/good-rows", validationController.GoodRows)
	validation.Post("/jobs", validationController.CreateJob)
	validation.Get("/jobs/:id", validationController.GetJob)
	validation.Get("/jobs/:id/stream", validationController.StreamJob)
	validation.Delete("/jobs/:id", validationController.DeleteJob)

	// Payment routes
	paymentController := controllers.NewPaymentController(db, cfg, mailer, logger)
	app.Post("/api/payments", auth, paymentController.CreatePayment)
	app.Get("/api/payments/mine", auth, paymentController.MyPayments)
	app.Get("/api/pricing", auth, paymentController.GetPricing)

	adminPayments := app.Group("/api/admin/payments", auth, admin)
	adminPayments.Get("/", paymentController.ListPayments)
	adminPayments.Post("/:id/verify", paymentController.VerifyPayment)
	adminPayments.Post("/:id/reject", paymentController.RejectPayment)

	adminCoupons := app.Group("/api/admin/coupons", auth, admin)
	adminCoupons.Get("/", paymentController.ListCoupons)
	adminCoupons.Post("/", paymentController.CreateCoupon)
	adminCoupons.Delete("/:id", paymentController.DeleteCoupon)
	app.Put("/api/admin/pricing", auth, admin, paymentController.UpdatePricing)

	// Level-change routes
	levelController := controllers.NewLevelController(db, cfg, mailer, logger)
	app.Post("/api/level-change", auth, levelController.CreateRequest)
	adminLevel := app.Group("/api/admin/level-change", auth, admin)
	adminLevel.Get("/", levelController.ListRequests)
	adminLevel.Post("/:id/approve", levelController.Approve)
	adminLevel.Post("/:id/reject", levelController.Reject)

	// Notification routes
	notificationController := controllers.NewNotificationController(db, cfg)
	app.Get("/api/notifications", auth, notificationController.ListNotifications)
	app.Post("/api/notifications/:id/read", auth, notificationController.MarkRead)
	app.Post("/api/admin/notifications", auth, admin, notificationController.Broadcast)

	// Analytics
	analyticsController := controllers.NewAnalyticsController(db, cfg)
	app.Get("/api/admin/analytics", auth, admin, analyticsController.Overview)
}
