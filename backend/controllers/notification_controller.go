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

type NotificationController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewNotificationController(db *gorm.DB, cfg *config.Config) *NotificationController {
	return &NotificationController{DB: db, Cfg: cfg}
}

// ListNotifications returns the user's notifications, unread first.
func (nc *NotificationController) ListNotifications(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)

	var notifications []models.Notification
	if err := nc.DB.Where("user_id = ?", claims.UserID).
		Order("read_at IS NOT NULL, created_at DESC").
		Limit(100).
		Find(&notifications).Error; err != nil {
		return utils.InternalServerError(c, "Could not query notifications")
	}

	var unread int64
	nc.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", claims.UserID).
		Count(&unread)

	return utils.Success(c, fiber.StatusOK, notifications, fiber.Map{"unread": unread})
}

// MarkRead marks one notification as read.
func (nc *NotificationController) MarkRead(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)

	notificationID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid notification ID")
	}

	res := nc.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, claims.UserID).
		Update("read_at", time.Now())
	if res.Error != nil {
		return utils.InternalServerError(c, "Could not update notification")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Notification not found")
	}
	return utils.NoContent(c)
}

// Broadcast sends an announcement to every user of a niveau (or everyone).
func (nc *NotificationController) Broadcast(c *fiber.Ctx) error {
	var input struct {
		Title  string `json:"title" validate:"required"`
		Body   string `json:"body"`
		Niveau string `json:"niveau"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationErrors(err))
	}

	query := nc.DB.Model(&models.User{})
	if input.Niveau != "" {
		query = query.Where("niveau = ?", input.Niveau)
	}
	var userIDs []uint
	if err := query.Pluck("id", &userIDs).Error; err != nil {
		return utils.InternalServerError(c, "Could not query users")
	}

	notifications := make([]models.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		notifications = append(notifications, models.Notification{
			UserID: id,
			Type:   "announcement",
			Title:  input.Title,
			Body:   input.Body,
		})
	}
	if len(notifications) > 0 {
		if err := nc.DB.CreateInBatches(notifications, 200).Error; err != nil {
			return utils.InternalServerError(c, "Could not create notifications")
		}
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"sent": len(notifications)})
}
