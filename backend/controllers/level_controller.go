package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strconv"

	"carabin/backend/config"
	"carabin/backend/middleware"
	"carabin/backend/models"
	"carabin/backend/services/email"
	"carabin/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LevelController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Mailer email.Service
	Logger *log.Logger
}

func NewLevelController(db *gorm.DB, cfg *config.Config, mailer email.Service, logger *log.Logger) *LevelController {
	return &LevelController{DB: db, Cfg: cfg, Mailer: mailer, Logger: logger}
}

// CreateRequest opens a level-change request for the authenticated student.
func (lc *LevelController) CreateRequest(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)

	var input struct {
		RequestedNiveau string `json:"requested_niveau" validate:"required"`
		Reason          string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationErrors(err))
	}

	var user models.User
	if err := lc.DB.First(&user, claims.UserID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}
	if user.Niveau == input.RequestedNiveau {
		return utils.BadRequest(c, "Requested niveau is already the current one")
	}

	var pending int64
	lc.DB.Model(&models.LevelChangeRequest{}).
		Where("user_id = ? AND status = 'pending'", user.ID).
		Count(&pending)
	if pending > 0 {
		return utils.BadRequest(c, "A pending request already exists")
	}

	request := models.LevelChangeRequest{
		UserID:          user.ID,
		CurrentNiveau:   user.Niveau,
		RequestedNiveau: input.RequestedNiveau,
		Reason:          input.Reason,
		Status:          "pending",
	}
	if err := lc.DB.Create(&request).Error; err != nil {
		return utils.InternalServerError(c, "Could not create request")
	}
	return utils.Created(c, request)
}

// ListRequests is the admin view of level-change requests.
func (lc *LevelController) ListRequests(c *fiber.Ctx) error {
	query := lc.DB.Model(&models.LevelChangeRequest{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.LevelChangeRequest
	if err := query.Order("created_at").Find(&requests).Error; err != nil {
		return utils.InternalServerError(c, "Could not query requests")
	}
	return utils.Success(c, fiber.StatusOK, requests)
}

// Approve applies the niveau change, closes the request and notifies the
// student in a single transaction.
func (lc *LevelController) Approve(c *fiber.Ctx) error {
	return lc.decide(c, true)
}

// Reject closes the request without changing the niveau.
func (lc *LevelController) Reject(c *fiber.Ctx) error {
	return lc.decide(c, false)
}

func (lc *LevelController) decide(c *fiber.Ctx, approve bool) error {
	claims := middleware.ClaimsFromCtx(c)

	requestID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid request ID")
	}

	var request models.LevelChangeRequest
	var user models.User
	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, requestID).Error; err != nil {
			return err
		}
		if request.Status != "pending" {
			return errors.New("request already decided")
		}
		if err := tx.First(&user, request.UserID).Error; err != nil {
			return err
		}

		title := "Changement de niveau refuse"
		if approve {
			request.Status = "approved"
			title = "Changement de niveau approuve"
			if err := tx.Model(&user).Update("niveau", request.RequestedNiveau).Error; err != nil {
				return err
			}
			user.Niveau = request.RequestedNiveau
		} else {
			request.Status = "rejected"
		}
		request.DecidedBy = claims.UserID
		if err := tx.Save(&request).Error; err != nil {
			return err
		}

		notification := models.Notification{
			UserID: user.ID,
			Type:   "level_change",
			Title:  title,
			Body:   fmt.Sprintf("Votre demande de passage vers %s a ete traitee.", request.RequestedNiveau),
		}
		return tx.Create(&notification).Error
	})
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	subject := "Demande de changement de niveau"
	lc.Mailer.SendMessages(&email.Message{
		To:       []mail.Address{{Name: user.Username, Address: user.Email}},
		Subject:  subject,
		TextBody: fmt.Sprintf("Bonjour %s,\n\nVotre demande de passage vers %s est %s.\n", user.Username, request.RequestedNiveau, request.Status),
	})

	return utils.Success(c, fiber.StatusOK, request)
}
