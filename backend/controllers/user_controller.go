package controllers

import (
	"strconv"

	"carabin/backend/config"
	"carabin/backend/middleware"
	"carabin/backend/models"
	"carabin/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUserController(db *gorm.DB, cfg *config.Config) *UserController {
	return &UserController{DB: db, Cfg: cfg}
}

// GetProfile godoc
// @Summary Get the authenticated user's profile
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)

	var user models.User
	if err := uc.DB.First(&user, claims.UserID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	var progress []models.UserLectureProgress
	uc.DB.Where("user_id = ?", user.ID).
		Order("updated_at DESC").
		Limit(5).
		Find(&progress)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":              user.ID,
		"username":        user.Username,
		"email":           user.Email,
		"role":            user.Role,
		"niveau":          user.Niveau,
		"semestre":        user.Semestre,
		"faculty":         user.Faculty,
		"subscribed":      user.Subscribed,
		"created_at":      user.CreatedAt,
		"recent_progress": progress,
	})
}

// UpdateProfile lets the user change name, faculty and password. Niveau
// changes go through the level-change request flow instead.
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)

	var input struct {
		Username    string `json:"username"`
		Faculty     string `json:"faculty"`
		Semestre    string `json:"semestre"`
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := uc.DB.First(&user, claims.UserID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	if input.Username != "" {
		user.Username = input.Username
	}
	if input.Faculty != "" {
		user.Faculty = input.Faculty
	}
	if input.Semestre != "" {
		user.Semestre = input.Semestre
	}

	if input.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
			return utils.Unauthorized(c, "Old password is incorrect")
		}
		if len(input.NewPassword) < 8 {
			return utils.BadRequest(c, "New password must be at least 8 characters")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user.PasswordHash = string(hashed)
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update profile")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"faculty":  user.Faculty,
		"semestre": user.Semestre,
	})
}

// ListUsers returns users for the admin panel, filterable by role, niveau
// and subscription state.
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	query := uc.DB.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if niveau := c.Query("niveau"); niveau != "" {
		query = query.Where("niveau = ?", niveau)
	}
	if c.Query("subscribed") == "true" {
		query = query.Where("subscribed = true")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize := 50

	var total int64
	query.Count(&total)

	var users []models.User
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error; err != nil {
		return utils.InternalServerError(c, "Could not query users")
	}

	return utils.Success(c, fiber.StatusOK, users, fiber.Map{
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// UpdateUser lets an admin change role, niveau and subscription.
func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var input struct {
		Role       *string `json:"role"`
		Niveau     *string `json:"niveau"`
		Semestre   *string `json:"semestre"`
		Subscribed *bool   `json:"subscribed"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	if input.Role != nil {
		switch *input.Role {
		case models.RoleStudent, models.RoleMaintainer, models.RoleAdmin:
			user.Role = *input.Role
		default:
			return utils.BadRequest(c, "Unknown role")
		}
	}
	if input.Niveau != nil {
		user.Niveau = *input.Niveau
	}
	if input.Semestre != nil {
		user.Semestre = *input.Semestre
	}
	if input.Subscribed != nil {
		user.Subscribed = *input.Subscribed
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}
	return utils.Success(c, fiber.StatusOK, user)
}

// DeleteUser soft deletes a user and revokes their sessions.
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	err = uc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.User{}, userID).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.UserSession{}).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not delete user")
	}
	return utils.NoContent(c)
}
