package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strconv"
	"time"

	"carabin/backend/config"
	"carabin/backend/middleware"
	"carabin/backend/models"
	"carabin/backend/services/email"
	"carabin/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PaymentController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Mailer email.Service
	Logger *log.Logger
}

func NewPaymentController(db *gorm.DB, cfg *config.Config, mailer email.Service, logger *log.Logger) *PaymentController {
	return &PaymentController{DB: db, Cfg: cfg, Mailer: mailer, Logger: logger}
}

// ComputePrice applies the plan price and an optional coupon. The coupon
// must not be expired or exhausted.
func ComputePrice(pricing models.PricingSettings, plan string, coupon *models.ReductionCoupon, now time.Time) (float64, error) {
	var price float64
	switch plan {
	case "semester":
		price = pricing.SemesterPrice
	case "annual":
		price = pricing.AnnualPrice
	default:
		return 0, errors.New("unknown plan")
	}

	if coupon != nil {
		if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
			return 0, errors.New("coupon expired")
		}
		if coupon.MaxUses > 0 && coupon.Uses >= coupon.MaxUses {
			return 0, errors.New("coupon exhausted")
		}
		price = price * float64(100-coupon.Percent) / 100
	}
	return price, nil
}

func (pc *PaymentController) currentPricing() (models.PricingSettings, error) {
	var pricing models.PricingSettings
	err := pc.DB.Order("created_at DESC").First(&pricing).Error
	return pricing, err
}

type PaymentInput struct {
	Plan       string `json:"plan" validate:"required,oneof=semester annual"`
	Method     string `json:"method" validate:"required"`
	Reference  string `json:"reference"`
	CouponCode string `json:"coupon_code"`
}

// CreatePayment godoc
// @Summary Declare a payment
// @Description Computes the amount from the current pricing and an optional coupon; the payment waits for admin verification
// @Tags payments
// @Accept json
// @Produce json
// @Param payment body PaymentInput true "Payment declaration"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /payments [post]
func (pc *PaymentController) CreatePayment(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)

	var input PaymentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationErrors(err))
	}

	pricing, err := pc.currentPricing()
	if err != nil {
		return utils.InternalServerError(c, "Pricing is not configured")
	}

	var coupon *models.ReductionCoupon
	if input.CouponCode != "" {
		var found models.ReductionCoupon
		if err := pc.DB.Where("code = ?", input.CouponCode).First(&found).Error; err != nil {
			return utils.BadRequest(c, "Unknown coupon code")
		}
		coupon = &found
	}

	amount, err := ComputePrice(pricing, input.Plan, coupon, time.Now())
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	payment := models.Payment{
		UserID:     claims.UserID,
		Amount:     amount,
		Currency:   pricing.Currency,
		Method:     input.Method,
		Plan:       input.Plan,
		CouponCode: input.CouponCode,
		Reference:  input.Reference,
		Status:     "pending",
	}
	if err := pc.DB.Create(&payment).Error; err != nil {
		return utils.InternalServerError(c, "Could not create payment")
	}
	return utils.Created(c, payment)
}

// MyPayments lists the authenticated user's payments.
func (pc *PaymentController) MyPayments(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)

	var payments []models.Payment
	if err := pc.DB.Where("user_id = ?", claims.UserID).
		Order("created_at DESC").Find(&payments).Error; err != nil {
		return utils.InternalServerError(c, "Could not query payments")
	}
	return utils.Success(c, fiber.StatusOK, payments)
}

// ListPayments is the admin view, filterable by status.
func (pc *PaymentController) ListPayments(c *fiber.Ctx) error {
	query := pc.DB.Model(&models.Payment{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var payments []models.Payment
	if err := query.Order("created_at DESC").Find(&payments).Error; err != nil {
		return utils.InternalServerError(c, "Could not query payments")
	}
	return utils.Success(c, fiber.StatusOK, payments)
}

// VerifyPayment marks a payment verified, subscribes the user, burns the
// coupon and notifies, all in one transaction. The receipt mail goes out
// after the commit.
func (pc *PaymentController) VerifyPayment(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)

	paymentID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid payment ID")
	}

	var payment models.Payment
	var user models.User
	err = pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, paymentID).Error; err != nil {
			return err
		}
		if payment.Status != "pending" {
			return errors.New("payment already decided")
		}
		if err := tx.First(&user, payment.UserID).Error; err != nil {
			return err
		}

		now := time.Now()
		payment.Status = "verified"
		payment.VerifiedBy = claims.UserID
		payment.VerifiedAt = &now
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		if err := tx.Model(&user).Update("subscribed", true).Error; err != nil {
			return err
		}

		if payment.CouponCode != "" {
			if err := tx.Model(&models.ReductionCoupon{}).
				Where("code = ?", payment.CouponCode).
				Update("uses", gorm.Expr("uses + 1")).Error; err != nil {
				return err
			}
		}

		notification := models.Notification{
			UserID: payment.UserID,
			Type:   "payment",
			Title:  "Paiement confirme",
			Body:   fmt.Sprintf("Votre paiement de %.2f %s a ete valide. Votre abonnement est actif.", payment.Amount, payment.Currency),
		}
		return tx.Create(&notification).Error
	})
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	pc.Mailer.SendMessages(&email.Message{
		To:       []mail.Address{{Name: user.Username, Address: user.Email}},
		Subject:  "Paiement confirme",
		TextBody: fmt.Sprintf("Bonjour %s,\n\nVotre paiement de %.2f %s a ete valide.\n", user.Username, payment.Amount, payment.Currency),
	})

	return utils.Success(c, fiber.StatusOK, payment)
}

// RejectPayment declines a pending payment with a note.
func (pc *PaymentController) RejectPayment(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromCtx(c)

	paymentID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid payment ID")
	}

	var input struct {
		Note string `json:"note"`
	}
	_ = c.BodyParser(&input)

	var payment models.Payment
	err = pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, paymentID).Error; err != nil {
			return err
		}
		if payment.Status != "pending" {
			return errors.New("payment already decided")
		}

		now := time.Now()
		payment.Status = "rejected"
		payment.VerifiedBy = claims.UserID
		payment.VerifiedAt = &now
		payment.Note = input.Note
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		notification := models.Notification{
			UserID: payment.UserID,
			Type:   "payment",
			Title:  "Paiement refuse",
			Body:   "Votre paiement n'a pas pu etre valide. " + input.Note,
		}
		return tx.Create(&notification).Error
	})
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	return utils.Success(c, fiber.StatusOK, payment)
}

// GetPricing returns the current prices; public to authenticated users.
func (pc *PaymentController) GetPricing(c *fiber.Ctx) error {
	pricing, err := pc.currentPricing()
	if err != nil {
		return utils.NotFound(c, "Pricing is not configured")
	}
	return utils.Success(c, fiber.StatusOK, pricing)
}

// UpdatePricing inserts a new pricing row; the newest row wins.
func (pc *PaymentController) UpdatePricing(c *fiber.Ctx) error {
	var input struct {
		SemesterPrice float64 `json:"semester_price" validate:"required,gt=0"`
		AnnualPrice   float64 `json:"annual_price" validate:"required,gt=0"`
		Currency      string  `json:"currency"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationErrors(err))
	}
	if input.Currency == "" {
		input.Currency = "TND"
	}

	pricing := models.PricingSettings{
		SemesterPrice: input.SemesterPrice,
		AnnualPrice:   input.AnnualPrice,
		Currency:      input.Currency,
	}
	if err := pc.DB.Create(&pricing).Error; err != nil {
		return utils.InternalServerError(c, "Could not update pricing")
	}
	return utils.Created(c, pricing)
}

// CreateCoupon adds a reduction coupon.
func (pc *PaymentController) CreateCoupon(c *fiber.Ctx) error {
	var input struct {
		Code      string     `json:"code" validate:"required,min=3"`
		Percent   int        `json:"percent" validate:"required,min=1,max=100"`
		MaxUses   int        `json:"max_uses"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationErrors(err))
	}

	coupon := models.ReductionCoupon{
		Code:      input.Code,
		Percent:   input.Percent,
		MaxUses:   input.MaxUses,
		ExpiresAt: input.ExpiresAt,
	}
	if err := pc.DB.Create(&coupon).Error; err != nil {
		return utils.BadRequest(c, "Could not create coupon, code may already exist")
	}
	return utils.Created(c, coupon)
}

// ListCoupons lists all coupons for the admin panel.
func (pc *PaymentController) ListCoupons(c *fiber.Ctx) error {
	var coupons []models.ReductionCoupon
	if err := pc.DB.Order("created_at DESC").Find(&coupons).Error; err != nil {
		return utils.InternalServerError(c, "Could not query coupons")
	}
	return utils.Success(c, fiber.StatusOK, coupons)
}

// DeleteCoupon removes a coupon.
func (pc *PaymentController) DeleteCoupon(c *fiber.Ctx) error {
	couponID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid coupon ID")
	}
	if err := pc.DB.Delete(&models.ReductionCoupon{}, couponID).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete coupon")
	}
	return utils.NoContent(c)
}
