package handlers

import (
	"errors"
	"strconv"

	"custodia/internal/middleware"
	"custodia/internal/services/wallet"
	"custodia/internal/services/yield"
	"custodia/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type InvestmentHandler struct {
	yieldService yield.Service
}

func NewInvestmentHandler(yieldService yield.Service) *InvestmentHandler {
	return &InvestmentHandler{yieldService: yieldService}
}

func (h *InvestmentHandler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.yieldService.ListPlans(c.Context(), true)
	if err != nil {
		return utils.InternalError(c, "Failed to list plans")
	}
	return utils.Success(c, fiber.Map{"plans": plans})
}

func (h *InvestmentHandler) OpenPosition(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		PlanID string  `json:"plan_id"`
		Amount float64 `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	position, err := h.yieldService.OpenPosition(c.Context(), claims.UserID, input.PlanID, input.Amount)
	if err != nil {
		switch {
		case errors.Is(err, yield.ErrInvalidAmount), errors.Is(err, yield.ErrBelowPlanMin), errors.Is(err, yield.ErrPlanInactive):
			return utils.BadRequest(c, err.Error())
		case errors.Is(err, yield.ErrPlanNotFound):
			return utils.NotFound(c, "Plan not found")
		case errors.Is(err, wallet.ErrInsufficientBalance):
			return utils.BadRequest(c, "Insufficient balance")
		case errors.Is(err, wallet.ErrWalletNotFound):
			return utils.NotFound(c, "Wallet not found")
		default:
			return utils.InternalError(c, "Failed to open position")
		}
	}
	return utils.Success(c, fiber.Map{"position": position})
}

func (h *InvestmentHandler) ListEarnings(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	earnings, err := h.yieldService.ListEarnings(c.Context(), claims.UserID, limit)
	if err != nil {
		return utils.InternalError(c, "Failed to list earnings")
	}
	return utils.Success(c, fiber.Map{"earnings": earnings})
}
