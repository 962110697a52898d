package handlers

import (
	"errors"
	"strconv"

	"custodia/internal/middleware"
	"custodia/internal/services/wallet"
	"custodia/internal/services/withdrawal"
	"custodia/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WithdrawalHandler struct {
	withdrawalService withdrawal.Service
}

func NewWithdrawalHandler(withdrawalService withdrawal.Service) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalService: withdrawalService}
}

func (h *WithdrawalHandler) Create(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Symbol    string  `json:"symbol"`
		Network   string  `json:"network"`
		Amount    float64 `json:"amount"`
		ToAddress string  `json:"to_address"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	request, err := h.withdrawalService.Request(c.Context(), claims.UserID, input.Symbol, input.Network, input.Amount, input.ToAddress)
	if err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrInvalidAmount),
			errors.Is(err, withdrawal.ErrInvalidAddress),
			errors.Is(err, withdrawal.ErrBelowMinimum),
			errors.Is(err, withdrawal.ErrNetworkDisabled),
			errors.Is(err, withdrawal.ErrAmountTooSmall):
			return utils.BadRequest(c, err.Error())
		case errors.Is(err, wallet.ErrInsufficientBalance):
			return utils.BadRequest(c, "Insufficient balance")
		case errors.Is(err, wallet.ErrWalletNotFound):
			return utils.NotFound(c, "Wallet not found")
		default:
			return utils.InternalError(c, "Failed to create withdrawal request")
		}
	}
	return utils.Success(c, fiber.Map{"request": request})
}

func (h *WithdrawalHandler) List(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	requests, err := h.withdrawalService.ListByUser(c.Context(), claims.UserID, limit)
	if err != nil {
		return utils.InternalError(c, "Failed to list withdrawal requests")
	}
	return utils.Success(c, fiber.Map{"requests": requests})
}
