package handlers

import (
	"errors"
	"strconv"

	"custodia/internal/middleware"
	"custodia/internal/services/deposit"
	"custodia/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type DepositHandler struct {
	depositService deposit.Service
}

func NewDepositHandler(depositService deposit.Service) *DepositHandler {
	return &DepositHandler{depositService: depositService}
}

func (h *DepositHandler) Create(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount        float64 `json:"amount"`
		Currency      string  `json:"currency"`
		Network       string  `json:"network"`
		WalletAddress string  `json:"wallet_address"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	request, err := h.depositService.Request(c.Context(), claims.UserID, input.Amount, input.Currency, input.Network, input.WalletAddress)
	if err != nil {
		if errors.Is(err, deposit.ErrInvalidAmount) || errors.Is(err, deposit.ErrInvalidCurrency) {
			return utils.BadRequest(c, err.Error())
		}
		return utils.InternalError(c, "Failed to create deposit request")
	}
	return utils.Success(c, fiber.Map{"request": request})
}

func (h *DepositHandler) List(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	requests, err := h.depositService.ListByUser(c.Context(), claims.UserID, limit)
	if err != nil {
		return utils.InternalError(c, "Failed to list deposit requests")
	}
	return utils.Success(c, fiber.Map{"requests": requests})
}
