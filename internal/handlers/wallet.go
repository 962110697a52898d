package handlers

import (
	"errors"
	"strconv"

	"custodia/internal/middleware"
	"custodia/internal/services/wallet"
	"custodia/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

func (h *WalletHandler) ListWallets(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	wallets, err := h.walletService.ListWallets(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "Failed to list wallets")
	}
	return utils.Success(c, fiber.Map{"wallets": wallets})
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.GetWallet(c.Context(), claims.UserID, c.Params("symbol"))
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return utils.NotFound(c, "Wallet not found")
		}
		return utils.InternalError(c, "Failed to get wallet")
	}
	return utils.Success(c, fiber.Map{"wallet": w})
}

func (h *WalletHandler) Ledger(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	entries, err := h.walletService.History(c.Context(), claims.UserID, c.Params("symbol"), limit)
	if err != nil {
		return utils.InternalError(c, "Failed to load ledger")
	}
	return utils.Success(c, fiber.Map{"entries": entries})
}

// Reconcile folds the ledger for one wallet and compares it to the
// stored balance. Admin-only; user_id defaults to the caller.
func (h *WalletHandler) Reconcile(c *fiber.Ctx) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	userID := c.Query("user_id", claims.UserID)
	report, err := h.walletService.Reconcile(c.Context(), userID, c.Params("symbol"))
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return utils.NotFound(c, "Wallet not found")
		}
		return utils.InternalError(c, "Failed to reconcile wallet")
	}
	return utils.Success(c, fiber.Map{"report": report})
}
