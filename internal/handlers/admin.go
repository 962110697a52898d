package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"custodia/internal/middleware"
	"custodia/internal/models"
	"custodia/internal/repositories"
	"custodia/internal/services/deposit"
	"custodia/internal/services/exchange"
	"custodia/internal/services/recurring"
	"custodia/internal/services/wallet"
	"custodia/internal/services/withdrawal"
	"custodia/internal/services/yield"
	"custodia/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler groups every administrator operation: settling requests,
// adjusting balances, exchanges, recurring rules and yield runs.
type AdminHandler struct {
	walletService     wallet.Service
	withdrawalService withdrawal.Service
	depositService    deposit.Service
	exchangeService   exchange.Service
	recurringService  recurring.Service
	yieldService      yield.Service
	networks          repositories.NetworkRepository
}

func NewAdminHandler(
	walletService wallet.Service,
	withdrawalService withdrawal.Service,
	depositService deposit.Service,
	exchangeService exchange.Service,
	recurringService recurring.Service,
	yieldService yield.Service,
	networks repositories.NetworkRepository,
) *AdminHandler {
	return &AdminHandler{
		walletService:     walletService,
		withdrawalService: withdrawalService,
		depositService:    depositService,
		exchangeService:   exchangeService,
		recurringService:  recurringService,
		yieldService:      yieldService,
		networks:          networks,
	}
}

func adminID(c *fiber.Ctx) string {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.UserID
}

// Withdrawals

func (h *AdminHandler) ListWithdrawals(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	requests, err := h.withdrawalService.ListByStatus(c.Context(), c.Query("status"), limit)
	if err != nil {
		return utils.InternalError(c, "Failed to list withdrawal requests")
	}
	return utils.Success(c, fiber.Map{"requests": requests})
}

func (h *AdminHandler) ApproveWithdrawal(c *fiber.Ctx) error {
	var input struct {
		TxHash string `json:"tx_hash"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	request, err := h.withdrawalService.Approve(c.Context(), c.Params("id"), adminID(c), input.TxHash)
	if err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrRequestNotFound):
			return utils.NotFound(c, "Withdrawal request not found")
		case errors.Is(err, withdrawal.ErrAlreadyProcessed):
			return utils.Conflict(c, "Withdrawal request already processed")
		default:
			return utils.InternalError(c, "Failed to approve withdrawal")
		}
	}
	return utils.Success(c, fiber.Map{"request": request})
}

func (h *AdminHandler) RejectWithdrawal(c *fiber.Ctx) error {
	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	request, err := h.withdrawalService.Reject(c.Context(), c.Params("id"), adminID(c), input.Reason)
	if err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrRequestNotFound):
			return utils.NotFound(c, "Withdrawal request not found")
		case errors.Is(err, withdrawal.ErrAlreadyProcessed):
			return utils.Conflict(c, "Withdrawal request already processed")
		default:
			return utils.InternalError(c, "Failed to reject withdrawal")
		}
	}
	return utils.Success(c, fiber.Map{"request": request})
}

// Deposits

func (h *AdminHandler) ListDeposits(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	requests, err := h.depositService.ListByStatus(c.Context(), c.Query("status"), limit)
	if err != nil {
		return utils.InternalError(c, "Failed to list deposit requests")
	}
	return utils.Success(c, fiber.Map{"requests": requests})
}

func (h *AdminHandler) ConfirmDeposit(c *fiber.Ctx) error {
	request, err := h.depositService.Confirm(c.Context(), c.Params("id"), adminID(c))
	if err != nil {
		switch {
		case errors.Is(err, deposit.ErrRequestNotFound):
			return utils.NotFound(c, "Deposit request not found")
		case errors.Is(err, deposit.ErrAlreadyProcessed):
			return utils.Conflict(c, "Deposit request already processed")
		default:
			return utils.InternalError(c, "Failed to confirm deposit")
		}
	}
	return utils.Success(c, fiber.Map{"request": request})
}

func (h *AdminHandler) RejectDeposit(c *fiber.Ctx) error {
	var input struct {
		Note string `json:"note"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	request, err := h.depositService.Reject(c.Context(), c.Params("id"), adminID(c), input.Note)
	if err != nil {
		switch {
		case errors.Is(err, deposit.ErrRequestNotFound):
			return utils.NotFound(c, "Deposit request not found")
		case errors.Is(err, deposit.ErrAlreadyProcessed):
			return utils.Conflict(c, "Deposit request already processed")
		default:
			return utils.InternalError(c, "Failed to reject deposit")
		}
	}
	return utils.Success(c, fiber.Map{"request": request})
}

// Balances

func (h *AdminHandler) AdjustBalance(c *fiber.Ctx) error {
	var input struct {
		UserID    string  `json:"user_id"`
		Symbol    string  `json:"symbol"`
		Amount    float64 `json:"amount"`
		Direction string  `json:"direction"`
		Note      string  `json:"note"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	// Manual adjustments always carry a reason for the audit trail.
	if strings.TrimSpace(input.Note) == "" {
		return utils.BadRequest(c, "Adjustment reason is required")
	}

	direction := wallet.DirectionCredit
	if input.Direction == "debit" {
		direction = wallet.DirectionDebit
	}
	if direction == wallet.DirectionCredit {
		if _, err := h.walletService.EnsureWallet(c.Context(), input.UserID, input.Symbol, ""); err != nil {
			if errors.Is(err, wallet.ErrInvalidSymbol) {
				return utils.BadRequest(c, err.Error())
			}
			return utils.InternalError(c, "Failed to ensure wallet")
		}
	}

	result, err := h.walletService.AdjustBalance(c.Context(), wallet.AdjustParams{
		UserID:    input.UserID,
		Symbol:    input.Symbol,
		Amount:    input.Amount,
		Direction: direction,
		Note:      input.Note,
		ActorID:   adminID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, wallet.ErrInvalidSymbol):
			return utils.BadRequest(c, err.Error())
		case errors.Is(err, wallet.ErrInsufficientBalance):
			return utils.BadRequest(c, "Insufficient balance")
		case errors.Is(err, wallet.ErrWalletNotFound):
			return utils.NotFound(c, "Wallet not found")
		default:
			return utils.InternalError(c, "Failed to adjust balance")
		}
	}
	return utils.Success(c, fiber.Map{"new_balance": result.NewBalance})
}

func (h *AdminHandler) Exchange(c *fiber.Ctx) error {
	var input struct {
		UserID     string  `json:"user_id"`
		FromSymbol string  `json:"from_symbol"`
		ToSymbol   string  `json:"to_symbol"`
		Amount     float64 `json:"amount"`
		ToAmount   float64 `json:"to_amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	result, err := h.exchangeService.Exchange(c.Context(), input.UserID, input.FromSymbol, input.ToSymbol, input.Amount, input.ToAmount, adminID(c))
	if err != nil {
		switch {
		case errors.Is(err, exchange.ErrInvalidAmount), errors.Is(err, exchange.ErrSameSymbol):
			return utils.BadRequest(c, err.Error())
		case errors.Is(err, wallet.ErrInsufficientBalance):
			return utils.BadRequest(c, "Insufficient balance")
		case errors.Is(err, wallet.ErrWalletNotFound):
			return utils.NotFound(c, "Wallet not found")
		default:
			return utils.InternalError(c, "Failed to exchange")
		}
	}
	return utils.Success(c, fiber.Map{"result": result})
}

func (h *AdminHandler) TotalBalances(c *fiber.Ctx) error {
	totals, err := h.walletService.TotalBalances(c.Context())
	if err != nil {
		return utils.InternalError(c, "Failed to total balances")
	}
	return utils.Success(c, fiber.Map{"totals": totals})
}

func (h *AdminHandler) Actions(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	actions, err := h.walletService.AdminActions(c.Context(), limit)
	if err != nil {
		return utils.InternalError(c, "Failed to list admin actions")
	}
	return utils.Success(c, fiber.Map{"actions": actions})
}

// Recurring rules

func (h *AdminHandler) CreateRecurringRule(c *fiber.Ctx) error {
	var input struct {
		UserID    string     `json:"user_id"`
		Symbol    string     `json:"symbol"`
		Amount    float64    `json:"amount"`
		Frequency string     `json:"frequency"`
		StartDate time.Time  `json:"start_date"`
		EndDate   *time.Time `json:"end_date"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	rule, err := h.recurringService.CreateRule(c.Context(), recurring.CreateParams{
		UserID:    input.UserID,
		Symbol:    input.Symbol,
		Amount:    input.Amount,
		Frequency: input.Frequency,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, recurring.ErrInvalidAmount),
			errors.Is(err, recurring.ErrInvalidSymbol),
			errors.Is(err, recurring.ErrInvalidFrequency):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to create recurring rule")
		}
	}
	return utils.Success(c, fiber.Map{"rule": rule})
}

func (h *AdminHandler) ListRecurringRules(c *fiber.Ctx) error {
	rules, err := h.recurringService.ListRules(c.Context(), c.Query("active") == "true")
	if err != nil {
		return utils.InternalError(c, "Failed to list recurring rules")
	}
	return utils.Success(c, fiber.Map{"rules": rules})
}

func (h *AdminHandler) DeactivateRecurringRule(c *fiber.Ctx) error {
	if err := h.recurringService.DeactivateRule(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, recurring.ErrRuleNotFound) {
			return utils.NotFound(c, "Recurring rule not found")
		}
		return utils.InternalError(c, "Failed to deactivate recurring rule")
	}
	return utils.Success(c, fiber.Map{"deactivated": true})
}

func (h *AdminHandler) RunRecurring(c *fiber.Ctx) error {
	report, err := h.recurringService.ExecuteDue(c.Context(), time.Now().UTC())
	if err != nil {
		return utils.InternalError(c, "Recurring run failed")
	}
	return utils.Success(c, fiber.Map{"report": report})
}

// Yield

func (h *AdminHandler) CreatePlan(c *fiber.Ctx) error {
	var plan models.InvestmentPlan
	if err := c.BodyParser(&plan); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	plan.IsActive = true
	if err := h.yieldService.CreatePlan(c.Context(), &plan); err != nil {
		return utils.InternalError(c, "Failed to create plan")
	}
	return utils.Success(c, fiber.Map{"plan": plan})
}

func (h *AdminHandler) RunYield(c *fiber.Ctx) error {
	report, err := h.yieldService.ProcessDaily(c.Context(), time.Now().UTC(), adminID(c))
	if err != nil {
		return utils.InternalError(c, "Yield run failed")
	}
	return utils.Success(c, fiber.Map{"report": report})
}

// Network configuration

func (h *AdminHandler) ListNetworks(c *fiber.Ctx) error {
	configs, err := h.networks.List()
	if err != nil {
		return utils.InternalError(c, "Failed to list networks")
	}
	return utils.Success(c, fiber.Map{"networks": configs})
}

func (h *AdminHandler) UpsertNetwork(c *fiber.Ctx) error {
	var cfg models.NetworkConfig
	if err := c.BodyParser(&cfg); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if cfg.Network == "" {
		return utils.BadRequest(c, "Network is required")
	}
	if err := h.networks.Upsert(&cfg); err != nil {
		return utils.InternalError(c, "Failed to save network configuration")
	}
	return utils.Success(c, fiber.Map{"network": cfg})
}
