package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"custodia/internal/models"
	"custodia/internal/services/wallet/wallettest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdjustTestApp(wallets *wallettest.Fake) *fiber.App {
	h := NewAdminHandler(wallets, nil, nil, nil, nil, nil, nil)
	app := fiber.New()
	app.Post("/api/admin/balance/adjust", func(c *fiber.Ctx) error {
		c.Locals("claims", &models.UserClaims{UserID: "admin-1", Role: "admin"})
		return h.AdjustBalance(c)
	})
	return app
}

func postAdjust(t *testing.T, app *fiber.App, payload map[string]interface{}) (int, map[string]interface{}) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/balance/adjust", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

func TestAdjustBalanceRequiresReason(t *testing.T) {
	wallets := wallettest.New()
	app := newAdjustTestApp(wallets)

	status, body := postAdjust(t, app, map[string]interface{}{
		"user_id":   "user-1",
		"symbol":    "USDT",
		"amount":    25.0,
		"direction": "credit",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Adjustment reason is required", body["error"])
	assert.Equal(t, 0.0, wallets.Balance("user-1", "USDT"))

	// A whitespace-only reason is no reason.
	status, _ = postAdjust(t, app, map[string]interface{}{
		"user_id":   "user-1",
		"symbol":    "USDT",
		"amount":    25.0,
		"direction": "credit",
		"note":      "   ",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdjustBalanceInvalidSymbolIsBadRequest(t *testing.T) {
	wallets := wallettest.New()
	app := newAdjustTestApp(wallets)

	status, body := postAdjust(t, app, map[string]interface{}{
		"user_id":   "user-1",
		"symbol":    "  ",
		"amount":    25.0,
		"direction": "credit",
		"note":      "manual correction",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestAdjustBalanceCreditsWallet(t *testing.T) {
	wallets := wallettest.New()
	app := newAdjustTestApp(wallets)

	status, body := postAdjust(t, app, map[string]interface{}{
		"user_id":   "user-1",
		"symbol":    "USDT",
		"amount":    25.0,
		"direction": "credit",
		"note":      "manual correction",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 25.0, body["new_balance"])
	assert.Equal(t, 25.0, wallets.Balance("user-1", "USDT"))

	require.Len(t, wallets.Actions, 1)
	assert.Equal(t, "admin-1", wallets.Actions[0].AdminID)
}
