package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"marketplace-escrow-go/internal/api"
	"marketplace-escrow-go/internal/database"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type harness struct {
	t       *testing.T
	srv     *httptest.Server
	svc     *api.EscrowService
	member  *models.User
	creator *models.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewService(ctx, models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "server.db"),
		MaxOpenConns: 2,
		PingTimeout:  time.Second,
		BusyTimeout:  2 * time.Second,
		TxMaxRetries: 3,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	svc := api.NewEscrowService(db)
	_, err = svc.UpdateSettings(ctx, &models.SettingsRequest{
		PlatformCommissionRate: "0.2",
		PlatformFee:            "20.00",
		WithdrawalMinAmount:    "1.00",
	})
	require.NoError(t, err)

	member, err := svc.CreateUser(ctx, &models.CreateUserRequest{Name: "Mia", Email: "mia@example.com", Role: models.RoleMember})
	require.NoError(t, err)
	creator, err := svc.CreateUser(ctx, &models.CreateUserRequest{Name: "Cleo", Email: "cleo@example.com", Role: models.RoleCreator})
	require.NoError(t, err)

	srv := httptest.NewServer(New(svc, models.AuthConfig{JWTSecret: testSecret}).Handler())
	t.Cleanup(srv.Close)

	return &harness{t: t, srv: srv, svc: svc, member: member, creator: creator}
}

func token(t *testing.T, subject, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *harness) do(method, path, bearer string, body any) (int, response) {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, h.srv.URL+path, reader)
	require.NoError(h.t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var out response
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", body.Status)

	status, _ = h.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAuthenticationRequired(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(http.MethodGet, "/api/wallets/"+h.member.Id, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "error", body.Status)

	status, _ = h.do(http.MethodGet, "/api/wallets/"+h.member.Id, "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.do(http.MethodGet, "/api/wallets/"+h.creator.Id, token(t, h.member.Id, models.RoleMember), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.do(http.MethodGet, "/api/admin/settings", token(t, h.member.Id, models.RoleMember), nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestReservationFlowOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin := token(t, "ops", models.RoleAdmin)
	memberToken := token(t, h.member.Id, models.RoleMember)
	creatorToken := token(t, h.creator.Id, models.RoleCreator)

	status, _ := h.do(http.MethodPost, "/api/wallets/"+h.member.Id+"/deposit", memberToken,
		models.DepositRequest{Amount: "400.00", ExternalId: "psp-1"})
	assert.Equal(t, http.StatusForbidden, status, "deposits are recorded by operators")

	status, _ = h.do(http.MethodPost, "/api/wallets/"+h.member.Id+"/deposit", admin,
		models.DepositRequest{Amount: "400.00", ExternalId: "psp-1"})
	require.Equal(t, http.StatusOK, status)

	status, body := h.do(http.MethodPost, "/api/reservations", memberToken, models.CreateReservationRequest{
		Type:          models.ReservationService,
		CreatorId:     h.creator.Id,
		Amount:        "300.00",
		DurationHours: "1.5",
	})
	require.Equal(t, http.StatusCreated, status, body.Message)
	var reservation models.ReservationView
	require.NoError(t, json.Unmarshal(body.Data, &reservation))
	assert.Equal(t, h.member.Id, reservation.MemberId)

	path := "/api/reservations/" + reservation.Id
	status, _ = h.do(http.MethodPost, path+"/update-status", memberToken,
		models.UpdateStatusRequest{Status: models.StatusConfirmed})
	assert.Equal(t, http.StatusForbidden, status, "only the creator accepts")

	status, _ = h.do(http.MethodPost, path+"/update-status", creatorToken,
		models.UpdateStatusRequest{Status: models.StatusConfirmed})
	require.Equal(t, http.StatusOK, status)

	status, _ = h.do(http.MethodPost, path+"/confirm-presence", memberToken,
		models.ConfirmPresenceRequest{UserId: h.creator.Id})
	assert.Equal(t, http.StatusForbidden, status, "cannot confirm for someone else")

	status, _ = h.do(http.MethodPost, path+"/confirm-presence", memberToken, models.ConfirmPresenceRequest{})
	require.Equal(t, http.StatusOK, status)
	status, body = h.do(http.MethodPost, path+"/confirm-presence", memberToken, models.ConfirmPresenceRequest{})
	assert.Equal(t, http.StatusConflict, status, body.Message)

	status, body = h.do(http.MethodPost, path+"/confirm-presence", creatorToken, models.ConfirmPresenceRequest{})
	require.Equal(t, http.StatusOK, status)
	var result models.ConfirmationResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.True(t, result.Completed)
	assert.Equal(t, "224.00", result.Settlement.PayeeNet[h.creator.Id])

	status, body = h.do(http.MethodGet, "/api/wallets/"+h.creator.Id, creatorToken, nil)
	require.Equal(t, http.StatusOK, status)
	var wallet models.WalletView
	require.NoError(t, json.Unmarshal(body.Data, &wallet))
	assert.Equal(t, "224.00", wallet.Balance)

	status, body = h.do(http.MethodGet, "/api/admin/conservation", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var report models.ConservationReport
	require.NoError(t, json.Unmarshal(body.Data, &report))
	assert.True(t, report.Balanced())
}

func TestErrorStatuses(t *testing.T) {
	h := newHarness(t)
	admin := token(t, "ops", models.RoleAdmin)
	memberToken := token(t, h.member.Id, models.RoleMember)

	status, _ := h.do(http.MethodGet, "/api/reservations/missing", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.do(http.MethodPost, "/api/reservations", memberToken, models.CreateReservationRequest{
		Type: models.ReservationProduct, CreatorId: h.creator.Id, Amount: "10.00",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = h.do(http.MethodPut, "/api/admin/settings", admin, models.SettingsRequest{PlatformCommissionRate: "1.5"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodPost, "/api/reservations", memberToken, map[string]string{"unknown": "field"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrUnauthorized, http.StatusForbidden},
		{store.ErrAlreadyConfirmed, http.StatusConflict},
		{store.ErrInvalidState, http.StatusConflict},
		{store.ErrDuplicateTransaction, http.StatusConflict},
		{store.ErrInvalidInput, http.StatusBadRequest},
		{store.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{store.ErrConcurrencyConflict, http.StatusServiceUnavailable},
		{store.ErrConfiguration, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", store.ErrNotFound), http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
