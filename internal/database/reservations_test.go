package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"github.com/shopspring/decimal"
)

func insertTestReservation(t *testing.T, service *Service) *models.Reservation {
	t.Helper()
	createTestUser(t, service, "member", models.RoleMember)
	createTestUser(t, service, "creator", models.RoleCreator)
	createTestUser(t, service, "escort", models.RoleEscort)

	r := &models.Reservation{
		Id:            "res-1",
		Type:          models.ReservationService,
		MemberId:      "member",
		CreatorId:     "creator",
		Amount:        50000,
		Fee:           2000,
		Status:        models.StatusPending,
		DurationHours: decimal.RequireFromString("1.5"),
		Escorts: []models.Escort{
			{EscortId: "escort", RateCents: 5000, Status: models.EscortPending},
		},
	}
	err := service.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertReservation(ctx, r)
	})
	if err != nil {
		t.Fatalf("InsertReservation failed: %v", err)
	}
	return r
}

func TestInsertAndLoadReservation(t *testing.T) {
	service := setupTestDb(t)
	insertTestReservation(t, service)

	r, err := service.GetReservation(context.Background(), "res-1")
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if r.Amount != 50000 || r.Fee != 2000 || r.Status != models.StatusPending {
		t.Errorf("Unexpected reservation: %+v", r)
	}
	if !r.DurationHours.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Expected 1.5 hours, got %s", r.DurationHours)
	}
	if r.Version != 1 {
		t.Errorf("Expected version 1, got %d", r.Version)
	}
	if len(r.Escorts) != 1 || r.Escorts[0].RateCents != 5000 || r.Escorts[0].Status != models.EscortPending {
		t.Errorf("Unexpected escorts: %+v", r.Escorts)
	}
	if r.AppliedCommissionRate != nil || r.SettledAt != nil {
		t.Errorf("Unsettled reservation carries settlement fields: %+v", r)
	}
}

func TestGetReservation_NotFound(t *testing.T) {
	service := setupTestDb(t)

	_, err := service.GetReservation(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateReservation(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	insertTestReservation(t, service)

	settledAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	rate := decimal.RequireFromString("0.2")
	err := service.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := tx.GetReservation(ctx, "res-1")
		if err != nil {
			return err
		}
		r.Status = models.StatusCompleted
		r.MemberPresenceConfirmed = true
		r.CreatorPresenceConfirmed = true
		r.Escorts[0].Status = models.EscortConfirmed
		r.Escorts[0].PresenceConfirmed = true
		r.Escorts[0].RespondedAt = &settledAt
		r.AppliedCommissionRate = &rate
		r.SettledAt = &settledAt
		return tx.UpdateReservation(ctx, r)
	})
	if err != nil {
		t.Fatalf("UpdateReservation failed: %v", err)
	}

	r, err := service.GetReservation(ctx, "res-1")
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if r.Status != models.StatusCompleted || !r.MemberPresenceConfirmed || !r.CreatorPresenceConfirmed {
		t.Errorf("Unexpected reservation: %+v", r)
	}
	if r.Version != 2 {
		t.Errorf("Expected version 2, got %d", r.Version)
	}
	if r.AppliedCommissionRate == nil || !r.AppliedCommissionRate.Equal(rate) {
		t.Errorf("Expected applied rate 0.2, got %v", r.AppliedCommissionRate)
	}
	if r.SettledAt == nil || !r.SettledAt.Equal(settledAt) {
		t.Errorf("Expected settled at %v, got %v", settledAt, r.SettledAt)
	}
	if !r.Escorts[0].PresenceConfirmed || r.Escorts[0].Status != models.EscortConfirmed {
		t.Errorf("Escort not updated: %+v", r.Escorts[0])
	}
}

func TestUpdateReservation_StaleVersion(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	stale := insertTestReservation(t, service)

	err := service.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := tx.GetReservation(ctx, "res-1")
		if err != nil {
			return err
		}
		r.Status = models.StatusConfirmed
		return tx.UpdateReservation(ctx, r)
	})
	if err != nil {
		t.Fatalf("UpdateReservation failed: %v", err)
	}

	// The stale copy still carries version 1 and must never be written.
	// RunInTx retries conflicts and gives up with ErrConcurrencyConflict.
	err = service.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		staleCopy := *stale
		staleCopy.Status = models.StatusCancelled
		return tx.UpdateReservation(ctx, &staleCopy)
	})
	if !errors.Is(err, store.ErrConcurrencyConflict) {
		t.Fatalf("Expected ErrConcurrencyConflict, got %v", err)
	}

	r, _ := service.GetReservation(ctx, "res-1")
	if r.Status != models.StatusConfirmed {
		t.Errorf("Stale write applied, status is %s", r.Status)
	}
}
