package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"
)

func TestGetWallet_UnknownAndEmpty(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	if _, err := service.GetWallet(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown wallet, got %v", err)
	}

	createTestUser(t, service, "member", models.RoleMember)
	wallet, err := service.GetWallet(ctx, "member")
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if wallet.Balance != 0 || wallet.EscrowBalance != 0 {
		t.Errorf("Expected empty wallet, got %+v", wallet)
	}
}

func TestReconcileWallet(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, service, "member", models.RoleMember)
	deposit(t, service, "member", 2500, "psp-1")

	if err := service.ReconcileWallet(ctx, "member"); err != nil {
		t.Fatalf("Expected wallet to reconcile, got %v", err)
	}

	// Change the cached balance without a ledger record.
	if _, err := service.db.ExecContext(ctx, `UPDATE wallets SET balance = balance + 1 WHERE id = ?`, "member"); err != nil {
		t.Fatalf("Failed to tamper with wallet: %v", err)
	}

	err := service.ReconcileWallet(ctx, "member")
	if err == nil {
		t.Fatal("Expected reconciliation mismatch")
	}
	if !strings.Contains(err.Error(), "mismatch") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestConservation(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, service, "member", models.RoleMember)
	createTestUser(t, service, "creator", models.RoleCreator)

	deposit(t, service, "member", 30000, "psp-1")

	err := service.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		postings := []models.Posting{
			{Source: models.UserAccount("member"), Destination: models.EscrowAccount, Amount: 30000, Type: models.TxEscrowHold},
			{Source: models.EscrowAccount, Destination: models.UserAccount("creator"), Amount: 22400, Type: models.TxEarning, Earned: true},
			{Source: models.EscrowAccount, Destination: models.PlatformAccount, Amount: 7600, Type: models.TxCommission, Earned: true},
			{Source: models.UserAccount("creator"), Destination: models.World, Amount: 2400, Type: models.TxWithdrawal},
		}
		for _, p := range postings {
			if err := tx.Post(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}

	report, err := service.Conservation(ctx)
	if err != nil {
		t.Fatalf("Conservation failed: %v", err)
	}
	if !report.Balanced() {
		t.Fatalf("Expected balanced report, got %+v", report)
	}
	if report.TotalDeposits != 30000 || report.TotalWithdrawals != 2400 {
		t.Errorf("Unexpected flows: %+v", report)
	}
	if report.UserBalances != 20000 || report.PlatformBalance != 7600 || report.EscrowBalance != 0 {
		t.Errorf("Unexpected holdings: %+v", report)
	}

	for _, id := range []string{"member", "creator", models.PlatformWalletId} {
		if err := service.ReconcileWallet(ctx, id); err != nil {
			t.Errorf("ReconcileWallet(%s) failed: %v", id, err)
		}
	}

	if _, err := service.db.ExecContext(ctx, `UPDATE wallets SET balance = balance + 50 WHERE id = ?`, "creator"); err != nil {
		t.Fatalf("Failed to tamper with wallet: %v", err)
	}
	report, err = service.Conservation(ctx)
	if err != nil {
		t.Fatalf("Conservation failed: %v", err)
	}
	if report.Difference != 50 {
		t.Errorf("Expected difference 50, got %d", report.Difference)
	}
}

func TestClaimBonus_Once(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, service, "creator", models.RoleCreator)

	claims := 0
	for i := 0; i < 3; i++ {
		err := service.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			claimed, err := tx.ClaimBonus(ctx, "creator", models.BonusFirstSale)
			if claimed {
				claims++
			}
			return err
		})
		if err != nil {
			t.Fatalf("ClaimBonus failed: %v", err)
		}
	}
	if claims != 1 {
		t.Errorf("Expected exactly one claim, got %d", claims)
	}

	err := service.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.ClaimBonus(ctx, "ghost", models.BonusFirstSale)
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestAwardPoints(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, service, "creator", models.RoleCreator)

	err := service.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.AwardPoints(ctx, "creator", 25, "first sale", "res-1")
	})
	if err != nil {
		t.Fatalf("AwardPoints failed: %v", err)
	}

	wallet, _ := service.GetWallet(ctx, "creator")
	if wallet.RewardPoints != 25 || wallet.Balance != 0 {
		t.Errorf("Expected 25 points and no money, got %+v", wallet)
	}
	if err := service.ReconcileWallet(ctx, "creator"); err != nil {
		t.Errorf("ReconcileWallet failed: %v", err)
	}

	report, _ := service.Conservation(ctx)
	if !report.Balanced() {
		t.Errorf("Points must not affect conservation: %+v", report)
	}
}
