package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"
)

func setupTestDb(t *testing.T) *Service {
	t.Helper()
	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "escrow.db"),
		MaxOpenConns: 2,
		PingTimeout:  time.Second,
		BusyTimeout:  2 * time.Second,
		TxMaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(service.Close)
	return service
}

func createTestUser(t *testing.T, service *Service, id, role string) *models.User {
	t.Helper()
	user, err := service.CreateUser(context.Background(), id, "User "+id, id+"@example.com", role)
	if err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", id, err)
	}
	return user
}

func post(t *testing.T, service *Service, p models.Posting) error {
	t.Helper()
	return service.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Post(ctx, p)
	})
}

func deposit(t *testing.T, service *Service, userId string, amount int64, externalId string) {
	t.Helper()
	err := post(t, service, models.Posting{
		Source:      models.World,
		Destination: models.UserAccount(userId),
		Amount:      amount,
		Type:        models.TxDeposit,
		ExternalId:  externalId,
	})
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
}

func TestPost_Deposit(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, service, "member", models.RoleMember)

	deposit(t, service, "member", 15000, "psp-1")

	wallet, err := service.GetWallet(ctx, "member")
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if wallet.Balance != 15000 {
		t.Errorf("Expected balance 15000, got %d", wallet.Balance)
	}
	if wallet.TotalEarned != 0 {
		t.Errorf("Deposits are not earnings, got total earned %d", wallet.TotalEarned)
	}

	history, err := service.GetTransactionHistory(ctx, "member", 10, 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(history))
	}
	record := history[0]
	if record.Type != models.TxDeposit || record.Amount != 15000 || record.BalanceBefore != 0 || record.BalanceAfter != 15000 {
		t.Errorf("Unexpected record: %+v", record)
	}
	if record.ExternalId != "psp-1" {
		t.Errorf("Expected external id psp-1, got %q", record.ExternalId)
	}
}

func TestPost_TransferMarksEarnings(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, service, "member", models.RoleMember)
	createTestUser(t, service, "creator", models.RoleCreator)
	deposit(t, service, "member", 10000, "psp-1")

	err := post(t, service, models.Posting{
		Source:      models.UserAccount("member"),
		Destination: models.UserAccount("creator"),
		Amount:      4000,
		Type:        models.TxSale,
		Earned:      true,
	})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	member, _ := service.GetWallet(ctx, "member")
	creator, _ := service.GetWallet(ctx, "creator")
	if member.Balance != 6000 {
		t.Errorf("Expected member balance 6000, got %d", member.Balance)
	}
	if creator.Balance != 4000 || creator.TotalEarned != 4000 {
		t.Errorf("Expected creator balance and earnings 4000, got %d / %d", creator.Balance, creator.TotalEarned)
	}
}

func TestPost_InsufficientFunds(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, service, "member", models.RoleMember)
	deposit(t, service, "member", 100, "psp-1")

	err := post(t, service, models.Posting{
		Source:      models.UserAccount("member"),
		Destination: models.EscrowAccount,
		Amount:      200,
		Type:        models.TxEscrowHold,
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	wallet, _ := service.GetWallet(ctx, "member")
	if wallet.Balance != 100 {
		t.Errorf("Balance changed after failed posting: %d", wallet.Balance)
	}
}

func TestPost_EscrowNeverOverdraws(t *testing.T) {
	service := setupTestDb(t)
	createTestUser(t, service, "creator", models.RoleCreator)

	err := post(t, service, models.Posting{
		Source:         models.EscrowAccount,
		Destination:    models.UserAccount("creator"),
		Amount:         1,
		Type:           models.TxEarning,
		AllowOverdraft: true,
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}
}

func TestPost_PlatformOverdraftAllowed(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, service, "member", models.RoleMember)

	err := post(t, service, models.Posting{
		Source:         models.PlatformAccount,
		Destination:    models.UserAccount("member"),
		Amount:         500,
		Type:           models.TxReward,
		AllowOverdraft: true,
	})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	platform, _ := service.GetWallet(ctx, models.PlatformWalletId)
	if platform.Balance != -500 {
		t.Errorf("Expected platform balance -500, got %d", platform.Balance)
	}
}

func TestPost_InvalidPostings(t *testing.T) {
	service := setupTestDb(t)
	createTestUser(t, service, "member", models.RoleMember)

	tests := []struct {
		name    string
		posting models.Posting
	}{
		{"zero amount", models.Posting{Source: models.World, Destination: models.UserAccount("member"), Amount: 0}},
		{"negative amount", models.Posting{Source: models.World, Destination: models.UserAccount("member"), Amount: -5}},
		{"same account", models.Posting{Source: models.UserAccount("member"), Destination: models.UserAccount("member"), Amount: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := post(t, service, tt.posting); !errors.Is(err, store.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPost_DuplicateExternalId(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, service, "member", models.RoleMember)
	deposit(t, service, "member", 1000, "psp-1")

	err := post(t, service, models.Posting{
		Source:      models.World,
		Destination: models.UserAccount("member"),
		Amount:      1000,
		Type:        models.TxDeposit,
		ExternalId:  "psp-1",
	})
	if !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Fatalf("Expected ErrDuplicateTransaction, got %v", err)
	}

	var seen bool
	err = service.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		seen, err = tx.HasExternalId(ctx, "psp-1")
		return err
	})
	if err != nil {
		t.Fatalf("HasExternalId failed: %v", err)
	}
	if !seen {
		t.Error("Expected psp-1 to be recorded")
	}

	wallet, _ := service.GetWallet(ctx, "member")
	if wallet.Balance != 1000 {
		t.Errorf("Expected balance 1000, got %d", wallet.Balance)
	}
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, service, "member", models.RoleMember)

	boom := errors.New("boom")
	err := service.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Post(ctx, models.Posting{
			Source:      models.World,
			Destination: models.UserAccount("member"),
			Amount:      700,
			Type:        models.TxDeposit,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	wallet, _ := service.GetWallet(ctx, "member")
	if wallet.Balance != 0 {
		t.Errorf("Expected rollback, got balance %d", wallet.Balance)
	}
	history, _ := service.GetTransactionHistory(ctx, "member", 10, 0)
	if len(history) != 0 {
		t.Errorf("Expected no records after rollback, got %d", len(history))
	}
}

func TestGetTransactionHistory_Pagination(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, service, "member", models.RoleMember)

	for i, ext := range []string{"a", "b", "c"} {
		deposit(t, service, "member", int64(100*(i+1)), ext)
	}

	page, err := service.GetTransactionHistory(ctx, "member", 2, 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(page))
	}
	if page[0].ExternalId != "c" {
		t.Errorf("Expected newest record first, got %q", page[0].ExternalId)
	}

	rest, _ := service.GetTransactionHistory(ctx, "member", 2, 2)
	if len(rest) != 1 || rest[0].ExternalId != "a" {
		t.Errorf("Unexpected second page: %+v", rest)
	}
}
