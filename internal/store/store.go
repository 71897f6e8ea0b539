package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-escrow-go/internal/models"
)

// Sentinel errors shared across the core. Handlers map them to status codes.
var (
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("actor is not a party of this reservation")
	ErrInvalidState           = errors.New("invalid state")
	ErrAlreadyConfirmed       = fmt.Errorf("%w: already confirmed", ErrInvalidState)
	ErrInvalidInput           = errors.New("invalid input")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrConcurrencyConflict    = errors.New("concurrency conflict, retries exhausted")
	ErrConfiguration          = errors.New("configuration error")
)

// TxFunc runs inside a single serializable transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// Tx is the set of reads and ledger mutations available inside a transaction.
// Every mutation is either committed together with the rest of the
// transaction or discarded with it.
type Tx interface {
	// --- Users ---
	GetUser(ctx context.Context, userId string) (*models.User, error)
	UpdateProfile(ctx context.Context, userId string, profile models.Profile) error
	SetVerified(ctx context.Context, userId string) error
	// ClaimBonus flips the guard flag for kind and reports whether this call
	// did it. A false return means the bonus was already claimed.
	ClaimBonus(ctx context.Context, userId string, kind models.BonusKind) (bool, error)

	// --- Wallets and ledger ---
	GetWallet(ctx context.Context, walletId string) (*models.Wallet, error)
	Post(ctx context.Context, posting models.Posting) error
	AwardPoints(ctx context.Context, walletId string, points int64, description, reference string) error
	HasExternalId(ctx context.Context, externalId string) (bool, error)

	// --- Settings ---
	GetSettings(ctx context.Context) (*models.Settings, error)

	// --- Reservations ---
	GetReservation(ctx context.Context, reservationId string) (*models.Reservation, error)
	InsertReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservation(ctx context.Context, r *models.Reservation) error

	// --- Outbox ---
	// Enqueue records an event carrying every posting made since the
	// previous Enqueue in this transaction.
	Enqueue(ctx context.Context, eventType, aggregateId string, attributes map[string]string) error
}

// EscrowStore is the system of record used by the API service.
type EscrowStore interface {
	RunInTx(ctx context.Context, fn TxFunc) error

	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, userId, name, email, role string) (*models.User, error)

	// --- Reads ---
	GetWallet(ctx context.Context, walletId string) (*models.Wallet, error)
	GetTransactionHistory(ctx context.Context, walletId string, limit, offset int) ([]models.Transaction, error)
	GetReservation(ctx context.Context, reservationId string) (*models.Reservation, error)
	GetSettings(ctx context.Context) (*models.Settings, error)

	// --- Admin ---
	SaveSettings(ctx context.Context, settings *models.Settings) error
	ReconcileWallet(ctx context.Context, walletId string) error
	Conservation(ctx context.Context) (*models.ConservationReport, error)

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}

// OutboxStore is consumed by the event relay.
type OutboxStore interface {
	FetchPendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkEventDelivered(ctx context.Context, eventId string) error
	MarkEventFailed(ctx context.Context, eventId, reason string, maxAttempts int) error
	PurgeDeliveredEvents(ctx context.Context, olderThan time.Time) (int64, error)
}
