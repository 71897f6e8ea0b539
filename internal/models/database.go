package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformWalletId is the well-known id of the singleton platform wallet.
const PlatformWalletId = "platform"

// User represents a marketplace user
type User struct {
	Id                  string    `db:"id"`
	Name                string    `db:"name"`
	Email               string    `db:"email"`
	Role                string    `db:"role"`
	Verified            bool      `db:"verified"`
	Profile             Profile   `db:"-"`
	HasMadeFirstSale    bool      `db:"has_made_first_sale"`
	HasCompletedProfile bool      `db:"has_completed_profile"`
	HasMadeFirstDeposit bool      `db:"has_made_first_deposit"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

// User roles
const (
	RoleMember  = "member"
	RoleCreator = "creator"
	RoleEscort  = "escort"
	RoleAdmin   = "admin"
)

// Profile holds the public creator profile fields that the
// profile completion bonus looks at.
type Profile struct {
	AvatarURL string   `json:"avatarUrl"`
	BannerURL string   `json:"bannerUrl"`
	Bio       string   `json:"bio"`
	Gallery   []string `json:"gallery"`
}

// BonusKind names a one-shot reward guarded by a per-user flag.
type BonusKind string

const (
	BonusFirstSale         BonusKind = "first_sale"
	BonusProfileCompletion BonusKind = "profile_completion"
	BonusWelcome           BonusKind = "welcome"
)

// Wallet represents the current state of a user or platform wallet.
// EscrowBalance is only ever non-zero on the platform wallet.
type Wallet struct {
	Id            string    `db:"id"`
	Balance       int64     `db:"balance"`
	EscrowBalance int64     `db:"escrow_balance"`
	TotalEarned   int64     `db:"total_earned"`
	RewardPoints  int64     `db:"reward_points"`
	Version       int64     `db:"version"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// WalletField names the mutable column of a wallet a ledger record applies to.
type WalletField string

const (
	FieldBalance      WalletField = "balance"
	FieldEscrow       WalletField = "escrow_balance"
	FieldRewardPoints WalletField = "reward_points"
)

// TransactionType classifies a ledger record.
type TransactionType string

const (
	TxDeposit     TransactionType = "deposit"
	TxWithdrawal  TransactionType = "withdrawal"
	TxEscrowHold  TransactionType = "escrow_hold"
	TxRefund      TransactionType = "refund"
	TxCommission  TransactionType = "commission"
	TxEarning     TransactionType = "earning"
	TxSale        TransactionType = "sale"
	TxPurchase    TransactionType = "purchase"
	TxSponsorship TransactionType = "sponsorship"
	TxReward      TransactionType = "reward"
)

// Transaction is an immutable ledger record for a single wallet mutation.
type Transaction struct {
	Id            string          `db:"id"`
	WalletId      string          `db:"wallet_id"`
	Type          TransactionType `db:"transaction_type"`
	Field         WalletField     `db:"field"`
	Amount        int64           `db:"amount"`
	BalanceBefore int64           `db:"balance_before"`
	BalanceAfter  int64           `db:"balance_after"`
	Description   string          `db:"description"`
	Reference     string          `db:"reference"`
	ExternalId    string          `db:"external_id"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Account identifies one side of a money movement. An empty WalletId is the
// world outside the system (deposits come from it, withdrawals go to it).
type Account struct {
	WalletId string
	Field    WalletField
}

// World is the external counterparty of deposits and withdrawals.
var World = Account{}

// UserAccount returns the spendable balance of a user wallet.
func UserAccount(userId string) Account {
	return Account{WalletId: userId, Field: FieldBalance}
}

// PlatformAccount is the platform's revenue balance.
var PlatformAccount = Account{WalletId: PlatformWalletId, Field: FieldBalance}

// EscrowAccount is the escrow sub-balance held on the platform wallet.
var EscrowAccount = Account{WalletId: PlatformWalletId, Field: FieldEscrow}

// IsWorld reports whether the account is outside the system.
func (a Account) IsWorld() bool { return a.WalletId == "" }

// String renders the account as a colon separated ledger address.
func (a Account) String() string {
	switch {
	case a.IsWorld():
		return "world"
	case a.WalletId == PlatformWalletId && a.Field == FieldEscrow:
		return "platform:escrow"
	case a.WalletId == PlatformWalletId:
		return "platform:revenue"
	default:
		return "users:" + a.WalletId
	}
}

// Posting moves Amount cents from Source to Destination. Earned marks
// income for the destination and also raises its total earned counter.
type Posting struct {
	Source         Account
	Destination    Account
	Amount         int64
	Type           TransactionType
	Description    string
	Reference      string
	ExternalId     string
	Earned         bool
	AllowOverdraft bool
}

// JournalEntry is the double-entry row persisted for every posting.
type JournalEntry struct {
	Id                 string          `db:"id" json:"id"`
	SourceAccount      string          `db:"source_account" json:"source"`
	DestinationAccount string          `db:"destination_account" json:"destination"`
	Amount             int64           `db:"amount" json:"amount"`
	Type               TransactionType `db:"transaction_type" json:"type"`
	Reference          string          `db:"reference" json:"reference"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
}

// ReservationType distinguishes bookings from goods orders.
type ReservationType string

const (
	ReservationService       ReservationType = "service"
	ReservationEstablishment ReservationType = "establishment"
	ReservationProduct       ReservationType = "product"
)

// ReservationStatus is the lifecycle state of a reservation or order.
type ReservationStatus string

const (
	StatusPending         ReservationStatus = "pending"
	StatusPendingDelivery ReservationStatus = "pending_delivery"
	StatusConfirmed       ReservationStatus = "confirmed"
	StatusCancelled       ReservationStatus = "cancelled"
	StatusCompleted       ReservationStatus = "completed"
)

// IsTerminal reports whether no further transition is possible.
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// EscortStatus is an escort's answer to a booking invitation.
type EscortStatus string

const (
	EscortPending   EscortStatus = "pending"
	EscortConfirmed EscortStatus = "confirmed"
	EscortDeclined  EscortStatus = "declined"
)

// Escort is a secondary participant of a booking paid per hour.
type Escort struct {
	EscortId          string       `db:"escort_id"`
	RateCents         int64        `db:"rate"`
	Status            EscortStatus `db:"status"`
	PresenceConfirmed bool         `db:"presence_confirmed"`
	RespondedAt       *time.Time   `db:"responded_at"`
}

// Reservation is a booking or goods order whose amount sits in escrow.
type Reservation struct {
	Id                       string            `db:"id"`
	Type                     ReservationType   `db:"type"`
	MemberId                 string            `db:"member_id"`
	CreatorId                string            `db:"creator_id"`
	Amount                   int64             `db:"amount"`
	Fee                      int64             `db:"fee"`
	Status                   ReservationStatus `db:"status"`
	DurationHours            decimal.Decimal   `db:"duration_hours"`
	Escorts                  []Escort          `db:"-"`
	MemberPresenceConfirmed  bool              `db:"member_confirmed"`
	CreatorPresenceConfirmed bool              `db:"creator_confirmed"`
	AppliedCommissionRate    *decimal.Decimal  `db:"applied_commission_rate"`
	CancelledBy              string            `db:"cancelled_by"`
	Version                  int64             `db:"version"`
	CreatedAt                time.Time         `db:"created_at"`
	UpdatedAt                time.Time         `db:"updated_at"`
	SettledAt                *time.Time        `db:"settled_at"`
}

// Escort returns the escort entry for id, or nil.
func (r *Reservation) Escort(id string) *Escort {
	for i := range r.Escorts {
		if r.Escorts[i].EscortId == id {
			return &r.Escorts[i]
		}
	}
	return nil
}

// ConservationReport compares the money inside the system with the net
// amount that entered it from outside.
type ConservationReport struct {
	UserBalances     int64 `json:"userBalances"`
	PlatformBalance  int64 `json:"platformBalance"`
	EscrowBalance    int64 `json:"escrowBalance"`
	TotalDeposits    int64 `json:"totalDeposits"`
	TotalWithdrawals int64 `json:"totalWithdrawals"`
	Difference       int64 `json:"difference"`
}

// Balanced reports whether held money equals deposits minus withdrawals.
func (c *ConservationReport) Balanced() bool { return c.Difference == 0 }

// OutboxEvent is a committed business event waiting to be relayed.
type OutboxEvent struct {
	Id          string            `db:"id" json:"id"`
	EventType   string            `db:"event_type" json:"eventType"`
	AggregateId string            `db:"aggregate_id" json:"aggregateId"`
	Attributes  map[string]string `db:"-" json:"attributes,omitempty"`
	Postings    []JournalEntry    `db:"-" json:"postings,omitempty"`
	Attempts    int               `db:"attempts" json:"-"`
	LastError   string            `db:"last_error" json:"-"`
	CreatedAt   time.Time         `db:"created_at" json:"occurredAt"`
}

// Outbox event types
const (
	EventReservationCreated   = "reservation.created"
	EventReservationAccepted  = "reservation.accepted"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationSettled   = "reservation.settled"
	EventPresenceConfirmed    = "reservation.presence_confirmed"
	EventEscortResponded      = "reservation.escort_responded"
	EventDeposit              = "wallet.deposit"
	EventWithdrawal           = "wallet.withdrawal"
	EventContactPass          = "purchase.contact_pass"
	EventSponsorship          = "purchase.sponsorship"
	EventBonusAwarded         = "bonus.awarded"
)
