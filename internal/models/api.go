/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import "time"

// Amounts on the wire are decimal euro strings such as "224.00".

// EscortInvite names an escort invited to a booking with an hourly rate
type EscortInvite struct {
	EscortId string `json:"escortId"`
	Rate     string `json:"rate"`
}

// CreateReservationRequest books a service or orders a product
type CreateReservationRequest struct {
	Type          ReservationType `json:"type"`
	MemberId      string          `json:"memberId"`
	CreatorId     string          `json:"creatorId"`
	Amount        string          `json:"amount"`
	DurationHours string          `json:"durationHours,omitempty"`
	Escorts       []EscortInvite  `json:"escorts,omitempty"`
}

// ConfirmPresenceRequest is sent by one party of a reservation
type ConfirmPresenceRequest struct {
	UserId string `json:"userId"`
}

// EscortStatusRequest answers an escort invitation
type EscortStatusRequest struct {
	EscortId string       `json:"escortId"`
	Status   EscortStatus `json:"status"`
}

// UpdateStatusRequest accepts or cancels a reservation
type UpdateStatusRequest struct {
	UserId string            `json:"userId"`
	Status ReservationStatus `json:"status"`
}

// DepositRequest records an externally captured deposit
type DepositRequest struct {
	Amount     string `json:"amount"`
	ExternalId string `json:"externalId"`
}

// WithdrawRequest moves funds out of a wallet
type WithdrawRequest struct {
	Amount    string `json:"amount"`
	Reference string `json:"reference,omitempty"`
}

// CreateUserRequest registers a marketplace user
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ContactPassRequest buys direct contact access to a creator
type ContactPassRequest struct {
	MemberId  string `json:"memberId"`
	CreatorId string `json:"creatorId"`
	Amount    string `json:"amount"`
}

// SponsorshipRequest bills a creator for a sponsored placement
type SponsorshipRequest struct {
	CreatorId   string `json:"creatorId"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// RewardsRequest carries bonus amounts. Point bonuses are integers.
type RewardsRequest struct {
	ProfileCompletionBonus int64  `json:"profileCompletionBonus" yaml:"profile_completion_bonus"`
	FirstSaleBonus         int64  `json:"firstSaleBonus" yaml:"first_sale_bonus"`
	WelcomeBonusAmount     string `json:"welcomeBonusAmount" yaml:"welcome_bonus_amount"`
}

// SettingsRequest replaces the marketplace settings. The yaml tags match
// the seed file read by the setup command.
type SettingsRequest struct {
	PlatformCommissionRate string            `json:"platformCommissionRate" yaml:"platform_commission_rate"`
	PlatformFee            string            `json:"platformFee" yaml:"platform_fee"`
	Rewards                RewardsRequest    `json:"rewards" yaml:"rewards"`
	CallRates              map[string]string `json:"callRates,omitempty" yaml:"call_rates"`
	WithdrawalMinAmount    string            `json:"withdrawalMinAmount" yaml:"withdrawal_min_amount"`
	WithdrawalMaxAmount    string            `json:"withdrawalMaxAmount" yaml:"withdrawal_max_amount"`
}

// SettingsView renders settings with euro amounts
type SettingsView struct {
	PlatformCommissionRate string            `json:"platformCommissionRate"`
	PlatformFee            string            `json:"platformFee"`
	Rewards                RewardsRequest    `json:"rewards"`
	CallRates              map[string]string `json:"callRates"`
	WithdrawalMinAmount    string            `json:"withdrawalMinAmount"`
	WithdrawalMaxAmount    string            `json:"withdrawalMaxAmount"`
	UpdatedAt              time.Time         `json:"updatedAt"`
}

// WalletView is the public view of a wallet
type WalletView struct {
	Id            string    `json:"id"`
	Balance       string    `json:"balance"`
	EscrowBalance string    `json:"escrowBalance,omitempty"`
	TotalEarned   string    `json:"totalEarned"`
	RewardPoints  int64     `json:"rewardPoints"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TransactionRecord represents a ledger record in a wallet history
type TransactionRecord struct {
	Id            string          `json:"id"`
	Type          TransactionType `json:"type"`
	Field         WalletField     `json:"field"`
	Amount        string          `json:"amount"`
	BalanceBefore string          `json:"balanceBefore"`
	BalanceAfter  string          `json:"balanceAfter"`
	Description   string          `json:"description"`
	Reference     string          `json:"reference,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// EscortView is the public view of an escort entry
type EscortView struct {
	EscortId          string       `json:"escortId"`
	Rate              string       `json:"rate"`
	Status            EscortStatus `json:"status"`
	PresenceConfirmed bool         `json:"presenceConfirmed"`
}

// ReservationView is the public view of a reservation
type ReservationView struct {
	Id                       string            `json:"id"`
	Type                     ReservationType   `json:"type"`
	MemberId                 string            `json:"memberId"`
	CreatorId                string            `json:"creatorId"`
	Amount                   string            `json:"amount"`
	Fee                      string            `json:"fee"`
	Status                   ReservationStatus `json:"status"`
	DurationHours            string            `json:"durationHours,omitempty"`
	Escorts                  []EscortView      `json:"escorts,omitempty"`
	MemberPresenceConfirmed  bool              `json:"memberPresenceConfirmed"`
	CreatorPresenceConfirmed bool              `json:"creatorPresenceConfirmed"`
	AppliedCommissionRate    string            `json:"appliedCommissionRate,omitempty"`
	CreatedAt                time.Time         `json:"createdAt"`
}

// SettlementSummary describes the split applied when a reservation completed
type SettlementSummary struct {
	CommissionRate string            `json:"commissionRate"`
	PlatformTotal  string            `json:"platformTotal"`
	PayeeNet       map[string]string `json:"payeeNet"`
}

// ConfirmationResult is returned by a presence confirmation
type ConfirmationResult struct {
	Reservation ReservationView    `json:"reservation"`
	Completed   bool               `json:"completed"`
	WaitingFor  []string           `json:"waitingFor,omitempty"`
	Settlement  *SettlementSummary `json:"settlement,omitempty"`
}
