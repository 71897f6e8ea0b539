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

package api

import (
	"context"
	"fmt"
	"time"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/money"
	"marketplace-escrow-go/internal/store"
)

// EscrowService is the application layer behind the HTTP API and the CLIs.
// Every money movement runs inside a single store transaction.
type EscrowService struct {
	store store.EscrowStore
	nowFn func() time.Time
}

func NewEscrowService(s store.EscrowStore) *EscrowService {
	return &EscrowService{
		store: s,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (s *EscrowService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if _, err := s.store.GetSettings(ctx); err != nil {
		return fmt.Errorf("settings health check failed: %w", err)
	}
	return nil
}

func walletView(w *models.Wallet) *models.WalletView {
	view := &models.WalletView{
		Id:           w.Id,
		Balance:      money.Format(w.Balance),
		TotalEarned:  money.Format(w.TotalEarned),
		RewardPoints: w.RewardPoints,
		UpdatedAt:    w.UpdatedAt,
	}
	if w.Id == models.PlatformWalletId {
		view.EscrowBalance = money.Format(w.EscrowBalance)
	}
	return view
}

func transactionRecord(tx models.Transaction) models.TransactionRecord {
	format := money.Format
	if tx.Field == models.FieldRewardPoints {
		format = func(v int64) string { return fmt.Sprintf("%d", v) }
	}
	return models.TransactionRecord{
		Id:            tx.Id,
		Type:          tx.Type,
		Field:         tx.Field,
		Amount:        format(tx.Amount),
		BalanceBefore: format(tx.BalanceBefore),
		BalanceAfter:  format(tx.BalanceAfter),
		Description:   tx.Description,
		Reference:     tx.Reference,
		Status:        tx.Status,
		CreatedAt:     tx.CreatedAt,
	}
}

func reservationView(r *models.Reservation) models.ReservationView {
	view := models.ReservationView{
		Id:                       r.Id,
		Type:                     r.Type,
		MemberId:                 r.MemberId,
		CreatorId:                r.CreatorId,
		Amount:                   money.Format(r.Amount),
		Fee:                      money.Format(r.Fee),
		Status:                   r.Status,
		MemberPresenceConfirmed:  r.MemberPresenceConfirmed,
		CreatorPresenceConfirmed: r.CreatorPresenceConfirmed,
		CreatedAt:                r.CreatedAt,
	}
	if r.Type != models.ReservationProduct {
		view.DurationHours = r.DurationHours.String()
	}
	if r.AppliedCommissionRate != nil {
		view.AppliedCommissionRate = r.AppliedCommissionRate.String()
	}
	for _, e := range r.Escorts {
		view.Escorts = append(view.Escorts, models.EscortView{
			EscortId:          e.EscortId,
			Rate:              money.Format(e.RateCents),
			Status:            e.Status,
			PresenceConfirmed: e.PresenceConfirmed,
		})
	}
	return view
}

func formatPayees(net map[string]int64) map[string]string {
	out := make(map[string]string, len(net))
	for id, cents := range net {
		out[id] = money.Format(cents)
	}
	return out
}
