// Package settlement turns a completed or cancelled reservation into the
// ledger postings that empty its escrow.
package settlement

import (
	"context"
	"fmt"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/money"
	"marketplace-escrow-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Plan is the full set of postings for one reservation. Every posting
// draws from escrow and together they release exactly the reservation
// amount.
type Plan struct {
	ReservationId string
	Type          models.ReservationType
	Refund        bool
	Rate          decimal.Decimal
	Postings      []models.Posting
	PlatformTotal int64
	PayeeNet      map[string]int64
	// SellerId is set for product orders so the caller can run the first
	// sale bonus for the seller.
	SellerId string
}

// PlanCompletion computes the split for a reservation whose confirmation set
// just became complete, using rate as the platform commission.
func PlanCompletion(r *models.Reservation, rate decimal.Decimal) (*Plan, error) {
	if r.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: reservation %s is already %s", store.ErrInvalidState, r.Id, r.Status)
	}
	if err := money.ValidateRate(rate); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrConfiguration, err)
	}
	if r.Amount <= 0 || r.Fee < 0 || r.Fee > r.Amount {
		return nil, fmt.Errorf("%w: reservation %s has amount %d and fee %d", store.ErrInvalidState, r.Id, r.Amount, r.Fee)
	}

	plan := &Plan{
		ReservationId: r.Id,
		Type:          r.Type,
		Rate:          rate,
		PayeeNet:      map[string]int64{},
	}

	switch r.Type {
	case models.ReservationService, models.ReservationEstablishment:
		if err := plan.addBooking(r); err != nil {
			return nil, err
		}
	case models.ReservationProduct:
		plan.addSale(r)
	default:
		return nil, fmt.Errorf("%w: unknown reservation type %q", store.ErrInvalidState, r.Type)
	}

	if released := plan.Released(); released != r.Amount {
		return nil, fmt.Errorf("settlement of %s releases %d, escrow holds %d", r.Id, released, r.Amount)
	}
	return plan, nil
}

// PlanRefund returns the whole escrowed amount to the member.
func PlanRefund(r *models.Reservation) (*Plan, error) {
	if r.Status == models.StatusCompleted {
		return nil, fmt.Errorf("%w: reservation %s was already settled", store.ErrInvalidState, r.Id)
	}
	plan := &Plan{
		ReservationId: r.Id,
		Type:          r.Type,
		Refund:        true,
		PayeeNet:      map[string]int64{r.MemberId: r.Amount},
	}
	plan.release(models.UserAccount(r.MemberId), r.Amount, models.TxRefund, false,
		fmt.Sprintf("Refund for cancelled %s %s", r.Type, r.Id))
	return plan, nil
}

func (p *Plan) addBooking(r *models.Reservation) error {
	if r.Fee > 0 {
		p.release(models.PlatformAccount, r.Fee, models.TxCommission, true,
			fmt.Sprintf("Platform fee for %s %s", r.Type, r.Id))
		p.PlatformTotal += r.Fee
	}

	remainder := r.Amount - r.Fee
	for _, e := range r.Escorts {
		if e.Status != models.EscortConfirmed {
			continue
		}
		gross := money.HourlyGross(e.RateCents, r.DurationHours)
		if gross > remainder {
			return fmt.Errorf("%w: escort payouts exceed net revenue of %s", store.ErrInvalidState, r.Id)
		}
		remainder -= gross
		p.payout(e.EscortId, gross, models.TxEarning,
			fmt.Sprintf("Commission on escort %s for %s", e.EscortId, r.Id),
			fmt.Sprintf("Escort earnings for %s", r.Id))
	}

	p.payout(r.CreatorId, remainder, models.TxEarning,
		fmt.Sprintf("Commission on %s %s", r.Type, r.Id),
		fmt.Sprintf("Earnings for %s %s", r.Type, r.Id))
	return nil
}

func (p *Plan) addSale(r *models.Reservation) {
	p.SellerId = r.CreatorId
	p.payout(r.CreatorId, r.Amount, models.TxSale,
		fmt.Sprintf("Commission on order %s", r.Id),
		fmt.Sprintf("Sale proceeds for order %s", r.Id))
}

// payout splits gross between the platform commission and the payee net.
func (p *Plan) payout(payeeId string, gross int64, payeeType models.TransactionType, commissionDesc, netDesc string) {
	commission, net := money.Split(gross, p.Rate)
	p.release(models.PlatformAccount, commission, models.TxCommission, true, commissionDesc)
	p.release(models.UserAccount(payeeId), net, payeeType, true, netDesc)
	p.PlatformTotal += commission
	p.PayeeNet[payeeId] += net
}

func (p *Plan) release(to models.Account, amount int64, txType models.TransactionType, earned bool, description string) {
	if amount <= 0 {
		return
	}
	p.Postings = append(p.Postings, models.Posting{
		Source:      models.EscrowAccount,
		Destination: to,
		Amount:      amount,
		Type:        txType,
		Description: description,
		Reference:   p.ReservationId,
		Earned:      earned,
	})
}

// Released is the total drawn from escrow by the plan.
func (p *Plan) Released() int64 {
	var total int64
	for _, posting := range p.Postings {
		total += posting.Amount
	}
	return total
}

// Execute applies every posting of the plan inside tx. Any failure leaves
// the caller's transaction to roll back as a whole.
func Execute(ctx context.Context, tx store.Tx, plan *Plan) error {
	for _, posting := range plan.Postings {
		if err := tx.Post(ctx, posting); err != nil {
			return fmt.Errorf("settlement of %s failed: %w", plan.ReservationId, err)
		}
	}

	zap.L().Debug("Settlement postings applied",
		zap.String("reservation_id", plan.ReservationId),
		zap.String("type", string(plan.Type)),
		zap.Bool("refund", plan.Refund),
		zap.String("commission_rate", plan.Rate.String()),
		zap.Int64("released", plan.Released()),
		zap.Int64("platform_total", plan.PlatformTotal))
	return nil
}
