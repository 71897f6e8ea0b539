package api

import (
	"context"
	"errors"
	"fmt"

	"marketplace-escrow-go/internal/bonus"
	"marketplace-escrow-go/internal/confirmation"
	"marketplace-escrow-go/internal/metrics"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/money"
	"marketplace-escrow-go/internal/settlement"
	"marketplace-escrow-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateReservation books a service or orders a product and moves the full
// amount from the member's balance into escrow.
func (s *EscrowService) CreateReservation(ctx context.Context, req *models.CreateReservationRequest) (*models.ReservationView, error) {
	r, err := newReservation(req)
	if err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return err
		}
		if err := checkParties(ctx, tx, r); err != nil {
			return err
		}

		r.Fee = 0
		if r.Type != models.ReservationProduct {
			r.Fee = settings.PlatformFee
		}
		if r.Fee > r.Amount {
			return fmt.Errorf("%w: amount %s does not cover the platform fee %s",
				store.ErrInvalidInput, money.Format(r.Amount), money.Format(r.Fee))
		}
		var escortTotal int64
		for _, e := range r.Escorts {
			escortTotal += money.HourlyGross(e.RateCents, r.DurationHours)
		}
		if escortTotal > r.Amount-r.Fee {
			return fmt.Errorf("%w: escort payouts %s exceed the amount net of fees %s",
				store.ErrInvalidInput, money.Format(escortTotal), money.Format(r.Amount-r.Fee))
		}

		if err := tx.InsertReservation(ctx, r); err != nil {
			return err
		}
		err = tx.Post(ctx, models.Posting{
			Source:      models.UserAccount(r.MemberId),
			Destination: models.EscrowAccount,
			Amount:      r.Amount,
			Type:        models.TxEscrowHold,
			Description: fmt.Sprintf("Escrow hold for %s %s", r.Type, r.Id),
			Reference:   r.Id,
		})
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, models.EventReservationCreated, r.Id, map[string]string{
			"type":      string(r.Type),
			"memberId":  r.MemberId,
			"creatorId": r.CreatorId,
			"amount":    money.Format(r.Amount),
		})
	})
	if err != nil {
		zap.L().Warn("Reservation rejected",
			zap.String("type", string(req.Type)),
			zap.String("member_id", req.MemberId),
			zap.String("creator_id", req.CreatorId),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("Reservation created",
		zap.String("reservation_id", r.Id),
		zap.String("type", string(r.Type)),
		zap.String("amount", money.Format(r.Amount)),
		zap.String("fee", money.Format(r.Fee)),
		zap.Int("escorts", len(r.Escorts)))

	view := reservationView(r)
	return &view, nil
}

func newReservation(req *models.CreateReservationRequest) (*models.Reservation, error) {
	if req.MemberId == "" || req.CreatorId == "" {
		return nil, fmt.Errorf("%w: memberId and creatorId are required", store.ErrInvalidInput)
	}
	if req.MemberId == req.CreatorId {
		return nil, fmt.Errorf("%w: member and creator must differ", store.ErrInvalidInput)
	}
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	r := &models.Reservation{
		Id:            uuid.New().String(),
		Type:          req.Type,
		MemberId:      req.MemberId,
		CreatorId:     req.CreatorId,
		Amount:        amount,
		Status:        models.StatusPending,
		DurationHours: decimal.Zero,
	}

	switch req.Type {
	case models.ReservationProduct:
		if len(req.Escorts) > 0 {
			return nil, fmt.Errorf("%w: product orders take no escorts", store.ErrInvalidInput)
		}
		return r, nil
	case models.ReservationService, models.ReservationEstablishment:
	default:
		return nil, fmt.Errorf("%w: unknown reservation type %q", store.ErrInvalidInput, req.Type)
	}

	hours, err := decimal.NewFromString(req.DurationHours)
	if err != nil || !hours.IsPositive() {
		return nil, fmt.Errorf("%w: durationHours must be a positive number", store.ErrInvalidInput)
	}
	r.DurationHours = hours

	seen := map[string]bool{}
	for _, invite := range req.Escorts {
		if invite.EscortId == "" || invite.EscortId == r.MemberId || invite.EscortId == r.CreatorId {
			return nil, fmt.Errorf("%w: escort %q must be a distinct party", store.ErrInvalidInput, invite.EscortId)
		}
		if seen[invite.EscortId] {
			return nil, fmt.Errorf("%w: escort %s listed twice", store.ErrInvalidInput, invite.EscortId)
		}
		seen[invite.EscortId] = true

		rate, err := money.Parse(invite.Rate)
		if err != nil || rate < 0 {
			return nil, fmt.Errorf("%w: escort %s rate %q", store.ErrInvalidInput, invite.EscortId, invite.Rate)
		}
		r.Escorts = append(r.Escorts, models.Escort{
			EscortId:  invite.EscortId,
			RateCents: rate,
			Status:    models.EscortPending,
		})
	}
	return r, nil
}

func checkParties(ctx context.Context, tx store.Tx, r *models.Reservation) error {
	if _, err := tx.GetUser(ctx, r.MemberId); err != nil {
		return err
	}
	creator, err := tx.GetUser(ctx, r.CreatorId)
	if err != nil {
		return err
	}
	if creator.Role != models.RoleCreator {
		return fmt.Errorf("%w: %s is not a creator", store.ErrInvalidInput, r.CreatorId)
	}
	for _, e := range r.Escorts {
		escort, err := tx.GetUser(ctx, e.EscortId)
		if err != nil {
			return err
		}
		if escort.Role != models.RoleEscort {
			return fmt.Errorf("%w: %s is not an escort", store.ErrInvalidInput, e.EscortId)
		}
	}
	return nil
}

func (s *EscrowService) GetReservation(ctx context.Context, reservationId string) (*models.ReservationView, error) {
	r, err := s.store.GetReservation(ctx, reservationId)
	if err != nil {
		return nil, err
	}
	view := reservationView(r)
	return &view, nil
}

// ConfirmPresence records actorId's presence. The confirmation that completes
// the required set settles the reservation in the same transaction, using
// the commission rate in force at that moment.
func (s *EscrowService) ConfirmPresence(ctx context.Context, reservationId, actorId string) (*models.ConfirmationResult, error) {
	var (
		result *models.ConfirmationResult
		plan   *settlement.Plan
		award  *bonus.Award
	)

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		result, plan, award = nil, nil, nil

		r, err := tx.GetReservation(ctx, reservationId)
		if err != nil {
			return err
		}
		state, err := confirmation.RecordConfirmation(r, actorId)
		if err != nil {
			return err
		}

		event := models.EventPresenceConfirmed
		if state.Terminal() {
			settings, err := tx.GetSettings(ctx)
			if err != nil {
				return err
			}
			plan, err = settlement.PlanCompletion(r, settings.PlatformCommissionRate)
			if err != nil {
				return err
			}
			if err := settlement.Execute(ctx, tx, plan); err != nil {
				return err
			}

			now := s.nowFn()
			rate := plan.Rate
			r.Status = models.StatusCompleted
			r.AppliedCommissionRate = &rate
			r.SettledAt = &now

			if plan.SellerId != "" {
				award, err = bonus.EvaluateFirstSale(ctx, tx, plan.SellerId, r.Id, settings)
				if err != nil {
					return err
				}
			}
			event = models.EventReservationSettled
		}

		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		if err := tx.Enqueue(ctx, event, r.Id, map[string]string{"actorId": actorId}); err != nil {
			return err
		}

		result = &models.ConfirmationResult{
			Reservation: reservationView(r),
			Completed:   plan != nil,
			WaitingFor:  state.Outstanding,
		}
		if plan != nil {
			result.Settlement = &models.SettlementSummary{
				CommissionRate: plan.Rate.String(),
				PlatformTotal:  money.Format(plan.PlatformTotal),
				PayeeNet:       formatPayees(plan.PayeeNet),
			}
		}
		return nil
	})
	if err != nil {
		outcome := "rejected"
		if errors.Is(err, store.ErrAlreadyConfirmed) {
			outcome = "duplicate"
		}
		metrics.Escrow().ObserveConfirmation(outcome)
		zap.L().Warn("Presence confirmation failed",
			zap.String("reservation_id", reservationId),
			zap.String("actor_id", actorId),
			zap.Error(err))
		return nil, err
	}

	if plan == nil {
		metrics.Escrow().ObserveConfirmation("recorded")
		zap.L().Info("Presence confirmed",
			zap.String("reservation_id", reservationId),
			zap.String("actor_id", actorId),
			zap.Strings("waiting_for", result.WaitingFor))
		return result, nil
	}

	metrics.Escrow().ObserveConfirmation("completed")
	metrics.Escrow().ObserveSettlement(string(plan.Type), "settled")
	metrics.Escrow().AddSettledCents("platform", plan.PlatformTotal)
	for _, net := range plan.PayeeNet {
		metrics.Escrow().AddSettledCents("payee", net)
	}
	award.Report()

	zap.L().Info("Reservation settled",
		zap.String("reservation_id", reservationId),
		zap.String("type", string(plan.Type)),
		zap.String("commission_rate", plan.Rate.String()),
		zap.String("platform_total", money.Format(plan.PlatformTotal)),
		zap.Int("payees", len(plan.PayeeNet)))
	return result, nil
}

// UpdateEscortStatus stores an escort's answer to a booking invitation.
func (s *EscrowService) UpdateEscortStatus(ctx context.Context, reservationId, escortId string, status models.EscortStatus) (*models.ReservationView, error) {
	var view models.ReservationView

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := tx.GetReservation(ctx, reservationId)
		if err != nil {
			return err
		}
		if err := confirmation.RecordEscortResponse(r, escortId, status, s.nowFn()); err != nil {
			return err
		}
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		view = reservationView(r)
		return tx.Enqueue(ctx, models.EventEscortResponded, r.Id, map[string]string{
			"escortId": escortId,
			"status":   string(status),
		})
	})
	if err != nil {
		zap.L().Warn("Escort response rejected",
			zap.String("reservation_id", reservationId),
			zap.String("escort_id", escortId),
			zap.String("status", string(status)),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("Escort responded",
		zap.String("reservation_id", reservationId),
		zap.String("escort_id", escortId),
		zap.String("status", string(status)))
	return &view, nil
}

// UpdateStatus accepts or cancels a reservation. Cancelling refunds the
// escrowed amount to the member in the same transaction.
func (s *EscrowService) UpdateStatus(ctx context.Context, reservationId, actorId string, target models.ReservationStatus) (*models.ReservationView, error) {
	var (
		view   models.ReservationView
		refund *settlement.Plan
	)

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		refund = nil

		r, err := tx.GetReservation(ctx, reservationId)
		if err != nil {
			return err
		}
		if err := confirmation.ApplyStatus(r, actorId, target); err != nil {
			return err
		}

		event := models.EventReservationAccepted
		if r.Status == models.StatusCancelled {
			refund, err = settlement.PlanRefund(r)
			if err != nil {
				return err
			}
			if err := settlement.Execute(ctx, tx, refund); err != nil {
				return err
			}
			event = models.EventReservationCancelled
		}

		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		view = reservationView(r)
		return tx.Enqueue(ctx, event, r.Id, map[string]string{
			"actorId": actorId,
			"status":  string(r.Status),
		})
	})
	if err != nil {
		zap.L().Warn("Status change rejected",
			zap.String("reservation_id", reservationId),
			zap.String("actor_id", actorId),
			zap.String("target", string(target)),
			zap.Error(err))
		return nil, err
	}

	if refund != nil {
		metrics.Escrow().ObserveSettlement(string(refund.Type), "refunded")
		metrics.Escrow().AddSettledCents("refund", refund.Released())
	}
	zap.L().Info("Reservation status updated",
		zap.String("reservation_id", reservationId),
		zap.String("actor_id", actorId),
		zap.String("status", string(view.Status)))
	return &view, nil
}
