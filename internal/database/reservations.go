package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) GetReservation(ctx context.Context, reservationId string) (*models.Reservation, error) {
	zap.L().Debug("Querying reservation", zap.String("reservation_id", reservationId))
	return loadReservation(ctx, s.db, reservationId)
}

func (t *sqlTx) GetReservation(ctx context.Context, reservationId string) (*models.Reservation, error) {
	return loadReservation(ctx, t.tx, reservationId)
}

func (t *sqlTx) InsertReservation(ctx context.Context, r *models.Reservation) error {
	now := t.nowFn()
	_, err := t.tx.ExecContext(ctx, queryInsertReservation,
		r.Id, string(r.Type), r.MemberId, r.CreatorId, r.Amount, r.Fee, string(r.Status),
		r.DurationHours.String(), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	for _, e := range r.Escorts {
		_, err := t.tx.ExecContext(ctx, queryInsertReservationEscort, r.Id, e.EscortId, e.RateCents, string(e.Status))
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: escort %s listed twice", store.ErrInvalidInput, e.EscortId)
			}
			return fmt.Errorf("failed to insert reservation escort: %w", err)
		}
	}

	r.Version = 1
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// UpdateReservation persists status, flags and escort entries. The update
// only applies when the stored version still matches r.Version.
func (t *sqlTx) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	now := t.nowFn()

	var rate sql.NullString
	if r.AppliedCommissionRate != nil {
		rate = sql.NullString{String: r.AppliedCommissionRate.String(), Valid: true}
	}
	var settledAt sql.NullTime
	if r.SettledAt != nil {
		settledAt = sql.NullTime{Time: *r.SettledAt, Valid: true}
	}

	result, err := t.tx.ExecContext(ctx, queryUpdateReservation,
		string(r.Status), r.MemberPresenceConfirmed, r.CreatorPresenceConfirmed, rate,
		r.CancelledBy, settledAt, now, r.Id, r.Version)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("reservation %s update failed - %w", r.Id, store.ErrConcurrentModification)
	}

	for _, e := range r.Escorts {
		var respondedAt sql.NullTime
		if e.RespondedAt != nil {
			respondedAt = sql.NullTime{Time: *e.RespondedAt, Valid: true}
		}
		_, err := t.tx.ExecContext(ctx, queryUpdateReservationEscort,
			string(e.Status), e.PresenceConfirmed, respondedAt, r.Id, e.EscortId)
		if err != nil {
			return fmt.Errorf("failed to update escort %s: %w", e.EscortId, err)
		}
	}

	r.Version++
	r.UpdatedAt = now
	return nil
}

type rowsQueryer interface {
	queryer
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadReservation(ctx context.Context, q rowsQueryer, reservationId string) (*models.Reservation, error) {
	var r models.Reservation
	var resType, status, duration string
	var rate sql.NullString
	var settledAt sql.NullTime

	err := q.QueryRowContext(ctx, queryGetReservation, reservationId).Scan(
		&r.Id, &resType, &r.MemberId, &r.CreatorId, &r.Amount, &r.Fee, &status, &duration,
		&r.MemberPresenceConfirmed, &r.CreatorPresenceConfirmed, &rate, &r.CancelledBy,
		&r.Version, &r.CreatedAt, &r.UpdatedAt, &settledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: reservation %s", store.ErrNotFound, reservationId)
		}
		return nil, fmt.Errorf("unable to query reservation: %w", err)
	}

	r.Type = models.ReservationType(resType)
	r.Status = models.ReservationStatus(status)
	r.DurationHours, err = decimal.NewFromString(duration)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration_hours '%s': %w", duration, err)
	}
	if rate.Valid {
		applied, err := decimal.NewFromString(rate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse applied_commission_rate '%s': %w", rate.String, err)
		}
		r.AppliedCommissionRate = &applied
	}
	if settledAt.Valid {
		r.SettledAt = &settledAt.Time
	}

	rows, err := q.QueryContext(ctx, queryGetReservationEscorts, reservationId)
	if err != nil {
		return nil, fmt.Errorf("unable to query reservation escorts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.Escort
		var escortStatus string
		var respondedAt sql.NullTime
		if err := rows.Scan(&e.EscortId, &e.RateCents, &escortStatus, &e.PresenceConfirmed, &respondedAt); err != nil {
			return nil, fmt.Errorf("unable to scan escort row: %w", err)
		}
		e.Status = models.EscortStatus(escortStatus)
		if respondedAt.Valid {
			e.RespondedAt = &respondedAt.Time
		}
		r.Escorts = append(r.Escorts, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating escort rows: %w", err)
	}

	return &r, nil
}
