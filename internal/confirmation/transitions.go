package confirmation

import (
	"fmt"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"
)

// ApplyStatus validates and applies an explicit status change requested by
// actorId. The creator accepts a pending reservation; any party may cancel a
// non-terminal one. Completion is never reachable here.
func ApplyStatus(r *models.Reservation, actorId string, target models.ReservationStatus) error {
	role := RoleOf(r, actorId)
	if role == RoleNone {
		return fmt.Errorf("%w: %s on reservation %s", store.ErrUnauthorized, actorId, r.Id)
	}
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: reservation %s is already %s", store.ErrInvalidState, r.Id, r.Status)
	}

	switch target {
	case models.StatusConfirmed, models.StatusPendingDelivery:
		if role != RoleCreator {
			return fmt.Errorf("%w: only the creator can accept reservation %s", store.ErrUnauthorized, r.Id)
		}
		if r.Status != models.StatusPending {
			return fmt.Errorf("%w: reservation %s is %s, not pending", store.ErrInvalidState, r.Id, r.Status)
		}
		if want := AcceptedStatus(r.Type); target != want {
			return fmt.Errorf("%w: a %s reservation is accepted as %s", store.ErrInvalidInput, r.Type, want)
		}
		r.Status = target

	case models.StatusCancelled:
		r.Status = models.StatusCancelled
		r.CancelledBy = actorId

	case models.StatusCompleted:
		return fmt.Errorf("%w: completion requires every party to confirm presence", store.ErrInvalidState)

	default:
		return fmt.Errorf("%w: unknown status %q", store.ErrInvalidInput, target)
	}
	return nil
}

// AcceptedStatus is the status a reservation of type t moves to when the
// creator accepts it.
func AcceptedStatus(t models.ReservationType) models.ReservationStatus {
	if t == models.ReservationProduct {
		return models.StatusPendingDelivery
	}
	return models.StatusConfirmed
}
