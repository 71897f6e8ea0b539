// Package confirmation decides who must confirm a reservation and when the
// confirmation set is complete. It performs no I/O.
package confirmation

import (
	"fmt"
	"time"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"
)

// Phase is the confirmation phase derived from a reservation.
type Phase string

const (
	PhaseAwaiting  Phase = "awaiting_confirmation"
	PhaseCompleted Phase = "completed"
	PhaseCancelled Phase = "cancelled"
)

// Role is the part an actor plays in a reservation.
type Role string

const (
	RoleNone    Role = ""
	RoleMember  Role = "member"
	RoleCreator Role = "creator"
	RoleEscort  Role = "escort"
)

// State is the tagged confirmation state. ConfirmedBy and Outstanding are
// only meaningful while awaiting.
type State struct {
	Phase       Phase
	ConfirmedBy []string
	Outstanding []string
}

// Terminal reports whether every required party has confirmed.
func (s State) Terminal() bool {
	return s.Phase == PhaseAwaiting && len(s.Outstanding) == 0
}

// RequiredParties returns the member, the creator and every escort whose
// invitation was accepted. Pending or declined escorts are not required.
func RequiredParties(r *models.Reservation) []string {
	parties := []string{r.MemberId, r.CreatorId}
	for _, e := range r.Escorts {
		if e.Status == models.EscortConfirmed {
			parties = append(parties, e.EscortId)
		}
	}
	return parties
}

// Evaluate derives the confirmation state from the stored flags.
func Evaluate(r *models.Reservation) State {
	switch r.Status {
	case models.StatusCompleted:
		return State{Phase: PhaseCompleted}
	case models.StatusCancelled:
		return State{Phase: PhaseCancelled}
	}

	state := State{Phase: PhaseAwaiting}
	for _, party := range RequiredParties(r) {
		if hasConfirmed(r, party) {
			state.ConfirmedBy = append(state.ConfirmedBy, party)
		} else {
			state.Outstanding = append(state.Outstanding, party)
		}
	}
	return state
}

// RoleOf returns the role of actorId in r.
func RoleOf(r *models.Reservation, actorId string) Role {
	switch {
	case actorId == "":
		return RoleNone
	case actorId == r.MemberId:
		return RoleMember
	case actorId == r.CreatorId:
		return RoleCreator
	case r.Escort(actorId) != nil:
		return RoleEscort
	default:
		return RoleNone
	}
}

// RecordConfirmation sets the actor's presence flag on r and returns the
// resulting state. A Terminal state means settlement must run in the same
// transaction before r is marked completed.
func RecordConfirmation(r *models.Reservation, actorId string) (State, error) {
	if r.Status != models.StatusConfirmed && r.Status != models.StatusPendingDelivery {
		return State{}, fmt.Errorf("%w: reservation %s is %s", store.ErrInvalidState, r.Id, r.Status)
	}

	switch RoleOf(r, actorId) {
	case RoleMember:
		if r.MemberPresenceConfirmed {
			return State{}, fmt.Errorf("member %w", store.ErrAlreadyConfirmed)
		}
		r.MemberPresenceConfirmed = true
	case RoleCreator:
		if r.CreatorPresenceConfirmed {
			return State{}, fmt.Errorf("creator %w", store.ErrAlreadyConfirmed)
		}
		r.CreatorPresenceConfirmed = true
	case RoleEscort:
		escort := r.Escort(actorId)
		if escort.Status != models.EscortConfirmed {
			return State{}, fmt.Errorf("%w: escort %s invitation is %s", store.ErrInvalidState, actorId, escort.Status)
		}
		if escort.PresenceConfirmed {
			return State{}, fmt.Errorf("escort %w", store.ErrAlreadyConfirmed)
		}
		escort.PresenceConfirmed = true
	default:
		return State{}, fmt.Errorf("%w: %s on reservation %s", store.ErrUnauthorized, actorId, r.Id)
	}

	return Evaluate(r), nil
}

// RecordEscortResponse stores an escort's answer to the invitation. It is
// accepted once, while the invitation is pending, and never completes the
// reservation. Answers are refused once both the member and the creator
// confirmed presence, since a decline could no longer be settled.
func RecordEscortResponse(r *models.Reservation, escortId string, status models.EscortStatus, at time.Time) error {
	if status != models.EscortConfirmed && status != models.EscortDeclined {
		return fmt.Errorf("%w: escort status must be confirmed or declined, got %q", store.ErrInvalidInput, status)
	}
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: reservation %s is %s", store.ErrInvalidState, r.Id, r.Status)
	}
	if r.MemberPresenceConfirmed && r.CreatorPresenceConfirmed {
		return fmt.Errorf("%w: reservation %s is already underway", store.ErrInvalidState, r.Id)
	}

	escort := r.Escort(escortId)
	if escort == nil {
		return fmt.Errorf("%w: %s is not invited to reservation %s", store.ErrUnauthorized, escortId, r.Id)
	}
	if escort.Status != models.EscortPending {
		return fmt.Errorf("%w: escort %s already answered %s", store.ErrInvalidState, escortId, escort.Status)
	}

	escort.Status = status
	escort.RespondedAt = &at
	return nil
}

func hasConfirmed(r *models.Reservation, party string) bool {
	switch {
	case party == r.MemberId:
		return r.MemberPresenceConfirmed
	case party == r.CreatorId:
		return r.CreatorPresenceConfirmed
	}
	if e := r.Escort(party); e != nil {
		return e.PresenceConfirmed
	}
	return false
}
