package confirmation

import (
	"testing"
	"time"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func booking(escorts ...models.Escort) *models.Reservation {
	return &models.Reservation{
		Id:            "res-1",
		Type:          models.ReservationService,
		MemberId:      "member",
		CreatorId:     "creator",
		Amount:        50000,
		Status:        models.StatusConfirmed,
		DurationHours: decimal.NewFromInt(2),
		Escorts:       escorts,
	}
}

func TestRequiredPartiesExcludesUnacceptedEscorts(t *testing.T) {
	r := booking(
		models.Escort{EscortId: "e1", Status: models.EscortConfirmed},
		models.Escort{EscortId: "e2", Status: models.EscortDeclined},
		models.Escort{EscortId: "e3", Status: models.EscortPending},
	)

	assert.Equal(t, []string{"member", "creator", "e1"}, RequiredParties(r))
}

func TestRecordConfirmationTerminalOnlyWhenAllConfirmed(t *testing.T) {
	r := booking(models.Escort{EscortId: "e1", Status: models.EscortConfirmed})

	state, err := RecordConfirmation(r, "member")
	require.NoError(t, err)
	assert.False(t, state.Terminal())
	assert.Equal(t, []string{"creator", "e1"}, state.Outstanding)

	state, err = RecordConfirmation(r, "creator")
	require.NoError(t, err)
	assert.False(t, state.Terminal())
	assert.Equal(t, []string{"e1"}, state.Outstanding)

	state, err = RecordConfirmation(r, "e1")
	require.NoError(t, err)
	assert.True(t, state.Terminal())
	assert.Equal(t, []string{"member", "creator", "e1"}, state.ConfirmedBy)
}

func TestRecordConfirmationIgnoresDeclinedEscort(t *testing.T) {
	r := booking(models.Escort{EscortId: "e1", Status: models.EscortDeclined})

	_, err := RecordConfirmation(r, "member")
	require.NoError(t, err)
	state, err := RecordConfirmation(r, "creator")
	require.NoError(t, err)
	assert.True(t, state.Terminal())

	_, err = RecordConfirmation(r, "e1")
	assert.ErrorIs(t, err, store.ErrInvalidState)
}

func TestRecordConfirmationTwiceFails(t *testing.T) {
	r := booking()

	_, err := RecordConfirmation(r, "member")
	require.NoError(t, err)

	_, err = RecordConfirmation(r, "member")
	assert.ErrorIs(t, err, store.ErrAlreadyConfirmed)
	assert.ErrorIs(t, err, store.ErrInvalidState)
}

func TestRecordConfirmationUnauthorizedLeavesStateUntouched(t *testing.T) {
	r := booking()
	before := *r

	_, err := RecordConfirmation(r, "stranger")
	assert.ErrorIs(t, err, store.ErrUnauthorized)
	assert.Equal(t, before, *r)
}

func TestRecordConfirmationRequiresAcceptedReservation(t *testing.T) {
	for _, status := range []models.ReservationStatus{
		models.StatusPending, models.StatusCancelled, models.StatusCompleted,
	} {
		r := booking()
		r.Status = status
		_, err := RecordConfirmation(r, "member")
		assert.ErrorIs(t, err, store.ErrInvalidState, "status %s", status)
		assert.False(t, r.MemberPresenceConfirmed)
	}

	r := booking()
	r.Type = models.ReservationProduct
	r.Status = models.StatusPendingDelivery
	_, err := RecordConfirmation(r, "member")
	assert.NoError(t, err)
}

func TestEvaluateTerminalStatuses(t *testing.T) {
	r := booking()
	r.Status = models.StatusCompleted
	assert.Equal(t, PhaseCompleted, Evaluate(r).Phase)
	assert.False(t, Evaluate(r).Terminal())

	r.Status = models.StatusCancelled
	assert.Equal(t, PhaseCancelled, Evaluate(r).Phase)
}

func TestRecordEscortResponse(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := booking(models.Escort{EscortId: "e1", Status: models.EscortPending})

	require.NoError(t, RecordEscortResponse(r, "e1", models.EscortConfirmed, now))
	assert.Equal(t, models.EscortConfirmed, r.Escorts[0].Status)
	assert.Equal(t, now, *r.Escorts[0].RespondedAt)

	err := RecordEscortResponse(r, "e1", models.EscortDeclined, now)
	assert.ErrorIs(t, err, store.ErrInvalidState)

	err = RecordEscortResponse(r, "creator", models.EscortConfirmed, now)
	assert.ErrorIs(t, err, store.ErrUnauthorized)

	err = RecordEscortResponse(r, "e1", models.EscortPending, now)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestRecordEscortResponseNeverCompletes(t *testing.T) {
	r := booking(models.Escort{EscortId: "e1", Status: models.EscortPending})
	r.MemberPresenceConfirmed = true

	require.NoError(t, RecordEscortResponse(r, "e1", models.EscortDeclined, time.Now()))
	assert.Equal(t, models.StatusConfirmed, r.Status)
	assert.False(t, Evaluate(r).Terminal())
}

func TestRecordEscortResponseRefusedOnceUnderway(t *testing.T) {
	r := booking(models.Escort{EscortId: "e1", Status: models.EscortPending})
	r.MemberPresenceConfirmed = true
	r.CreatorPresenceConfirmed = true

	err := RecordEscortResponse(r, "e1", models.EscortDeclined, time.Now())
	assert.ErrorIs(t, err, store.ErrInvalidState)
	assert.Equal(t, models.EscortPending, r.Escorts[0].Status)
}
