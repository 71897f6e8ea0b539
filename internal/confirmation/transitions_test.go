package confirmation

import (
	"testing"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStatus(t *testing.T) {
	tests := []struct {
		name       string
		resType    models.ReservationType
		from       models.ReservationStatus
		actor      string
		target     models.ReservationStatus
		wantErr    error
		wantStatus models.ReservationStatus
	}{
		{"creator accepts booking", models.ReservationService, models.StatusPending, "creator", models.StatusConfirmed, nil, models.StatusConfirmed},
		{"creator accepts order", models.ReservationProduct, models.StatusPending, "creator", models.StatusPendingDelivery, nil, models.StatusPendingDelivery},
		{"order cannot be confirmed", models.ReservationProduct, models.StatusPending, "creator", models.StatusConfirmed, store.ErrInvalidInput, models.StatusPending},
		{"member cannot accept", models.ReservationService, models.StatusPending, "member", models.StatusConfirmed, store.ErrUnauthorized, models.StatusPending},
		{"accept twice", models.ReservationEstablishment, models.StatusConfirmed, "creator", models.StatusConfirmed, store.ErrInvalidState, models.StatusConfirmed},
		{"member cancels", models.ReservationService, models.StatusConfirmed, "member", models.StatusCancelled, nil, models.StatusCancelled},
		{"creator cancels pending", models.ReservationService, models.StatusPending, "creator", models.StatusCancelled, nil, models.StatusCancelled},
		{"cancel completed", models.ReservationService, models.StatusCompleted, "member", models.StatusCancelled, store.ErrInvalidState, models.StatusCompleted},
		{"cancel cancelled", models.ReservationService, models.StatusCancelled, "member", models.StatusCancelled, store.ErrInvalidState, models.StatusCancelled},
		{"complete directly", models.ReservationService, models.StatusConfirmed, "creator", models.StatusCompleted, store.ErrInvalidState, models.StatusConfirmed},
		{"escort cancels", models.ReservationService, models.StatusConfirmed, "escort", models.StatusCancelled, nil, models.StatusCancelled},
		{"escort cannot accept", models.ReservationService, models.StatusPending, "escort", models.StatusConfirmed, store.ErrUnauthorized, models.StatusPending},
		{"stranger", models.ReservationService, models.StatusPending, "stranger", models.StatusCancelled, store.ErrUnauthorized, models.StatusPending},
		{"unknown status", models.ReservationService, models.StatusPending, "creator", "archived", store.ErrInvalidInput, models.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := booking(models.Escort{EscortId: "escort", Status: models.EscortConfirmed})
			r.Type = tt.resType
			r.Status = tt.from

			err := ApplyStatus(r, tt.actor, tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantStatus, r.Status)
		})
	}
}

func TestApplyStatusRecordsCanceller(t *testing.T) {
	r := booking()
	require.NoError(t, ApplyStatus(r, "member", models.StatusCancelled))
	assert.Equal(t, "member", r.CancelledBy)
}
