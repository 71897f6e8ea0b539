package settlement

import (
	"context"
	"errors"
	"testing"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var twentyPercent = decimal.RequireFromString("0.20")

// credited sums postings by destination account.
func credited(plan *Plan) map[string]int64 {
	out := map[string]int64{}
	for _, p := range plan.Postings {
		out[p.Destination.String()] += p.Amount
	}
	return out
}

func TestPlanCompletionWithPlatformFee(t *testing.T) {
	r := &models.Reservation{
		Id: "r1", Type: models.ReservationService, MemberId: "m", CreatorId: "c",
		Amount: 30000, Fee: 2000, Status: models.StatusConfirmed, DurationHours: decimal.NewFromInt(1),
	}

	plan, err := PlanCompletion(r, twentyPercent)
	require.NoError(t, err)

	got := credited(plan)
	assert.Equal(t, int64(22400), got["users:c"])
	assert.Equal(t, int64(7600), got["platform:revenue"])
	assert.Equal(t, int64(7600), plan.PlatformTotal)
	assert.Equal(t, int64(22400), plan.PayeeNet["c"])
	assert.Equal(t, r.Amount, plan.Released())
}

func TestPlanCompletionWithEscort(t *testing.T) {
	r := &models.Reservation{
		Id: "r2", Type: models.ReservationEstablishment, MemberId: "m", CreatorId: "c",
		Amount: 50000, Status: models.StatusConfirmed, DurationHours: decimal.NewFromInt(2),
		Escorts: []models.Escort{
			{EscortId: "e", RateCents: 5000, Status: models.EscortConfirmed},
			{EscortId: "d", RateCents: 9000, Status: models.EscortDeclined},
		},
	}

	plan, err := PlanCompletion(r, twentyPercent)
	require.NoError(t, err)

	got := credited(plan)
	assert.Equal(t, int64(8000), got["users:e"])
	assert.Equal(t, int64(32000), got["users:c"])
	assert.Equal(t, int64(10000), got["platform:revenue"])
	assert.NotContains(t, got, "users:d")
	assert.Equal(t, r.Amount, plan.Released())
}

func TestPlanCompletionProduct(t *testing.T) {
	r := &models.Reservation{
		Id: "o1", Type: models.ReservationProduct, MemberId: "m", CreatorId: "seller",
		Amount: 4999, Status: models.StatusPendingDelivery,
	}

	plan, err := PlanCompletion(r, twentyPercent)
	require.NoError(t, err)

	got := credited(plan)
	// 4999 * 0.2 = 999.8, rounded to 1000
	assert.Equal(t, int64(1000), got["platform:revenue"])
	assert.Equal(t, int64(3999), got["users:seller"])
	assert.Equal(t, "seller", plan.SellerId)
}

func TestPlanCompletionZeroRate(t *testing.T) {
	r := &models.Reservation{
		Id: "r3", Type: models.ReservationService, MemberId: "m", CreatorId: "c",
		Amount: 10000, Status: models.StatusConfirmed, DurationHours: decimal.NewFromInt(1),
	}

	plan, err := PlanCompletion(r, decimal.Zero)
	require.NoError(t, err)
	require.Len(t, plan.Postings, 1)
	assert.Equal(t, int64(10000), credited(plan)["users:c"])
}

func TestPlanCompletionConservesAcrossRates(t *testing.T) {
	rates := []string{"0", "0.07", "0.15", "0.2", "0.333", "1"}
	for _, rate := range rates {
		r := &models.Reservation{
			Id: "r", Type: models.ReservationService, MemberId: "m", CreatorId: "c",
			Amount: 123457, Fee: 1111, Status: models.StatusConfirmed,
			DurationHours: decimal.RequireFromString("1.5"),
			Escorts: []models.Escort{
				{EscortId: "e1", RateCents: 3333, Status: models.EscortConfirmed},
				{EscortId: "e2", RateCents: 7777, Status: models.EscortConfirmed},
			},
		}
		plan, err := PlanCompletion(r, decimal.RequireFromString(rate))
		require.NoError(t, err, "rate %s", rate)
		assert.Equal(t, r.Amount, plan.Released(), "rate %s", rate)
	}
}

func TestPlanCompletionRejects(t *testing.T) {
	base := func() *models.Reservation {
		return &models.Reservation{
			Id: "r", Type: models.ReservationService, MemberId: "m", CreatorId: "c",
			Amount: 10000, Status: models.StatusConfirmed, DurationHours: decimal.NewFromInt(10),
		}
	}

	r := base()
	r.Status = models.StatusCompleted
	_, err := PlanCompletion(r, twentyPercent)
	assert.ErrorIs(t, err, store.ErrInvalidState)

	_, err = PlanCompletion(base(), decimal.RequireFromString("1.5"))
	assert.ErrorIs(t, err, store.ErrConfiguration)

	r = base()
	r.Escorts = []models.Escort{{EscortId: "e", RateCents: 5000, Status: models.EscortConfirmed}}
	_, err = PlanCompletion(r, twentyPercent)
	assert.ErrorIs(t, err, store.ErrInvalidState)

	r = base()
	r.Fee = r.Amount + 1
	_, err = PlanCompletion(r, twentyPercent)
	assert.ErrorIs(t, err, store.ErrInvalidState)
}

func TestPlanRefund(t *testing.T) {
	r := &models.Reservation{Id: "r", Type: models.ReservationService, MemberId: "m", CreatorId: "c",
		Amount: 30000, Status: models.StatusConfirmed}

	plan, err := PlanRefund(r)
	require.NoError(t, err)
	require.Len(t, plan.Postings, 1)
	assert.Equal(t, models.EscrowAccount, plan.Postings[0].Source)
	assert.Equal(t, models.UserAccount("m"), plan.Postings[0].Destination)
	assert.Equal(t, models.TxRefund, plan.Postings[0].Type)
	assert.False(t, plan.Postings[0].Earned)

	r.Status = models.StatusCompleted
	_, err = PlanRefund(r)
	assert.ErrorIs(t, err, store.ErrInvalidState)
}

type recordingTx struct {
	store.Tx
	posted []models.Posting
	failAt int
}

func (r *recordingTx) Post(_ context.Context, p models.Posting) error {
	if r.failAt > 0 && len(r.posted)+1 == r.failAt {
		return store.ErrInsufficientFunds
	}
	r.posted = append(r.posted, p)
	return nil
}

func TestExecutePostsEveryPosting(t *testing.T) {
	r := &models.Reservation{Id: "r", Type: models.ReservationService, MemberId: "m", CreatorId: "c",
		Amount: 30000, Fee: 2000, Status: models.StatusConfirmed, DurationHours: decimal.NewFromInt(1)}
	plan, err := PlanCompletion(r, twentyPercent)
	require.NoError(t, err)

	tx := &recordingTx{}
	require.NoError(t, Execute(context.Background(), tx, plan))
	assert.Equal(t, plan.Postings, tx.posted)

	failing := &recordingTx{failAt: 2}
	err = Execute(context.Background(), failing, plan)
	assert.True(t, errors.Is(err, store.ErrInsufficientFunds))
}
