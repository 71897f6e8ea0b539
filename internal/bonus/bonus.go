// Package bonus awards the one-shot rewards. Each award flips a per-user
// guard in the same transaction as the state change that qualifies for it,
// so a bonus is granted at most once per user.
package bonus

import (
	"context"
	"fmt"
	"strings"

	"marketplace-escrow-go/internal/metrics"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"go.uber.org/zap"
)

// MinGalleryImages is the gallery size a complete creator profile needs.
const MinGalleryImages = 3

var placeholderMarkers = []string{"placeholder", "default-avatar", "default-banner", "no-image"}

// IsPlaceholder reports whether an image URL is empty or one of the stock
// images assigned at sign-up.
func IsPlaceholder(url string) bool {
	url = strings.ToLower(strings.TrimSpace(url))
	if url == "" {
		return true
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

// ProfileComplete reports whether a user qualifies for the profile
// completion bonus.
func ProfileComplete(u *models.User) bool {
	if !u.Verified || u.Role != models.RoleCreator {
		return false
	}
	p := u.Profile
	if IsPlaceholder(p.AvatarURL) || IsPlaceholder(p.BannerURL) || strings.TrimSpace(p.Bio) == "" {
		return false
	}
	images := 0
	for _, img := range p.Gallery {
		if !IsPlaceholder(img) {
			images++
		}
	}
	return images >= MinGalleryImages
}

// Award is the outcome of a bonus check.
type Award struct {
	Kind    models.BonusKind
	UserId  string
	Points  int64
	Amount  int64
	Granted bool
}

// EvaluateProfileCompletion grants the profile completion bonus when the
// user's current profile qualifies and the bonus was never claimed.
func EvaluateProfileCompletion(ctx context.Context, tx store.Tx, userId string, settings *models.Settings) (*Award, error) {
	user, err := tx.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	award := &Award{Kind: models.BonusProfileCompletion, UserId: userId}
	if user.HasCompletedProfile || !ProfileComplete(user) {
		return award, nil
	}
	return grantPoints(ctx, tx, award, settings.Rewards.ProfileCompletionBonus, "Profile completion bonus")
}

// EvaluateFirstSale grants the first sale bonus to a seller whose order
// just completed.
func EvaluateFirstSale(ctx context.Context, tx store.Tx, sellerId, orderId string, settings *models.Settings) (*Award, error) {
	award := &Award{Kind: models.BonusFirstSale, UserId: sellerId}
	return grantPoints(ctx, tx, award, settings.Rewards.FirstSaleBonus, "First sale bonus for order "+orderId)
}

// EvaluateWelcome credits the welcome bonus on a user's first deposit. The
// platform funds it and may go negative doing so.
func EvaluateWelcome(ctx context.Context, tx store.Tx, userId, depositRef string, settings *models.Settings) (*Award, error) {
	award := &Award{Kind: models.BonusWelcome, UserId: userId}
	claimed, err := tx.ClaimBonus(ctx, userId, models.BonusWelcome)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return award, nil
	}

	award.Granted = true
	award.Amount = settings.Rewards.WelcomeBonusAmount
	if award.Amount > 0 {
		err := tx.Post(ctx, models.Posting{
			Source:         models.PlatformAccount,
			Destination:    models.UserAccount(userId),
			Amount:         award.Amount,
			Type:           models.TxReward,
			Description:    "Welcome bonus",
			Reference:      depositRef,
			AllowOverdraft: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to credit welcome bonus: %w", err)
		}
	}
	return award, nil
}

func grantPoints(ctx context.Context, tx store.Tx, award *Award, points int64, description string) (*Award, error) {
	claimed, err := tx.ClaimBonus(ctx, award.UserId, award.Kind)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return award, nil
	}

	award.Granted = true
	award.Points = points
	if points > 0 {
		if err := tx.AwardPoints(ctx, award.UserId, points, description, string(award.Kind)); err != nil {
			return nil, fmt.Errorf("failed to award %s points: %w", award.Kind, err)
		}
	}
	return award, nil
}

// Report logs a granted award. Call it once the transaction has committed.
func (a *Award) Report() {
	if a == nil || !a.Granted {
		return
	}
	metrics.Escrow().ObserveBonus(string(a.Kind))
	zap.L().Info("Bonus awarded",
		zap.String("kind", string(a.Kind)),
		zap.String("user_id", a.UserId),
		zap.Int64("points", a.Points),
		zap.Int64("amount", a.Amount))
}
