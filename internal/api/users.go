package api

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"marketplace-escrow-go/internal/bonus"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var validRoles = map[string]bool{
	models.RoleMember:  true,
	models.RoleCreator: true,
	models.RoleEscort:  true,
	models.RoleAdmin:   true,
}

// CreateUser registers a user. Wallets are created on the first posting.
func (s *EscrowService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", store.ErrInvalidInput, req.Email)
	}
	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	if !validRoles[role] {
		return nil, fmt.Errorf("%w: unknown role %q", store.ErrInvalidInput, req.Role)
	}

	return s.store.CreateUser(ctx, uuid.New().String(), name, email, role)
}

func (s *EscrowService) GetUser(ctx context.Context, userId string) (*models.User, error) {
	return s.store.GetUserById(ctx, userId)
}

// UpdateProfile replaces a user's public profile and grants the profile
// completion bonus when the new profile qualifies.
func (s *EscrowService) UpdateProfile(ctx context.Context, userId string, profile models.Profile) (*models.User, error) {
	return s.changeProfile(ctx, userId, "profile_update", func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateProfile(ctx, userId, profile)
	})
}

// VerifyCreator marks a user verified. Verification can complete a profile
// that was already filled in, so the bonus check runs here as well.
func (s *EscrowService) VerifyCreator(ctx context.Context, userId string) (*models.User, error) {
	return s.changeProfile(ctx, userId, "verification", func(ctx context.Context, tx store.Tx) error {
		return tx.SetVerified(ctx, userId)
	})
}

func (s *EscrowService) changeProfile(ctx context.Context, userId, change string, apply store.TxFunc) (*models.User, error) {
	var (
		user  *models.User
		award *bonus.Award
	)

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		award = nil
		if err := apply(ctx, tx); err != nil {
			return err
		}
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return err
		}
		award, err = bonus.EvaluateProfileCompletion(ctx, tx, userId, settings)
		if err != nil {
			return err
		}
		if award.Granted {
			if err := tx.Enqueue(ctx, models.EventBonusAwarded, userId, map[string]string{
				"kind":   string(award.Kind),
				"points": fmt.Sprintf("%d", award.Points),
			}); err != nil {
				return err
			}
		}
		user, err = tx.GetUser(ctx, userId)
		return err
	})
	if err != nil {
		zap.L().Warn("Profile change failed",
			zap.String("user_id", userId),
			zap.String("change", change),
			zap.Error(err))
		return nil, err
	}

	award.Report()
	zap.L().Info("Profile changed",
		zap.String("user_id", userId),
		zap.String("change", change),
		zap.Bool("bonus_awarded", award.Granted))
	return user, nil
}
