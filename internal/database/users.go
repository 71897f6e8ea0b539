/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying active users")

	rows, err := s.db.QueryContext(ctx, queryGetActiveUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	zap.L().Debug("Querying user by ID", zap.String("user_id", userId))
	return getUserById(ctx, s.db, userId)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	zap.L().Debug("Querying user by email", zap.String("email", email))

	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserByEmail, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, email)
		}
		zap.L().Error("Failed to query user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by email: %w", err)
	}

	zap.L().Debug("Retrieved user by email", zap.String("email", email), zap.String("name", user.Name))
	return user, nil
}

func (s *Service) CreateUser(ctx context.Context, userId, name, email, role string) (*models.User, error) {
	zap.L().Info("Creating user",
		zap.String("id", userId),
		zap.String("name", name),
		zap.String("email", email),
		zap.String("role", role))

	if _, err := s.db.ExecContext(ctx, queryInsertUser, userId, name, email, role); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user with email %s already exists", store.ErrDuplicateTransaction, email)
		}
		zap.L().Error("Failed to insert user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	zap.L().Info("User created successfully", zap.String("id", userId), zap.String("email", email))
	return s.GetUserById(ctx, userId)
}

// Transaction-scoped user operations

func (t *sqlTx) GetUser(ctx context.Context, userId string) (*models.User, error) {
	return getUserById(ctx, t.tx, userId)
}

func (t *sqlTx) UpdateProfile(ctx context.Context, userId string, profile models.Profile) error {
	gallery := profile.Gallery
	if gallery == nil {
		gallery = []string{}
	}
	galleryJson, err := json.Marshal(gallery)
	if err != nil {
		return fmt.Errorf("failed to encode gallery: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, queryUpdateProfile,
		profile.AvatarURL, profile.BannerURL, profile.Bio, string(galleryJson), t.nowFn(), userId)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return expectOneRow(result, "user", userId)
}

func (t *sqlTx) SetVerified(ctx context.Context, userId string) error {
	result, err := t.tx.ExecContext(ctx, querySetVerified, t.nowFn(), userId)
	if err != nil {
		return fmt.Errorf("failed to verify user: %w", err)
	}
	return expectOneRow(result, "user", userId)
}

func (t *sqlTx) ClaimBonus(ctx context.Context, userId string, kind models.BonusKind) (bool, error) {
	var query string
	switch kind {
	case models.BonusFirstSale:
		query = queryClaimFirstSale
	case models.BonusProfileCompletion:
		query = queryClaimProfileCompletion
	case models.BonusWelcome:
		query = queryClaimWelcome
	default:
		return false, fmt.Errorf("%w: unknown bonus kind %q", store.ErrInvalidInput, kind)
	}

	result, err := t.tx.ExecContext(ctx, query, t.nowFn(), userId)
	if err != nil {
		return false, fmt.Errorf("failed to claim %s bonus: %w", kind, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return true, nil
	}

	// Distinguish an already claimed guard from a missing user.
	if _, err := t.GetUser(ctx, userId); err != nil {
		return false, err
	}
	return false, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getUserById(ctx context.Context, q queryer, userId string) (*models.User, error) {
	user, err := scanUser(q.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, userId)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}
	return user, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var gallery string
	err := row.Scan(&user.Id, &user.Name, &user.Email, &user.Role, &user.Verified,
		&user.Profile.AvatarURL, &user.Profile.BannerURL, &user.Profile.Bio, &gallery,
		&user.HasMadeFirstSale, &user.HasCompletedProfile, &user.HasMadeFirstDeposit,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(gallery), &user.Profile.Gallery); err != nil {
		return nil, fmt.Errorf("failed to decode gallery for user %s: %w", user.Id, err)
	}
	return &user, nil
}

func expectOneRow(result sql.Result, kind, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", store.ErrNotFound, kind, id)
	}
	return nil
}
