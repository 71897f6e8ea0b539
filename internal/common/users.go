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

package common

import (
	"context"
	"fmt"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"go.uber.org/zap"
)

// SelectUsers returns the user with the given email, or every user when
// emailFilter is empty. A non-empty roleFilter keeps only that role.
func SelectUsers(ctx context.Context, db store.EscrowStore, emailFilter, roleFilter string) ([]models.User, error) {
	var users []models.User

	if emailFilter != "" {
		zap.L().Info("Looking up user by email", zap.String("email", emailFilter))
		user, err := db.GetUserByEmail(ctx, emailFilter)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		users = append(users, *user)
	} else {
		allUsers, err := db.GetUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get users: %w", err)
		}
		users = allUsers
	}

	if roleFilter != "" {
		filtered := users[:0]
		for _, u := range users {
			if u.Role == roleFilter {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
