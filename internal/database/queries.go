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

const (
	// User queries
	userColumns = `
		id, name, email, role, verified, avatar_url, banner_url, bio, gallery,
		has_made_first_sale, has_completed_profile, has_made_first_deposit,
		created_at, updated_at`

	queryGetActiveUsers = `
		SELECT` + userColumns + `
		FROM users
		WHERE active = 1
		ORDER BY created_at`

	queryInsertUser = `
		INSERT INTO users (id, name, email, role) VALUES (?, ?, ?, ?)`

	queryInsertDummyUser = `
		INSERT OR IGNORE INTO users (id, name, email, role) VALUES (?, ?, ?, ?)`

	queryGetUserById = `
		SELECT` + userColumns + `
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT` + userColumns + `
		FROM users
		WHERE email = ? AND active = 1`

	queryUpdateProfile = `
		UPDATE users
		SET avatar_url = ?, banner_url = ?, bio = ?, gallery = ?, updated_at = ?
		WHERE id = ? AND active = 1`

	querySetVerified = `
		UPDATE users SET verified = 1, updated_at = ? WHERE id = ? AND active = 1`

	queryClaimFirstSale = `
		UPDATE users SET has_made_first_sale = 1, updated_at = ?
		WHERE id = ? AND has_made_first_sale = 0`

	queryClaimProfileCompletion = `
		UPDATE users SET has_completed_profile = 1, updated_at = ?
		WHERE id = ? AND has_completed_profile = 0`

	queryClaimWelcome = `
		UPDATE users SET has_made_first_deposit = 1, updated_at = ?
		WHERE id = ? AND has_made_first_deposit = 0`

	// Wallet queries
	queryGetWallet = `
		SELECT id, balance, escrow_balance, total_earned, reward_points, version, updated_at
		FROM wallets
		WHERE id = ?`

	queryInsertWallet = `
		INSERT OR IGNORE INTO wallets (id) VALUES (?)`

	queryUpdateWalletBalance = `
		UPDATE wallets
		SET balance = ?, total_earned = total_earned + ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryUpdateWalletEscrow = `
		UPDATE wallets
		SET escrow_balance = ?, total_earned = total_earned + ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryUpdateWalletPoints = `
		UPDATE wallets
		SET reward_points = ?, total_earned = total_earned + ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryUserExists = `
		SELECT 1 FROM users WHERE id = ? AND active = 1`

	// Transaction queries
	queryInsertTransaction = `
		INSERT INTO transactions (
			id, wallet_id, transaction_type, field, amount, balance_before, balance_after,
			description, reference, external_id, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransactionHistory = `
		SELECT id, wallet_id, transaction_type, field, amount, balance_before, balance_after,
		       description, reference, external_id, status, created_at
		FROM transactions
		WHERE wallet_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryCheckExternalId = `
		SELECT id FROM transactions WHERE external_id = ? LIMIT 1`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, source_account, destination_account, amount, transaction_type, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	// Reconciliation queries
	querySumWalletRecords = `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE wallet_id = ? AND field = ?`

	querySumUserBalances = `
		SELECT COALESCE(SUM(balance), 0) FROM wallets WHERE id != ?`

	querySumWorldInflow = `
		SELECT COALESCE(SUM(amount), 0) FROM journal_entries WHERE source_account = ?`

	querySumWorldOutflow = `
		SELECT COALESCE(SUM(amount), 0) FROM journal_entries WHERE destination_account = ?`

	// Reservation queries
	queryInsertReservation = `
		INSERT INTO reservations (
			id, type, member_id, creator_id, amount, fee, status, duration_hours,
			member_confirmed, creator_confirmed, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 1, ?, ?)`

	queryInsertReservationEscort = `
		INSERT INTO reservation_escorts (reservation_id, escort_id, rate, status, presence_confirmed)
		VALUES (?, ?, ?, ?, 0)`

	queryGetReservation = `
		SELECT id, type, member_id, creator_id, amount, fee, status, duration_hours,
		       member_confirmed, creator_confirmed, applied_commission_rate, cancelled_by,
		       version, created_at, updated_at, settled_at
		FROM reservations
		WHERE id = ?`

	queryGetReservationEscorts = `
		SELECT escort_id, rate, status, presence_confirmed, responded_at
		FROM reservation_escorts
		WHERE reservation_id = ?
		ORDER BY rowid`

	queryUpdateReservation = `
		UPDATE reservations
		SET status = ?, member_confirmed = ?, creator_confirmed = ?, applied_commission_rate = ?,
		    cancelled_by = ?, settled_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryUpdateReservationEscort = `
		UPDATE reservation_escorts
		SET status = ?, presence_confirmed = ?, responded_at = ?
		WHERE reservation_id = ? AND escort_id = ?`

	// Settings queries
	queryGetSettings = `
		SELECT platform_commission_rate, platform_fee, profile_completion_bonus, first_sale_bonus,
		       welcome_bonus_amount, call_rates, withdrawal_min_amount, withdrawal_max_amount, updated_at
		FROM settings
		WHERE id = 1`

	queryUpsertSettings = `
		INSERT INTO settings (
			id, platform_commission_rate, platform_fee, profile_completion_bonus, first_sale_bonus,
			welcome_bonus_amount, call_rates, withdrawal_min_amount, withdrawal_max_amount, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			platform_commission_rate = excluded.platform_commission_rate,
			platform_fee = excluded.platform_fee,
			profile_completion_bonus = excluded.profile_completion_bonus,
			first_sale_bonus = excluded.first_sale_bonus,
			welcome_bonus_amount = excluded.welcome_bonus_amount,
			call_rates = excluded.call_rates,
			withdrawal_min_amount = excluded.withdrawal_min_amount,
			withdrawal_max_amount = excluded.withdrawal_max_amount,
			updated_at = excluded.updated_at`

	// Outbox queries
	queryInsertOutboxEvent = `
		INSERT INTO outbox_events (id, event_type, aggregate_id, payload, status, attempts, created_at)
		VALUES (?, ?, ?, ?, 'pending', 0, ?)`

	queryFetchPendingEvents = `
		SELECT id, payload, attempts, last_error
		FROM outbox_events
		WHERE status = 'pending'
		ORDER BY created_at, rowid
		LIMIT ?`

	queryMarkEventDelivered = `
		UPDATE outbox_events SET status = 'delivered', delivered_at = ? WHERE id = ?`

	queryMarkEventFailed = `
		UPDATE outbox_events
		SET attempts = attempts + 1,
		    last_error = ?,
		    status = CASE WHEN attempts + 1 >= ? THEN 'failed' ELSE 'pending' END
		WHERE id = ?`

	queryPurgeDeliveredEvents = `
		DELETE FROM outbox_events WHERE status = 'delivered' AND delivered_at < ?`
)
