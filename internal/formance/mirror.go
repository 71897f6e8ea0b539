package formance

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"marketplace-escrow-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// asset is the Formance UMN notation for euro cents.
const asset = "EUR/2"

const worldAccount = "world"

// Publish posts the event's journal entries as one Numscript transaction.
// The event id is the transaction reference, so a redelivered event hits a
// CONFLICT and counts as already mirrored.
func (s *Service) Publish(ctx context.Context, event models.OutboxEvent) error {
	if len(event.Postings) == 0 {
		return nil
	}

	script, vars := buildScript(event)
	timestamp := event.CreatedAt
	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: s.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: v3.Pointer(event.Id),
			Timestamp: &timestamp,
			Script: &shared.V2PostTransactionScript{
				Plain: script,
				Vars:  vars,
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Event already mirrored", zap.String("event_id", event.Id))
			return nil
		}
		return fmt.Errorf("mirror event %s: %w", event.Id, err)
	}

	zap.L().Debug("Event mirrored to Formance",
		zap.String("event_id", event.Id),
		zap.String("event_type", event.EventType),
		zap.Int("postings", len(event.Postings)))
	return nil
}

// buildScript renders one send statement per journal entry. Internal
// sources may overdraw because the mirror can be enabled after the local
// ledger already holds balances.
func buildScript(event models.OutboxEvent) (string, map[string]string) {
	var decl, body strings.Builder
	vars := map[string]string{
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateId,
	}

	decl.WriteString("vars {\n")
	decl.WriteString("  string $event_type\n")
	decl.WriteString("  string $aggregate_id\n")

	for i, entry := range event.Postings {
		src := fmt.Sprintf("src_%d", i)
		dst := fmt.Sprintf("dst_%d", i)
		amt := fmt.Sprintf("amt_%d", i)

		fmt.Fprintf(&decl, "  account $%s\n  account $%s\n  number $%s\n", src, dst, amt)
		vars[src] = entry.SourceAccount
		vars[dst] = entry.DestinationAccount
		vars[amt] = strconv.FormatInt(entry.Amount, 10)

		source := "$" + src + " allowing unbounded overdraft"
		if entry.SourceAccount == worldAccount {
			source = "@world"
		}
		fmt.Fprintf(&body, "send [%s $%s] (\n  source = %s\n  destination = $%s\n)\n\n", asset, amt, source, dst)
	}
	decl.WriteString("}\n\n")

	body.WriteString("set_tx_meta(\"event_type\", $event_type)\n")
	body.WriteString("set_tx_meta(\"aggregate_id\", $aggregate_id)\n")

	return decl.String() + body.String(), vars
}

// AccountBalance returns the mirrored balance of a ledger address in cents.
// An account the mirror has never seen has a zero balance.
func (s *Service) AccountBalance(ctx context.Context, address string) (int64, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get account %s: %w", address, err)
	}

	bal := volumeBalance(resp.V2AccountResponse.Data.Volumes, asset)
	if bal == nil {
		return 0, nil
	}
	if !bal.IsInt64() {
		return 0, fmt.Errorf("balance of %s overflows int64: %s", address, bal.String())
	}
	return bal.Int64(), nil
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}
