package api

import (
	"context"
	"fmt"

	"marketplace-escrow-go/internal/bonus"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/money"
	"marketplace-escrow-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PurchaseContactPass sells a member direct contact access to a creator.
// The sale settles immediately at the live commission rate and counts as
// the creator's first sale when it is one.
func (s *EscrowService) PurchaseContactPass(ctx context.Context, req *models.ContactPassRequest) (*models.WalletView, error) {
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	if req.MemberId == "" || req.CreatorId == "" || req.MemberId == req.CreatorId {
		return nil, fmt.Errorf("%w: a contact pass needs a distinct member and creator", store.ErrInvalidInput)
	}

	passId := uuid.New().String()
	var (
		wallet *models.Wallet
		award  *bonus.Award
	)

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		award = nil
		if _, err := tx.GetUser(ctx, req.MemberId); err != nil {
			return err
		}
		creator, err := tx.GetUser(ctx, req.CreatorId)
		if err != nil {
			return err
		}
		if creator.Role != models.RoleCreator {
			return fmt.Errorf("%w: %s is not a creator", store.ErrInvalidInput, req.CreatorId)
		}
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return err
		}

		commission, net := money.Split(amount, settings.PlatformCommissionRate)
		postings := []models.Posting{
			{
				Source:      models.UserAccount(req.MemberId),
				Destination: models.PlatformAccount,
				Amount:      commission,
				Type:        models.TxCommission,
				Description: "Commission on contact pass " + passId,
				Reference:   passId,
				Earned:      true,
			},
			{
				Source:      models.UserAccount(req.MemberId),
				Destination: models.UserAccount(req.CreatorId),
				Amount:      net,
				Type:        models.TxSale,
				Description: "Contact pass " + passId,
				Reference:   passId,
				Earned:      true,
			},
		}
		for _, p := range postings {
			if p.Amount == 0 {
				continue
			}
			if err := tx.Post(ctx, p); err != nil {
				return err
			}
		}

		award, err = bonus.EvaluateFirstSale(ctx, tx, req.CreatorId, passId, settings)
		if err != nil {
			return err
		}
		if err := tx.Enqueue(ctx, models.EventContactPass, passId, map[string]string{
			"memberId":   req.MemberId,
			"creatorId":  req.CreatorId,
			"amount":     money.Format(amount),
			"commission": money.Format(commission),
		}); err != nil {
			return err
		}

		wallet, err = tx.GetWallet(ctx, req.MemberId)
		return err
	})
	if err != nil {
		zap.L().Warn("Contact pass purchase failed",
			zap.String("member_id", req.MemberId),
			zap.String("creator_id", req.CreatorId),
			zap.Error(err))
		return nil, err
	}

	award.Report()
	zap.L().Info("Contact pass purchased",
		zap.String("pass_id", passId),
		zap.String("member_id", req.MemberId),
		zap.String("creator_id", req.CreatorId),
		zap.String("amount", money.Format(amount)))
	return walletView(wallet), nil
}

// BillSponsorship charges a creator for a sponsored placement. The whole
// amount is platform revenue.
func (s *EscrowService) BillSponsorship(ctx context.Context, req *models.SponsorshipRequest) (*models.WalletView, error) {
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	description := req.Description
	if description == "" {
		description = "Sponsored placement"
	}

	sponsorshipId := uuid.New().String()
	var wallet *models.Wallet

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetUser(ctx, req.CreatorId); err != nil {
			return err
		}
		err := tx.Post(ctx, models.Posting{
			Source:      models.UserAccount(req.CreatorId),
			Destination: models.PlatformAccount,
			Amount:      amount,
			Type:        models.TxSponsorship,
			Description: description,
			Reference:   sponsorshipId,
			Earned:      true,
		})
		if err != nil {
			return err
		}
		if err := tx.Enqueue(ctx, models.EventSponsorship, sponsorshipId, map[string]string{
			"creatorId": req.CreatorId,
			"amount":    money.Format(amount),
		}); err != nil {
			return err
		}
		wallet, err = tx.GetWallet(ctx, req.CreatorId)
		return err
	})
	if err != nil {
		zap.L().Warn("Sponsorship billing failed",
			zap.String("creator_id", req.CreatorId),
			zap.String("amount", money.Format(amount)),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("Sponsorship billed",
		zap.String("sponsorship_id", sponsorshipId),
		zap.String("creator_id", req.CreatorId),
		zap.String("amount", money.Format(amount)))
	return walletView(wallet), nil
}
