package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/transfa/wallet-gateway/internal/domain"
)

var ErrInsufficientPoints = errors.New("not enough points to redeem")

// Rewards summarizes the loyalty points held in the local ledger.
func (s *Store) Rewards() domain.RewardSummary {
	return domain.SummarizeRewards(s.Transactions())
}

// RedeemPoints converts points to naira through a Reward Redemption
// transaction. The credit shows up only once the backend confirms it.
func (s *Store) RedeemPoints(ctx context.Context, points int) (domain.Transaction, error) {
	if points <= 0 {
		return domain.Transaction{}, ErrInvalidAmount
	}
	summary := s.Rewards()
	if points > summary.TotalPoints {
		return domain.Transaction{}, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientPoints, points, summary.TotalPoints)
	}

	cash := domain.PointsToNaira(points)
	if !cash.IsPositive() {
		return domain.Transaction{}, ErrInvalidAmount
	}

	return s.AddTransaction(ctx, domain.TransactionRequest{
		Type:           domain.TypeRewardRedemption,
		Amount:         cash,
		Description:    fmt.Sprintf("Redeemed %d points", points),
		PointsDeducted: points,
	})
}
