package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	ReferralBonusPoints   = 500
	MilestonePoints       = 1200
	NairaPer100Points     = 20
	PlatinumTierThreshold = 5000
	GoldTierThreshold     = 2500
	SilverTierThreshold   = 1000
)

// RewardTier is the loyalty band derived from total points.
type RewardTier string

const (
	TierBronze   RewardTier = "Bronze"
	TierSilver   RewardTier = "Silver"
	TierGold     RewardTier = "Gold"
	TierPlatinum RewardTier = "Platinum"
)

// RewardSummary is computed from the local ledger only.
type RewardSummary struct {
	TotalPoints      int             `json:"total_points"`
	Referrals        int             `json:"referrals"`
	Milestones       int             `json:"milestones"`
	TransactionCount int             `json:"transaction_count"`
	Tier             RewardTier      `json:"tier"`
	Progress         int             `json:"progress"`
	CashValue        decimal.Decimal `json:"cash_value"`
	RecentPoints     int             `json:"recent_points"`
}

// SummarizeRewards totals points over a newest-first transaction list.
func SummarizeRewards(list []Transaction) RewardSummary {
	summary := RewardSummary{TransactionCount: len(list)}

	for _, tx := range list {
		switch tx.Type {
		case TypeReferralBonus:
			summary.Referrals++
		case TypeMilestone:
			summary.Milestones++
		}
		if tx.Points != 0 && tx.Type != TypeRewardRedemption {
			summary.TotalPoints += tx.Points
		}
	}
	summary.TotalPoints += summary.Referrals*ReferralBonusPoints + summary.Milestones*MilestonePoints

	switch {
	case summary.TotalPoints >= PlatinumTierThreshold:
		summary.Tier = TierPlatinum
	case summary.TotalPoints >= GoldTierThreshold:
		summary.Tier = TierGold
	case summary.TotalPoints >= SilverTierThreshold:
		summary.Tier = TierSilver
	default:
		summary.Tier = TierBronze
	}

	progress := math.Min(float64(summary.TotalPoints)/PlatinumTierThreshold*100, 100)
	summary.Progress = int(math.Round(progress))
	summary.CashValue = PointsToNaira(summary.TotalPoints)

	if len(list) > 0 && list[0].Points != 0 && list[0].Type != TypeRewardRedemption {
		summary.RecentPoints = list[0].Points
	}
	return summary
}

// PointsToNaira converts points at ₦20 per 100 points, rounded down to whole naira.
func PointsToNaira(points int) decimal.Decimal {
	if points <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(points)).
		Div(decimal.NewFromInt(100)).
		Mul(decimal.NewFromInt(NairaPer100Points)).
		Floor()
}
