package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSummarizeRewards(t *testing.T) {
	list := []Transaction{
		{ID: "1", Type: TypeAirtimePurchase, Points: 50},
		{ID: "2", Type: TypeReferralBonus},
		{ID: "3", Type: TypeMilestone},
		{ID: "4", Type: TypeRewardRedemption, Points: 300},
		{ID: "5", Type: TypeTransfer},
	}

	got := SummarizeRewards(list)

	if got.TotalPoints != 50+ReferralBonusPoints+MilestonePoints {
		t.Fatalf("expected 1750 points, got %d", got.TotalPoints)
	}
	if got.Tier != TierSilver {
		t.Fatalf("expected Silver tier, got %q", got.Tier)
	}
	if got.Progress != 35 {
		t.Fatalf("expected 35%% progress, got %d", got.Progress)
	}
	if !got.CashValue.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("expected cash value 350, got %s", got.CashValue)
	}
	if got.RecentPoints != 50 {
		t.Fatalf("expected recent points 50, got %d", got.RecentPoints)
	}
	if got.Referrals != 1 || got.Milestones != 1 || got.TransactionCount != 5 {
		t.Fatalf("unexpected counters: %+v", got)
	}
}

func TestSummarizeRewardsTiers(t *testing.T) {
	tests := []struct {
		name   string
		points int
		want   RewardTier
	}{
		{name: "bronze", points: 999, want: TierBronze},
		{name: "silver", points: 1000, want: TierSilver},
		{name: "gold", points: 2500, want: TierGold},
		{name: "platinum", points: 7000, want: TierPlatinum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SummarizeRewards([]Transaction{{ID: "x", Type: TypeRewardPoints, Points: tt.points}})
			if got.Tier != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got.Tier)
			}
			if got.Progress > 100 {
				t.Fatalf("progress must be capped at 100, got %d", got.Progress)
			}
		})
	}
}

func TestPointsToNaira(t *testing.T) {
	if got := PointsToNaira(250); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected 50, got %s", got)
	}
	if got := PointsToNaira(99); !got.Equal(decimal.NewFromInt(19)) {
		t.Fatalf("expected 19, got %s", got)
	}
	if got := PointsToNaira(-10); !got.IsZero() {
		t.Fatalf("expected zero for negative points, got %s", got)
	}
}
