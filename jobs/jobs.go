package jobs

import (
	"context"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/services"
	"github.com/rs/zerolog"
)

type RewardJobs interface {
	CreditPendingRewards(ctx context.Context) (services.CreditSummary, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type PayoutReconciler interface {
	ReconcileStale(ctx context.Context) (int, error)
}

// CreditRewards pays out rewards for converted referrals.
func CreditRewards(referrals RewardJobs, logger *zerolog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		sum, err := referrals.CreditPendingRewards(ctx)
		if err != nil {
			return err
		}
		if sum.Credited > 0 || sum.Failed > 0 {
			logger.Info().Int("credited", sum.Credited).Int("failed", sum.Failed).Msg("referral rewards processed")
		}
		return nil
	}
}

func CleanupReferrals(referrals RewardJobs) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := referrals.CleanupExpired(ctx)
		return err
	}
}

// ReconcilePayouts asks the provider about transfers stuck in PROCESSING.
func ReconcilePayouts(payouts PayoutReconciler, logger *zerolog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		n, err := payouts.ReconcileStale(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info().Int("settled", n).Msg("stale payouts reconciled")
		}
		return nil
	}
}

// Schedule registers the referral and payout jobs.
func Schedule(s *Scheduler, referrals RewardJobs, payouts PayoutReconciler, ref configs.ReferralConfig, pay configs.PayoutConfig) error {
	if err := s.Add("reward-credit", ref.CreditSchedule, CreditRewards(referrals, s.logger)); err != nil {
		return err
	}
	if err := s.Add("referral-cleanup", ref.CleanupSchedule, CleanupReferrals(referrals)); err != nil {
		return err
	}
	return s.Add("payout-reconcile", pay.ReconcileSchedule, ReconcilePayouts(payouts, s.logger))
}
