package workflow

// Effect is a side effect the caller must carry out after a transition is persisted.
type Effect string

const (
	EffectNotifyOrganizer Effect = "notify_organizer"
	EffectNotifyTalent    Effect = "notify_talent"
	EffectRecordPayment   Effect = "record_payment"
	EffectCheckReferral   Effect = "check_referral"
	EffectQueuePayout     Effect = "queue_payout"
	EffectOpenDispute     Effect = "open_dispute"
	EffectIssueRefund     Effect = "issue_refund"
	EffectRecordPayout    Effect = "record_payout_transaction"
	EffectUpdateUserKyc   Effect = "update_user_verification"
)

// Has reports whether e is among effects.
func Has(effects []Effect, e Effect) bool {
	for _, x := range effects {
		if x == e {
			return true
		}
	}
	return false
}
