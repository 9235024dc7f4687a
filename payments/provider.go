package payments

import (
	"context"

	"github.com/anjiri1684/talent_booking/workflow"
)

type TransferRequest struct {
	// Reference is sent to the provider as the idempotency key; the payout id.
	Reference     string
	Amount        float64
	Currency      string
	MpesaNumber   string
	RecipientName string
	Reason        string
}

type Transfer struct {
	TransferCode  string
	Reference     string
	Status        string
	Outcome       workflow.TransferOutcome
	FailureReason string
}

// TransferProvider sends money to a talent's mobile wallet.
type TransferProvider interface {
	InitiateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
	FinalizeTransfer(ctx context.Context, transferCode, otp string) (*Transfer, error)
	VerifyTransfer(ctx context.Context, reference string) (*Transfer, error)
}

type PaymentVerification struct {
	Reference string
	Status    string
	Amount    float64
	Currency  string
}

func (p *PaymentVerification) Succeeded() bool { return p.Status == "success" }

// PaymentVerifier confirms an organizer's payment before a booking moves into progress.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, reference string) (*PaymentVerification, error)
}

// TransferOutcome maps a provider status string onto the workflow outcome.
func TransferOutcome(status string) workflow.TransferOutcome {
	switch status {
	case "success":
		return workflow.TransferSuccess
	case "failed", "abandoned", "rejected":
		return workflow.TransferFailed
	case "reversed":
		return workflow.TransferReversed
	case "otp":
		return workflow.TransferOTP
	}
	return workflow.TransferPending
}
