package workflow

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed request or payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type ForbiddenError struct {
	Action string
	Reason string
}

func (e *ForbiddenError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("not allowed to %s", e.Action)
	}
	return fmt.Sprintf("not allowed to %s: %s", e.Action, e.Reason)
}

// InvalidTransitionError names the record's current status and the status the action would lead to.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
	Action string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid %s transition %s -> %s", e.Entity, e.From, e.To)
	if e.Action != "" {
		fmt.Fprintf(&b, " (%s)", e.Action)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

type Prerequisite string

const (
	PrerequisiteMpesaNumber       Prerequisite = "mpesa_number"
	PrerequisiteMpesaVerification Prerequisite = "mpesa_verification"
	PrerequisiteKycVerification   Prerequisite = "kyc_verification"
)

type PayoutPrerequisiteError struct {
	Prerequisite Prerequisite
}

func (e *PayoutPrerequisiteError) Error() string {
	switch e.Prerequisite {
	case PrerequisiteMpesaNumber:
		return "payout prerequisite not met: talent has no M-Pesa number"
	case PrerequisiteMpesaVerification:
		return "payout prerequisite not met: talent M-Pesa number is not verified"
	case PrerequisiteKycVerification:
		return "payout prerequisite not met: talent identity is not verified"
	}
	return fmt.Sprintf("payout prerequisite not met: %s", e.Prerequisite)
}

// ExternalProviderError wraps a failed call to a payment or storage provider.
type ExternalProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ExternalProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed (status %d): %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ExternalProviderError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

type TooManyAttemptsError struct {
	Action string
}

func (e *TooManyAttemptsError) Error() string {
	return fmt.Sprintf("too many %s attempts, try again later", e.Action)
}
