package notifications

import (
	"fmt"
	"html"
	"strings"
)

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
}

func render(title string, lines ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(title))
	for _, l := range lines {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(l))
	}
	return b.String()
}

func BookingUpdate(recipient, bookingTitle, status, note string) Message {
	subject := fmt.Sprintf("Booking %q is now %s", bookingTitle, strings.ToLower(strings.ReplaceAll(status, "_", " ")))
	lines := []string{fmt.Sprintf("Hi %s,", recipient), subject + "."}
	if note != "" {
		lines = append(lines, note)
	}
	return Message{Subject: subject, HTML: render(subject, lines...)}
}

func DisputeResolved(recipient, bookingTitle string, refund, payout float64) Message {
	subject := fmt.Sprintf("Dispute on %q has been resolved", bookingTitle)
	return Message{Subject: subject, HTML: render(subject,
		fmt.Sprintf("Hi %s,", recipient),
		fmt.Sprintf("Refund to organizer: KES %.2f. Payout to talent: KES %.2f.", refund, payout),
	)}
}

func PayoutUpdate(recipient string, amount float64, status string) Message {
	subject := fmt.Sprintf("Your payout of KES %.2f is %s", amount, strings.ToLower(status))
	return Message{Subject: subject, HTML: render(subject, fmt.Sprintf("Hi %s,", recipient), subject+".")}
}

func KycUpdate(recipient, status, reason string) Message {
	subject := fmt.Sprintf("Identity verification %s", strings.ToLower(status))
	lines := []string{fmt.Sprintf("Hi %s,", recipient), fmt.Sprintf("Your identity verification status is now %s.", status)}
	if reason != "" {
		lines = append(lines, "Reason: "+reason)
	}
	return Message{Subject: subject, HTML: render(subject, lines...)}
}

func ReferralConverted(recipient, referredName string, reward float64) Message {
	subject := "You earned a referral reward"
	return Message{Subject: subject, HTML: render(subject,
		fmt.Sprintf("Hi %s,", recipient),
		fmt.Sprintf("%s completed their first qualifying activity. KES %.2f will be added to your credit balance.", referredName, reward),
	)}
}
