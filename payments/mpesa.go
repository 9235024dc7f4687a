package payments

import (
	"regexp"
	"strings"

	"github.com/anjiri1684/talent_booking/workflow"
)

var nonNumericRegex = regexp.MustCompile(`[^0-9]`)

// SanitizeMpesaNumber normalises Safaricom numbers to the 2547XXXXXXXX / 2541XXXXXXXX form.
func SanitizeMpesaNumber(phone string) (string, error) {
	digits := nonNumericRegex.ReplaceAllString(phone, "")

	var local string
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "254"):
		local = digits[3:]
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		local = digits[1:]
	case len(digits) == 9:
		local = digits
	default:
		return "", workflow.Invalid("mpesa_number", "invalid M-Pesa phone number format")
	}

	if local[0] != '7' && local[0] != '1' {
		return "", workflow.Invalid("mpesa_number", "M-Pesa numbers start with 7 or 1 after the country code")
	}
	return "254" + local, nil
}
