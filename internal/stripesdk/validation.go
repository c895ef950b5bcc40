package stripesdk

import (
	"strconv"
	"strings"
	"time"

	"payment-widget/internal/models"
)

// Validation texts, worded like the hosted card element's.
const (
	msgNumberIncomplete = "Your card number is incomplete."
	msgNumberInvalid    = "Your card number is invalid."
	msgExpiryIncomplete = "Your card's expiration date is incomplete."
	msgExpiryPast       = "Your card's expiration year is in the past."
	msgExpiryInvalid    = "Your card's expiration date is invalid."
	msgCVCIncomplete    = "Your card's security code is incomplete."
	msgPostalIncomplete = "Your postal code is incomplete."
)

// validateCard returns the first problem with the input, or "" when it is
// complete and valid.
func validateCard(d models.CardDetails, requirePostal bool, now time.Time) string {
	number := digitsOnly(d.Number)
	switch {
	case len(number) < 13:
		return msgNumberIncomplete
	case len(number) > 19 || !luhnValid(number):
		return msgNumberInvalid
	}

	month, errM := strconv.Atoi(strings.TrimSpace(d.ExpMonth))
	year, errY := strconv.Atoi(strings.TrimSpace(d.ExpYear))
	if errM != nil || errY != nil {
		return msgExpiryIncomplete
	}
	if month < 1 || month > 12 {
		return msgExpiryInvalid
	}
	if year < 100 {
		year += 2000
	}
	if year < now.Year() {
		return msgExpiryPast
	}
	if year == now.Year() && month < int(now.Month()) {
		return msgExpiryInvalid
	}

	cvc := digitsOnly(d.CVC)
	if len(cvc) < 3 || len(cvc) > 4 {
		return msgCVCIncomplete
	}

	if requirePostal && strings.TrimSpace(d.PostalCode) == "" {
		return msgPostalIncomplete
	}
	return ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// parseStringToInt64 returns 0 when s is not a number.
func parseStringToInt64(s string) int64 {
	val, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return val
}
