package stripesdk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"payment-widget/internal/models"
)

func TestValidateCard(t *testing.T) {
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	valid := models.CardDetails{Number: "4242 4242 4242 4242", ExpMonth: "12", ExpYear: "34", CVC: "123", PostalCode: "94107"}

	tests := []struct {
		name          string
		mutate        func(d *models.CardDetails)
		requirePostal bool
		want          string
	}{
		{name: "valid", mutate: func(d *models.CardDetails) {}, requirePostal: true, want: ""},
		{name: "short number", mutate: func(d *models.CardDetails) { d.Number = "4242" }, want: msgNumberIncomplete},
		{name: "luhn failure", mutate: func(d *models.CardDetails) { d.Number = "4242424242424241" }, want: msgNumberInvalid},
		{name: "missing expiry", mutate: func(d *models.CardDetails) { d.ExpYear = "" }, want: msgExpiryIncomplete},
		{name: "bad month", mutate: func(d *models.CardDetails) { d.ExpMonth = "13" }, want: msgExpiryInvalid},
		{name: "past year", mutate: func(d *models.CardDetails) { d.ExpYear = "2025" }, want: msgExpiryPast},
		{name: "past month this year", mutate: func(d *models.CardDetails) { d.ExpMonth = "5"; d.ExpYear = "26" }, want: msgExpiryInvalid},
		{name: "current month", mutate: func(d *models.CardDetails) { d.ExpMonth = "6"; d.ExpYear = "2026" }, want: ""},
		{name: "short cvc", mutate: func(d *models.CardDetails) { d.CVC = "12" }, want: msgCVCIncomplete},
		{name: "postal required", mutate: func(d *models.CardDetails) { d.PostalCode = " " }, requirePostal: true, want: msgPostalIncomplete},
		{name: "postal hidden", mutate: func(d *models.CardDetails) { d.PostalCode = "" }, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			assert.Equal(t, tt.want, validateCard(d, tt.requirePostal, now))
		})
	}
}

func TestParseClientSecret(t *testing.T) {
	id, setup := parseClientSecret("pi_3Mt_secret_YrKJ")
	assert.Equal(t, "pi_3Mt", id)
	assert.False(t, setup)

	id, setup = parseClientSecret("seti_123_secret_abc")
	assert.Equal(t, "seti_123", id)
	assert.True(t, setup)

	id, setup = parseClientSecret("seti_123")
	assert.Equal(t, "seti_123", id)
	assert.True(t, setup)
}
