package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "9876543210", Normalize("+(98765) 432-10"))
	assert.Equal(t, "", Normalize("  -- "))
}

func TestValidate(t *testing.T) {
	rule := India("91")

	tests := []struct {
		name    string
		in      string
		want    Kind
		wantErr bool
	}{
		{name: "mobile", in: "9876543210", want: KindMobile},
		{name: "mobile with separators", in: "98765 43210", want: KindMobile},
		{name: "mobile lowest prefix", in: "6000000000", want: KindMobile},
		{name: "ten digits prefix 5 rejected", in: "5876543210", want: KindInvalid, wantErr: true},
		{name: "ten digits prefix 1 rejected", in: "1234567890", want: KindInvalid, wantErr: true},
		{name: "landline 0 + area + 8 digits", in: "0123456789", want: KindLandline},
		{name: "landline 0 + area + 9 digits", in: "01123456789", want: KindLandline},
		{name: "landline with zero area code", in: "00123456789", want: KindInvalid, wantErr: true},
		{name: "eleven digit mobile-like rejected", in: "98765432101", want: KindInvalid, wantErr: true},
		{name: "nine digits", in: "987654321", want: KindInvalid, wantErr: true},
		{name: "nine digit landline", in: "012345678", want: KindInvalid, wantErr: true},
		{name: "twelve digits", in: "011234567890", want: KindInvalid, wantErr: true},
		{name: "single digit", in: "7", want: KindInvalid, wantErr: true},
		{name: "empty", in: "", want: KindEmpty},
		{name: "separators only", in: " - ( ) ", want: KindEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := rule.Validate(tt.in)

			assert.Equal(t, tt.want, kind)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPhoneFormat)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidate_LengthBoundsAlwaysFail(t *testing.T) {
	rule := India("")

	for n := 1; n <= 15; n++ {
		if n == 10 || n == 11 {
			continue
		}
		digits := ""
		for i := 0; i < n; i++ {
			digits += "9"
		}

		_, err := rule.Validate(digits)
		assert.ErrorIsf(t, err, ErrInvalidPhoneFormat, "length %d should fail", n)
	}
}

func TestFormat(t *testing.T) {
	rule := India("91")

	assert.Equal(t, "+91-98765-43210", rule.Format("9876543210"))
	assert.Equal(t, "+91-98765-43210", rule.Format("98765-43210"))
	assert.Equal(t, "011-23456789", rule.Format("011-23456789"), "landlines keep the raw input")
	assert.Equal(t, "12345", rule.Format("12345"), "invalid input is stored unchanged")
	assert.Equal(t, "", rule.Format(""))
}

func TestIndia_CountryCodeOverride(t *testing.T) {
	rule := India("+44")

	assert.Equal(t, "44", rule.CountryCode)
	assert.Equal(t, "+44-98765-43210", rule.Format("9876543210"))
}
