package checksum

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCUSIPCheckDigit(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    byte
	}{
		{name: "apple", payload: "03783310", want: '0'},
		{name: "alphabet", payload: "38259P50", want: '8'},
		{name: "microsoft", payload: "59491810", want: '4'},
		{name: "cins", payload: "G0052B10", want: '5'},
		{name: "lowercase letters", payload: "38259p50", want: '8'},
		{name: "special characters", payload: "12345*@#", want: '7'},
		{name: "all nines", payload: "99999999", want: '8'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CUSIPCheckDigit(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, string(tt.want), string(got))
		})
	}
}

func TestCUSIPCheckDigitErrors(t *testing.T) {
	t.Run("short payload", func(t *testing.T) {
		_, err := CUSIPCheckDigit("0378331")
		assert.ErrorIs(t, err, ErrInvalidLength)
	})
	t.Run("unknown character", func(t *testing.T) {
		_, err := CUSIPCheckDigit("0378-310")
		require.ErrorIs(t, err, ErrInvalidCharacter)
		var charErr *CharError
		require.True(t, errors.As(err, &charErr))
		assert.Equal(t, 4, charErr.Position)
		assert.Equal(t, byte('-'), charErr.Char)
	})
}

func TestISINCheckDigit(t *testing.T) {
	tests := []struct {
		payload string
		want    byte
	}{
		{payload: "US037833100", want: '5'},
		{payload: "CA00206RGB2", want: '0'},
		{payload: "XS155021241", want: '6'},
		{payload: "DE000BAY001", want: '7'},
		{payload: "GB000263494", want: '6'},
		{payload: "AU0000XVGZA", want: '3'},
		{payload: "JP343500000", want: '9'},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, err := ISINCheckDigit(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, string(tt.want), string(got))
		})
	}
}

func TestISINCheckDigitErrors(t *testing.T) {
	_, err := ISINCheckDigit("US03783310")
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = ISINCheckDigit("us037833100")
	assert.ErrorIs(t, err, ErrInvalidCharacter)
}

func TestIBANRemainder(t *testing.T) {
	valid := []string{
		"GB29NWBK60161331926819",
		"DE44500105175407324931",
		"AD1200012030200359100100",
		"FR1420041010050500013M02606",
		"SD28290115020014",
	}
	for _, iban := range valid {
		t.Run(iban, func(t *testing.T) {
			rem, err := IBANRemainder(iban)
			require.NoError(t, err)
			assert.Equal(t, 1, rem)
			assert.True(t, IBANValid(iban))
		})
	}

	t.Run("wrong check digits", func(t *testing.T) {
		assert.False(t, IBANValid("MR0000020001010000123456754"))
		assert.False(t, IBANValid("GB28NWBK60161331926819"))
	})
	t.Run("too short", func(t *testing.T) {
		_, err := IBANRemainder("GB29")
		assert.ErrorIs(t, err, ErrInvalidLength)
	})
	t.Run("lowercase is not a numeral", func(t *testing.T) {
		_, err := IBANRemainder("gb29NWBK60161331926819")
		assert.ErrorIs(t, err, ErrInvalidCharacter)
	})
}

func TestIBANCheckDigits(t *testing.T) {
	got, err := IBANCheckDigits("GB", "NWBK60161331926819")
	require.NoError(t, err)
	assert.Equal(t, "29", got)

	got, err = IBANCheckDigits("MR", "00020001010000123456754")
	require.NoError(t, err)
	assert.Equal(t, "83", got)
}

func TestIBANCheckDigitsErrorPosition(t *testing.T) {
	tests := []struct {
		name    string
		country string
		bban    string
		pos     int
		char    byte
	}{
		{name: "bban", country: "GB", bban: "NWBK6016-331926819", pos: 8, char: '-'},
		{name: "country", country: "Gb", bban: "NWBK60161331926819", pos: 19, char: 'b'},
		{name: "first country char", country: "1?", bban: "1234", pos: 5, char: '?'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IBANCheckDigits(tt.country, tt.bban)
			var charErr *CharError
			require.ErrorAs(t, err, &charErr)
			assert.Equal(t, tt.pos, charErr.Position)
			assert.Equal(t, tt.char, charErr.Char)
			assert.ErrorIs(t, err, ErrInvalidCharacter)
		})
	}
}

// Any single-character substitution in a valid IBAN changes the remainder.
func TestIBANSingleSubstitutionIsDetected(t *testing.T) {
	const iban = "GB29NWBK60161331926819"
	for i := 4; i < len(iban); i++ {
		for _, c := range []byte("0123456789") {
			if iban[i] == c || iban[i] > '9' {
				continue
			}
			mutated := iban[:i] + string(c) + iban[i+1:]
			assert.False(t, IBANValid(mutated), mutated)
		}
	}
}

func FuzzCUSIPCheckDigit(f *testing.F) {
	f.Add("03783310")
	f.Add("G0052B10")
	f.Fuzz(func(t *testing.T, payload string) {
		got, err := CUSIPCheckDigit(payload)
		if err != nil {
			return
		}
		if got < '0' || got > '9' {
			t.Fatalf("check digit %q is not a decimal digit", got)
		}
	})
}
