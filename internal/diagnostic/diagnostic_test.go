package diagnostic

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"istr/internal/identifier/cusip"
	"istr/internal/identifier/iban"
	"istr/internal/identifier/isin"
	"istr/internal/identifier/weburl"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: OK},
		{name: "iban missing character", err: second(iban.Parse("GB29NWBK6016133192681")), want: "Invalid format (len/char)"},
		{name: "iban unknown country", err: second(iban.Parse("AA110011123Z5678")), want: "Invalid country code"},
		{name: "iban checksum", err: second(iban.Parse("MR0000020001010000123456754")), want: "Invalid checksum"},
		{name: "iban bban", err: second(iban.Parse("GB58123460161331926819")), want: "Invalid Bban"},
		{name: "cusip length", err: second(cusip.Parse("03783310")), want: "Invalid length"},
		{name: "cusip character", err: second(cusip.Parse("0378-3100")), want: "Invalid character"},
		{name: "cusip check digit", err: second(cusip.Parse("037833109")), want: "Invalid check digit"},
		{name: "isin length", err: second(isin.Parse("US037833100")), want: "Invalid length"},
		{name: "isin check digit", err: second(isin.Parse("US0378331008")), want: "Invalid check digit"},
		{name: "url empty host", err: second(weburl.Parse("http://")), want: "empty host"},
		{name: "url relative", err: second(weburl.Parse("example.com")), want: "relative URL without a base"},
		{name: "url port", err: second(weburl.Parse("http://a.com:99999")), want: "invalid port number"},
		{name: "wrapped", err: fmt.Errorf("row 3: %w", second(iban.Parse("AA110011123Z5678"))), want: "Invalid country code"},
		{name: "foreign", err: errors.New("boom"), want: Unknown},
		{name: "url other", err: &weburl.ParseError{Kind: weburl.KindOther}, want: Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestCategoriesAreDistinct(t *testing.T) {
	cats := Categories()
	assert.Contains(t, cats, IBANInvalidBBAN)
	assert.Contains(t, cats, "invalid IPv6 address")
	assert.Contains(t, cats, Unknown)
	assert.NotContains(t, cats, OK)

	seen := map[string]bool{}
	for _, c := range cats {
		assert.False(t, seen[c], c)
		seen[c] = true
	}
}

func second[T any](_ T, err error) error { return err }
