package cusip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	c, err := Parse("037833100")
	require.NoError(t, err)

	assert.Equal(t, "037833100", c.String())
	assert.Equal(t, "037833", c.IssuerNum())
	assert.Equal(t, "10", c.IssueNum())
	assert.Equal(t, byte('0'), c.CheckDigit())
	assert.Equal(t, "03783310", c.Payload())
	assert.False(t, c.IsCINS())
	assert.False(t, c.IsPrivateUse())

	_, ok := c.AsCINS()
	assert.False(t, ok)
}

func TestParseNormalizesCase(t *testing.T) {
	c, err := Parse("38259p508")
	require.NoError(t, err)
	assert.Equal(t, "38259P508", c.String())
	assert.True(t, Validate("38259p508"))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		position int
	}{
		{name: "empty", input: "", wantErr: ErrInvalidLength, position: -1},
		{name: "short", input: "03783310", wantErr: ErrInvalidLength, position: -1},
		{name: "long", input: "0378331000", wantErr: ErrInvalidLength, position: -1},
		{name: "punctuation in issuer", input: "0378-3100", wantErr: ErrInvalidCharacter, position: 4},
		{name: "special character in issuer", input: "03*833100", wantErr: ErrInvalidCharacter, position: 2},
		{name: "letter check digit", input: "03783310A", wantErr: ErrInvalidCharacter, position: 8},
		{name: "non ascii", input: "0378é3100", wantErr: ErrInvalidCharacter, position: 4},
		{name: "wrong check digit", input: "037833109", wantErr: ErrChecksumMismatch, position: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.ErrorIs(t, err, tt.wantErr)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.position, parseErr.Position)
			assert.Equal(t, tt.input, parseErr.Input)
			assert.False(t, Validate(tt.input))
		})
	}
}

func TestChecksumMismatchReportsDigits(t *testing.T) {
	_, err := Parse("037833109")

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, byte('0'), parseErr.Expected)
	assert.Equal(t, byte('9'), parseErr.Found)
	assert.Contains(t, err.Error(), "expected '0'")
}

func TestIssueNumberAcceptsSpecialCharacters(t *testing.T) {
	c, err := Parse("037833#*1")
	require.NoError(t, err)
	assert.Equal(t, "#*", c.IssueNum())
	assert.False(t, c.IsPrivateIssue())
}

func TestPrivateRanges(t *testing.T) {
	tests := []struct {
		input          string
		privateIssuer  bool
		privateIssue   bool
		privateUseWant bool
	}{
		{input: "999999998", privateIssuer: true, privateIssue: true, privateUseWant: true},
		{input: "12399A101", privateIssuer: true, privateIssue: false, privateUseWant: true},
		{input: "1239A0101", privateIssuer: false, privateIssue: false, privateUseWant: false},
		{input: "0378339A0", privateIssuer: false, privateIssue: true, privateUseWant: true},
		{input: "0378339Z5", privateIssuer: false, privateIssue: false, privateUseWant: false},
		{input: "037833100", privateIssuer: false, privateIssue: false, privateUseWant: false},
		{input: "990123101", privateIssuer: true, privateIssue: false, privateUseWant: true},
		{input: "99ABCD105", privateIssuer: true, privateIssue: false, privateUseWant: true},
		{input: "989999107", privateIssuer: false, privateIssue: false, privateUseWant: false},
		{input: "12398Z107", privateIssuer: false, privateIssue: false, privateUseWant: false},
		{input: "123456907", privateIssuer: false, privateIssue: true, privateUseWant: true},
		{input: "Y12345107", privateIssuer: false, privateIssue: false, privateUseWant: false},
		{input: "Z12345106", privateIssuer: false, privateIssue: false, privateUseWant: false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c := MustParse(tt.input)
			assert.Equal(t, tt.privateIssuer, c.HasPrivateIssuer())
			assert.Equal(t, tt.privateIssue, c.IsPrivateIssue())
			assert.Equal(t, tt.privateUseWant, c.IsPrivateUse())
		})
	}
}

func TestCINS(t *testing.T) {
	tests := []struct {
		input    string
		country  byte
		issuer   string
		extended bool
	}{
		{input: "G0052B105", country: 'G', issuer: "0052B", extended: false},
		{input: "U00000999", country: 'U', issuer: "00000", extended: false},
		{input: "I99999907", country: 'I', issuer: "99999", extended: true},
		{input: "O12345900", country: 'O', issuer: "12345", extended: true},
		{input: "Z12345@15", country: 'Z', issuer: "12345", extended: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c := MustParse(tt.input)
			require.True(t, c.IsCINS())

			cins, ok := c.AsCINS()
			require.True(t, ok)
			assert.Equal(t, tt.country, cins.CountryCode())
			assert.Equal(t, tt.issuer, cins.IssuerNum())
			assert.Equal(t, tt.extended, cins.IsExtended())
			assert.Equal(t, !tt.extended, cins.IsBase())
			assert.Equal(t, c, cins.CUSIP())
			assert.Equal(t, tt.input, cins.String())
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("037833109") })
}

// Justification: Parse and Validate share one implementation and must never
// disagree, and a parsed CUSIP is always nine upper-case characters.
func FuzzParse(f *testing.F) {
	for _, seed := range []string{"037833100", "38259p508", "G0052B105", "037833#*1", "", "0378é3100"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		c, err := Parse(s)
		if Validate(s) != (err == nil) {
			t.Fatalf("Parse and Validate disagree on %q", s)
		}
		if err != nil {
			return
		}
		if len(c.String()) != Length {
			t.Fatalf("parsed %q has length %d", s, len(c.String()))
		}
		for i := 0; i < Length; i++ {
			if ch := c.String()[i]; ch >= 'a' && ch <= 'z' {
				t.Fatalf("parsed %q kept lower-case %q", s, ch)
			}
		}
	})
}
