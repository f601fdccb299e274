package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"istr/internal/columnar"
	"istr/internal/identifier"
)

type RegistrySuite struct {
	suite.Suite
	registry *Registry
	engine   *columnar.Engine
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = Default()
	s.engine = columnar.NewEngine(columnar.WithPartitionSize(2))
	s.ctx = context.Background()
}

func (s *RegistrySuite) run(name string, values ...*string) columnar.Array {
	f, ok := s.registry.Get(name)
	s.Require().True(ok, "function %s not registered", name)
	out, err := f.Run(s.ctx, s.engine, columnar.FromValues("id", values))
	s.Require().NoError(err)
	s.Require().Equal(len(values), out.Len())
	return out
}

func str(v string) *string { return &v }

// =============================================================================
// Catalogue
// =============================================================================

func (s *RegistrySuite) TestCatalogue() {
	s.Len(s.registry.ListByFormat(identifier.FormatCUSIP), 15)
	s.Len(s.registry.ListByFormat(identifier.FormatISIN), 7)
	s.Len(s.registry.ListByFormat(identifier.FormatIBAN), 8)
	s.Len(s.registry.ListByFormat(identifier.FormatURL), 12)
	s.Len(s.registry.All(), 42)

	for _, name := range []string{
		"cusip.extract_all", "cusip.is_cins_extended", "cusip.cins_issuer_num",
		"isin.security_id", "iban.bank_id", "iban.branch_id",
		"url.domain", "url.port", "url.check",
	} {
		_, ok := s.registry.Get(name)
		s.True(ok, name)
	}

	f, _ := s.registry.Get("iban.extract_all")
	s.Equal(ModeExtractAll, f.Mode)
	s.Equal(columnar.KindStruct, f.Output)
	s.Len(f.Fields, 5)

	f, _ = s.registry.Get("url.port")
	s.Equal(columnar.KindUint16, f.Output)

	checker, ok := s.registry.Checker(identifier.FormatISIN)
	s.True(ok)
	s.Equal("isin.check", checker.Name)
}

func (s *RegistrySuite) TestRegisterRejectsDuplicates() {
	err := s.registry.Register(Function{Name: "iban.check"})
	s.Error(err)
}

// =============================================================================
// Scenarios
// =============================================================================

func (s *RegistrySuite) TestCUSIPCheckDigitScenario() {
	out := s.run("cusip.check_digit", str("037833100")).(*columnar.StringColumn)
	v, ok := out.Get(0)
	s.True(ok)
	s.Equal("0", v)
	s.Equal("id", out.Name())
}

func (s *RegistrySuite) TestISINIsValidScenario() {
	out := s.run("isin.is_valid", str("US0378331005"), str("US0378331008"), nil).(*columnar.BoolColumn)
	s.Equal([]*bool{ptr(true), ptr(false), nil}, out.Values())
}

func (s *RegistrySuite) TestIBANExtractAllScenario() {
	out := s.run("iban.extract_all", str("GB29NWBK60161331926819"), str("GB29NWBK6016133192681"), nil).(*columnar.StructColumn)

	s.Equal(map[string]any{
		"country_code": "GB",
		"check_digits": "29",
		"bban":         "NWBK60161331926819",
		"bank_id":      "NWBK",
		"branch_id":    "601613",
	}, out.Value(0))

	nulls := map[string]any{"country_code": nil, "check_digits": nil, "bban": nil, "bank_id": nil, "branch_id": nil}
	s.Equal(nulls, out.Value(1))
	s.Equal(nulls, out.Value(2))
}

func (s *RegistrySuite) TestIBANCheckScenario() {
	out := s.run("iban.check",
		str("GB29NWBK6016133192681"),
		str("AA110011123Z5678"),
		str("MR0000020001010000123456754"),
		str("GB58123460161331926819"),
		str("GB29NWBK60161331926819"),
		nil,
	).(*columnar.StringColumn)

	s.Equal([]*string{
		str("Invalid format (len/char)"),
		str("Invalid country code"),
		str("Invalid checksum"),
		str("Invalid Bban"),
		str("ok"),
		nil,
	}, out.Values())
}

func (s *RegistrySuite) TestIBANWithoutBankLayout() {
	out := s.run("iban.bank_id", str("PL61109010140000071219812874"), str("DE44500105175407324931")).(*columnar.StringColumn)
	s.Equal([]*string{nil, str("50010517")}, out.Values())

	valid := s.run("iban.is_valid", str("PL61109010140000071219812874")).(*columnar.BoolColumn)
	s.Equal([]*bool{ptr(true)}, valid.Values())
}

func (s *RegistrySuite) TestURLHostScenario() {
	out := s.run("url.host", str("https://example.com/a?b#c"), str("mailto:x@y.z"), str("not a url")).(*columnar.StringColumn)
	s.Equal([]*string{str("example.com"), nil, nil}, out.Values())

	check := s.run("url.check", str("https://example.com/a?b#c"), str("not a url"), str("http://")).(*columnar.StringColumn)
	s.Equal([]*string{str("ok"), str("relative URL without a base"), str("empty host")}, check.Values())
}

func (s *RegistrySuite) TestURLPortAndDomain() {
	port := s.run("url.port", str("http://a.com:8080/"), str("http://a.com:80/")).(*columnar.Uint16Column)
	s.Equal([]*uint16{ptr(uint16(8080)), nil}, port.Values())

	domain := s.run("url.domain", str("http://127.0.0.1/"), str("http://a.com/")).(*columnar.StringColumn)
	s.Equal([]*string{nil, str("a.com")}, domain.Values())
}

func (s *RegistrySuite) TestCUSIPCINSFields() {
	out := s.run("cusip.extract_all", str("G0052B105"), str("037833100")).(*columnar.StructColumn)

	cins := out.Value(0).(map[string]any)
	s.Equal("G", cins["country_code"])
	s.Equal("G0052B", cins["issuer_num"])
	s.Equal("0052B", cins["cins_issuer_num"])
	s.Equal(true, cins["is_cins"])
	s.Equal(true, cins["is_cins_base"])
	s.Equal(false, cins["is_cins_extended"])

	plain := out.Value(1).(map[string]any)
	s.Nil(plain["country_code"])
	s.Equal("037833", plain["issuer_num"])
	s.Nil(plain["cins_issuer_num"])
	s.Equal(false, plain["is_cins"])
	s.Nil(plain["is_cins_base"])
	s.Nil(plain["is_cins_extended"])
}

func (s *RegistrySuite) TestCUSIPAndISINCheck() {
	out := s.run("cusip.check", str("037833109"), str("0378"), str("0378-3100")).(*columnar.StringColumn)
	s.Equal([]*string{str("Invalid check digit"), str("Invalid length"), str("Invalid character")}, out.Values())

	out = s.run("isin.check", str("US0378331005"), str("US0378331008")).(*columnar.StringColumn)
	s.Equal([]*string{str("ok"), str("Invalid check digit")}, out.Values())
}

// Absent input yields null in every projection of every format.
func (s *RegistrySuite) TestAbsentInputIsNullEverywhere() {
	for _, f := range s.registry.All() {
		s.Run(f.Name, func() {
			out := s.run(f.Name, nil)
			if f.Mode == ModeExtractAll {
				row := out.Value(0).(map[string]any)
				for name, v := range row {
					s.Nil(v, "%s.%s", f.Name, name)
				}
				return
			}
			s.True(out.IsNull(0))
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestNameJoinsFormatAndProjection(t *testing.T) {
	assert.Equal(t, "iban.bank_id", Name(identifier.FormatIBAN, "bank_id"))
}

func TestRunWithoutImplementation(t *testing.T) {
	_, err := Function{Name: "x"}.Run(context.Background(), columnar.NewEngine(), columnar.Strings("in"))
	require.Error(t, err)
}
