package projection

import (
	"istr/internal/columnar"
	"istr/internal/identifier"
	"istr/internal/identifier/cusip"
	"istr/internal/identifier/iban"
	"istr/internal/identifier/isin"
	"istr/internal/identifier/weburl"
)

func registerCUSIP(r *Registry) error {
	cins := func(fn func(cusip.CINS) string) func(cusip.CUSIP) (string, bool) {
		return func(c cusip.CUSIP) (string, bool) {
			v, ok := c.AsCINS()
			if !ok {
				return "", false
			}
			return fn(v), true
		}
	}
	cinsFlag := func(fn func(cusip.CINS) bool) func(cusip.CUSIP) (bool, bool) {
		return func(c cusip.CUSIP) (bool, bool) {
			v, ok := c.AsCINS()
			if !ok {
				return false, false
			}
			return fn(v), true
		}
	}

	return register(r, formatSpec[cusip.CUSIP]{
		format: identifier.FormatCUSIP,
		projection: columnar.Projection[cusip.CUSIP]{
			Parse: cusip.Parse,
			Fields: []columnar.Field[cusip.CUSIP]{
				columnar.OptionalStringField("country_code", cins(func(c cusip.CINS) string { return string(c.CountryCode()) })),
				columnar.StringField("issuer_num", cusip.CUSIP.IssuerNum),
				columnar.OptionalStringField("cins_issuer_num", cins(cusip.CINS.IssuerNum)),
				columnar.StringField("issue_num", cusip.CUSIP.IssueNum),
				columnar.StringField("check_digit", func(c cusip.CUSIP) string { return string(c.CheckDigit()) }),
				columnar.StringField("payload", cusip.CUSIP.Payload),
				columnar.BoolField("is_private_issue", cusip.CUSIP.IsPrivateIssue),
				columnar.BoolField("has_private_issuer", cusip.CUSIP.HasPrivateIssuer),
				columnar.BoolField("is_private_use", cusip.CUSIP.IsPrivateUse),
				columnar.BoolField("is_cins", cusip.CUSIP.IsCINS),
				columnar.OptionalBoolField("is_cins_base", cinsFlag(cusip.CINS.IsBase)),
				columnar.OptionalBoolField("is_cins_extended", cinsFlag(cusip.CINS.IsExtended)),
			},
		},
		validate: cusip.Validate,
		description: map[string]string{
			"country_code":    "CINS country code letter; null for non-CINS identifiers",
			"issuer_num":      "six character issuer number",
			"cins_issuer_num": "five character CINS issuer number; null for non-CINS identifiers",
		},
	})
}

func registerISIN(r *Registry) error {
	return register(r, formatSpec[isin.ISIN]{
		format: identifier.FormatISIN,
		projection: columnar.Projection[isin.ISIN]{
			Parse: isin.Parse,
			Fields: []columnar.Field[isin.ISIN]{
				columnar.StringField("country_code", isin.ISIN.Prefix),
				columnar.StringField("security_id", isin.ISIN.BasicCode),
				columnar.StringField("check_digit", func(i isin.ISIN) string { return string(i.CheckDigit()) }),
				columnar.StringField("payload", isin.ISIN.Payload),
			},
		},
		validate: isin.Validate,
	})
}

func registerIBAN(r *Registry) error {
	return register(r, formatSpec[iban.IBAN]{
		format: identifier.FormatIBAN,
		projection: columnar.Projection[iban.IBAN]{
			Parse: iban.Parse,
			Fields: []columnar.Field[iban.IBAN]{
				columnar.StringField("country_code", iban.IBAN.CountryCode),
				columnar.StringField("check_digits", iban.IBAN.CheckDigits),
				columnar.StringField("bban", iban.IBAN.BBAN),
				columnar.OptionalStringField("bank_id", iban.IBAN.BankID),
				columnar.OptionalStringField("branch_id", iban.IBAN.BranchID),
			},
		},
		validate: iban.Validate,
		description: map[string]string{
			"bank_id":   "bank identifier; null when the country has no registered bank layout",
			"branch_id": "branch identifier; null when the country has no registered branch layout",
		},
	})
}

func registerURL(r *Registry) error {
	return register(r, formatSpec[weburl.URL]{
		format: identifier.FormatURL,
		projection: columnar.Projection[weburl.URL]{
			Parse: weburl.Parse,
			Fields: []columnar.Field[weburl.URL]{
				columnar.StringField("scheme", weburl.URL.Scheme),
				columnar.StringField("username", weburl.URL.Username),
				columnar.OptionalStringField("host", weburl.URL.Host),
				columnar.OptionalStringField("domain", weburl.URL.Domain),
				columnar.OptionalUint16Field("port", weburl.URL.Port),
				columnar.StringField("path", weburl.URL.Path),
				columnar.OptionalStringField("query", weburl.URL.Query),
				columnar.OptionalStringField("fragment", weburl.URL.Fragment),
				columnar.BoolField("is_special", weburl.URL.IsSpecial),
			},
		},
		validate: weburl.Validate,
		description: map[string]string{
			"host":   "serialized host; null when absent or empty",
			"domain": "host when it is a domain name; null for IP literals",
			"port":   "explicit port; null when absent or equal to the scheme default",
		},
	})
}
