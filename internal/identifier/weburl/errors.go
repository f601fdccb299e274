package weburl

import "fmt"

// Kind classifies a URL parse failure.
type Kind int

const (
	KindOther Kind = iota
	KindEmptyHost
	KindIDNAError
	KindInvalidPort
	KindInvalidIPv4
	KindInvalidIPv6
	KindInvalidDomainCharacter
	KindRelativeWithoutBase
	KindRelativeWithCannotBeABaseBase
	KindSetHostOnCannotBeABaseURL
	KindOverflow
)

var kindMessages = map[Kind]string{
	KindEmptyHost:                     "empty host",
	KindIDNAError:                     "invalid international domain name",
	KindInvalidPort:                   "invalid port number",
	KindInvalidIPv4:                   "invalid IPv4 address",
	KindInvalidIPv6:                   "invalid IPv6 address",
	KindInvalidDomainCharacter:        "invalid domain character",
	KindRelativeWithoutBase:           "relative URL without a base",
	KindRelativeWithCannotBeABaseBase: "relative URL with a cannot-be-a-base base",
	KindSetHostOnCannotBeABaseURL:     "a cannot-be-a-base URL doesn't have a host to set",
	KindOverflow:                      "URLs more than 4 GB are not supported",
}

// String returns the stable message for k. Unrecognised kinds read
// "unknown error".
func (k Kind) String() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return "unknown error"
}

// Sentinels for errors.Is matching by kind.
var (
	ErrEmptyHost              = &ParseError{Kind: KindEmptyHost}
	ErrIDNA                   = &ParseError{Kind: KindIDNAError}
	ErrInvalidPort            = &ParseError{Kind: KindInvalidPort}
	ErrInvalidIPv4            = &ParseError{Kind: KindInvalidIPv4}
	ErrInvalidIPv6            = &ParseError{Kind: KindInvalidIPv6}
	ErrInvalidDomainCharacter = &ParseError{Kind: KindInvalidDomainCharacter}
	ErrRelativeWithoutBase    = &ParseError{Kind: KindRelativeWithoutBase}
	ErrSetHostOnOpaque        = &ParseError{Kind: KindSetHostOnCannotBeABaseURL}
	ErrOverflow               = &ParseError{Kind: KindOverflow}
)

// ParseError reports why a string could not be parsed as a URL.
type ParseError struct {
	Kind  Kind
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("weburl: %s: %v", e.Kind, e.Err)
	}
	return "weburl: " + e.Kind.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is matches any *ParseError with the same Kind.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

func failure(kind Kind, input string) *ParseError {
	return &ParseError{Kind: kind, Input: input}
}
