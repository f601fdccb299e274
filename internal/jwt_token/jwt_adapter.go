package jwttoken

import (
	authmw "istr/pkg/platform/middleware/auth"
)

// middlewareValidator narrows Claims to what the auth middleware puts on the
// request context.
type middlewareValidator struct {
	svc *JWTService
}

// Validator returns s as the validator expected by the auth middleware.
func (s *JWTService) Validator() authmw.JWTValidator {
	return middlewareValidator{svc: s}
}

func (v middlewareValidator) ValidateToken(raw string) (*authmw.JWTClaims, error) {
	c, err := v.svc.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{Subject: c.Subject, Scope: c.Scope, JTI: c.ID}, nil
}
