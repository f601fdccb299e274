package auth

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"istr/pkg/platform/httputil"
	request "istr/pkg/platform/middleware/request"
	"istr/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	Subject string
	Scope   string
	JTI     string
}

// HasScope reports whether the space separated scope list contains s.
func (c *JWTClaims) HasScope(s string) bool {
	return slices.Contains(strings.Fields(c.Scope), s)
}

// writeJSONError writes the standard error envelope.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: errCode, ErrorDescription: errDesc})
}

// RequireAuth rejects requests without a valid bearer token. When scope is not
// empty the token must also carry it.
func RequireAuth(validator JWTValidator, scope string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			if scope != "" && !claims.HasScope(scope) {
				logger.WarnContext(ctx, "forbidden - missing scope",
					"subject", claims.Subject,
					"scope", scope,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Token lacks required scope")
				return
			}

			ctx = requestcontext.WithSubject(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
