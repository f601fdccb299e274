package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"istr/internal/app"
	jwttoken "istr/internal/jwt_token"
	httptransport "istr/internal/transport/http"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	var (
		subject    string
		scope      string
		ttl        time.Duration
		signingKey string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the batch API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if signingKey == "" {
				cfg, err := root.load()
				if err != nil {
					return err
				}
				signingKey = cfg.Server.JWTSigningKey
			}
			if signingKey == "" {
				return errors.New("no signing key: pass --signing-key or set ISTR_JWT_SIGNING_KEY")
			}
			svc := jwttoken.NewJWTService(signingKey, app.TokenIssuer, app.TokenAudience)
			token, err := svc.GenerateAccessToken(subject, scope, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (required)")
	cmd.Flags().StringVar(&scope, "scope", httptransport.ScopeRun, "space separated scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringVar(&signingKey, "signing-key", "", "HMAC signing key (defaults to server.jwt_signing_key)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
