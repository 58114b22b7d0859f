// Package auth verifies the access tokens issued by the lending api and
// carries the caller's identity through request contexts.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	apperrors "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/response"
)

// Principal is an authenticated lender. Token is forwarded to the lending api
// unchanged.
type Principal struct {
	UserID int64
	Token  string
}

// Claims mirrors the access tokens of the lending api, which put the user id
// in a user_id claim.
type Claims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify checks the signature and expiry of token and returns its principal.
// Every failure wraps ErrUnauthorized.
func (v *Verifier) Verify(token string) (Principal, error) {
	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}

	if claims.TokenType != "" && claims.TokenType != "access" {
		return Principal{}, fmt.Errorf("%w: %s token used for access", apperrors.ErrUnauthorized, claims.TokenType)
	}

	userID := claims.UserID
	if userID == 0 && claims.Subject != "" {
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return Principal{}, fmt.Errorf("%w: invalid subject %q", apperrors.ErrUnauthorized, claims.Subject)
		}
		userID = id
	}
	if userID <= 0 {
		return Principal{}, fmt.Errorf("%w: token carries no user id", apperrors.ErrUnauthorized)
	}

	return Principal{UserID: userID, Token: token}, nil
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware rejects requests without a valid access token.
func Middleware(v *Verifier, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				response.Unauthorized(w, "Missing bearer token")
				return
			}

			principal, err := v.Verify(token)
			if err != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Debug("rejected access token")
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
