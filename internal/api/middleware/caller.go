package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"presence.service/internal/core/model"
)

// Claims are the access-token claims the service reads. Subject is the
// employee id or email.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("invalid token")

type contextKeyCaller struct{}

// WithCaller stores the caller on ctx.
func WithCaller(ctx context.Context, caller model.Caller) context.Context {
	return context.WithValue(ctx, contextKeyCaller{}, caller)
}

// CallerFrom returns the caller stored by the auth middleware.
func CallerFrom(ctx context.Context) (model.Caller, bool) {
	caller, ok := ctx.Value(contextKeyCaller{}).(model.Caller)
	return caller, ok
}

// TokenValidator parses HS256 bearer tokens signed with a shared secret.
type TokenValidator struct {
	signingKey []byte
}

func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{signingKey: []byte(secret)}
}

// Validate returns the caller described by token.
func (v *TokenValidator) Validate(token string) (model.Caller, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Caller{}, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return model.Caller{}, errInvalidToken
	}
	caller := model.Caller{Subject: claims.Subject, Role: model.Role(strings.ToLower(claims.Role))}
	if caller.Subject == "" || !caller.Role.Valid() {
		return model.Caller{}, errInvalidToken
	}
	return caller, nil
}

// RequireCaller rejects requests without a valid bearer token and stores the
// caller on the request context.
func RequireCaller(v *TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			caller, err := v.Validate(token)
			if err != nil {
				log.Ctx(r.Context()).Warn().Err(err).Msg("Unauthorized request - invalid token")
				if errors.Is(err, jwt.ErrTokenExpired) {
					writeUnauthorized(w, "token has expired")
					return
				}
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// TrustHeaders reads the caller from X-Employee-Id and X-Role. Only for
// local development, where no token issuer runs.
func TrustHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := model.Caller{
				Subject: r.Header.Get("X-Employee-Id"),
				Role:    model.Role(strings.ToLower(r.Header.Get("X-Role"))),
			}
			if caller.Subject == "" || !caller.Role.Valid() {
				writeUnauthorized(w, "X-Employee-Id and X-Role headers are required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "message": description})
}
