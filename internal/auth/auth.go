// Package auth carries the operator session through the request context.
// The JWT middleware verifies bearer tokens and stores both the decoded
// credentials and the raw token, which the query invoker forwards.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const (
	ctxUserCredentials ctxKey = "TAGCONSOLE_USER_CREDENTIALS"
	ctxSessionToken    ctxKey = "TAGCONSOLE_SESSION_TOKEN"
)

// UserCredentials identifies the operator behind a request.
type UserCredentials struct {
	ID    string
	Email string
	Role  string
}

// UserFromContext returns the credentials stored by JWT.
func UserFromContext(ctx context.Context) (*UserCredentials, bool) {
	u, ok := ctx.Value(ctxUserCredentials).(*UserCredentials)
	return u, ok && u != nil
}

// WithToken stores a raw session token on ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxSessionToken, token)
}

// TokenFromContext returns the raw session token, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(ctxSessionToken).(string)
	return tok, ok && tok != ""
}

// VerifyFunc validates a token and returns its claims.
type VerifyFunc func(ctx context.Context, token string) (map[string]any, error)

// ExtractFunc converts claims into UserCredentials.
type ExtractFunc func(claims map[string]any) (*UserCredentials, error)

// JWT verifies the bearer token when one is present. Requests without a
// token pass through untouched; downstream code decides whether a session
// is required.
func JWT(verify VerifyFunc, extract ExtractFunc) func(http.Handler) http.Handler {
	if verify == nil {
		panic("auth.JWT: verify func must not be nil")
	}
	if extract == nil {
		extract = DefaultCredentialExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, found := ExtractJWTToken(r)
			if !found {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verify(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			creds, err := extract(claims)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="invalid claims"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserCredentials, creds)
			ctx = WithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests that carry no verified credentials with a
// 401 and a flat {"error": "..."} body.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "no active session"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractJWTToken reads "Authorization: Bearer <token>".
func ExtractJWTToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// DefaultCredentialExtractor reads sub/email/role claims.
func DefaultCredentialExtractor(claims map[string]any) (*UserCredentials, error) {
	if claims == nil {
		return nil, errors.New("missing claims")
	}
	id := stringClaim(claims, "sub")
	if id == "" {
		id = stringClaim(claims, "user_id")
	}
	if id == "" {
		return nil, errors.New("missing subject claim")
	}
	return &UserCredentials{
		ID:    id,
		Email: stringClaim(claims, "email"),
		Role:  stringClaim(claims, "role"),
	}, nil
}

func stringClaim(claims map[string]any, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// HMACTokenVerifier validates HS256 tokens signed with secret. Expiry and
// not-before claims are enforced by the parser.
func HMACTokenVerifier(secret []byte) VerifyFunc {
	return func(_ context.Context, token string) (map[string]any, error) {
		parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return nil, err
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok || !parsed.Valid {
			return nil, errors.New("invalid token")
		}
		return map[string]any(claims), nil
	}
}

// UnsignedTokenVerifier decodes the payload without checking the signature.
// Local development only.
func UnsignedTokenVerifier() VerifyFunc {
	return func(_ context.Context, token string) (map[string]any, error) {
		parts := strings.Split(token, ".")
		if len(parts) < 2 {
			return nil, errors.New("invalid token format")
		}
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
		if err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		claims := make(map[string]any)
		if err := json.Unmarshal(decoded, &claims); err != nil {
			return nil, fmt.Errorf("unmarshal claims: %w", err)
		}
		return claims, nil
	}
}
