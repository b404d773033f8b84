package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "snowflake/pkg/domain"
	"snowflake/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	Address id.Address
	JTI     string
}

type contextKeyJTI struct{}

// GetCaller retrieves the authenticated caller address from the context.
func GetCaller(ctx context.Context) id.Address {
	return requestcontext.Caller(ctx)
}

// GetTokenID retrieves the access token id from the context.
func GetTokenID(ctx context.Context) string {
	jti, _ := ctx.Value(contextKeyJTI{}).(string)
	return jti
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth validates the bearer token and stores the caller address.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil || claims.Address.IsZero() {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithCaller(ctx, claims.Address)
			ctx = context.WithValue(ctx, contextKeyJTI{}, claims.JTI)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
