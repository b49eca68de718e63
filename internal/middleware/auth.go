package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/pkg/problem"
)

// RolePlatformAdmin may act on any tenant.
const RolePlatformAdmin = "platform_admin"

// Claims are the JWT claims the API accepts.
type Claims struct {
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token. Used by the seed tool and tests.
func IssueToken(secret, issuer string, a core.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TenantID: a.TenantID,
		Roles:    a.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// JWTAuth validates the bearer token and stores the caller as a core.Actor
// in the request context.
func JWTAuth(secret, issuer string) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				problem.Write(w, http.StatusUnauthorized, "Unauthorized", "Missing bearer token")
				return
			}

			var claims Claims
			_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return key, nil })
			if err != nil {
				detail := "Invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					detail = "Token expired"
				}
				problem.Write(w, http.StatusUnauthorized, "Unauthorized", detail)
				return
			}
			if claims.Subject == "" || claims.TenantID == "" {
				problem.Write(w, http.StatusUnauthorized, "Unauthorized", "Token lacks subject or tenant")
				return
			}

			ctx := core.ContextWithActor(r.Context(), core.Actor{
				UserID:   claims.Subject,
				TenantID: claims.TenantID,
				Roles:    claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantScope rejects callers whose token tenant differs from the
// {tenantID} path segment. Platform admins pass and act as that tenant.
func TenantScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantID")
		actor := core.ActorFromContext(r.Context())

		if err := core.EnsureSameTenant(actor.TenantID, tenantID, "tenant "+tenantID); err != nil {
			if !slices.Contains(actor.Roles, RolePlatformAdmin) {
				problem.WriteProblem(w, problem.Problem{
					Title:  "Unauthorized",
					Status: http.StatusUnauthorized,
					Detail: err.Error(),
					Code:   "tenant.access.denied",
				})
				return
			}
			actor.TenantID = tenantID
			r = r.WithContext(core.ContextWithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

// tenantFromContext returns the authenticated tenant, if any.
func tenantFromContext(ctx context.Context) string {
	return core.ActorFromContext(ctx).TenantID
}
