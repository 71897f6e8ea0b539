package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"github.com/go-chi/chi/v5/middleware"
	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Authenticator validates HS256 bearer tokens. With an empty secret every
// request passes through without an identity.
type Authenticator struct {
	secret    []byte
	issuer    string
	clockSkew time.Duration
}

func NewAuthenticator(cfg models.AuthConfig) *Authenticator {
	return &Authenticator{
		secret:    []byte(strings.TrimSpace(cfg.JWTSecret)),
		issuer:    cfg.Issuer,
		clockSkew: 2 * time.Minute,
	}
}

func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		tokenString := extractBearer(r.Header.Get("Authorization"))
		if tokenString == "" {
			writeFailure(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := a.parseToken(tokenString)
		if err != nil {
			zap.L().Debug("Token validation failed", zap.Error(err))
			writeFailure(w, http.StatusUnauthorized, "invalid token")
			return
		}

		subject, _ := claims.GetSubject()
		if subject == "" {
			writeFailure(w, http.StatusUnauthorized, "invalid token")
			return
		}
		role, _ := claims["role"].(string)
		identity := &models.Identity{
			Subject:   subject,
			Role:      role,
			RequestId: middleware.GetReqID(r.Context()),
		}
		next.ServeHTTP(w, r.WithContext(models.WithIdentity(r.Context(), identity)))
	})
}

func (a *Authenticator) parseToken(tokenString string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.clockSkew),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

// RequireAdmin rejects callers without the admin role. It is a no-op when
// authentication is disabled.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Enabled() && !models.GetIdentity(r.Context()).IsAdmin() {
			writeFailure(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actorFor resolves who performs an action. Authenticated non-admin callers
// may only act as themselves; an empty claimed actor defaults to the token
// subject.
func actorFor(r *http.Request, claimed string) (string, error) {
	identity := models.GetIdentity(r.Context())
	if identity == nil || identity.IsAdmin() {
		if claimed == "" {
			return "", fmt.Errorf("%w: actor is required", store.ErrInvalidInput)
		}
		return claimed, nil
	}
	if claimed == "" {
		return identity.Subject, nil
	}
	if claimed != identity.Subject {
		return "", fmt.Errorf("%w: token subject %s cannot act as %s", store.ErrUnauthorized, identity.Subject, claimed)
	}
	return claimed, nil
}

func extractBearer(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
