package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/dormdeals/internal/domain"
	"github.com/joao-fontenele/dormdeals/internal/web"
)

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type ctxKey struct{}

func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFrom(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*domain.User)
	return u, ok && u != nil
}

type Middleware struct {
	tokens *TokenIssuer
	users  UserLookup
	authz  *Authorizer
	logger *slog.Logger
}

func NewMiddleware(tokens *TokenIssuer, users UserLookup, authz *Authorizer, logger *slog.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		users:  users,
		authz:  authz,
		logger: logger,
	}
}

// Authenticate resolves the bearer token to a stored user and puts it on the
// request context.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			web.WriteError(w, r, m.logger, domain.Unauthorized("Not authorized, no token"))
			return
		}

		userID, err := m.tokens.Verify(token)
		if err != nil {
			web.WriteError(w, r, m.logger, domain.Unauthorized("Not authorized, token failed"))
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				web.WriteError(w, r, m.logger, domain.Unauthorized("Not authorized, user not found"))
				return
			}
			web.WriteError(w, r, m.logger, err)
			return
		}

		next(w, r.WithContext(WithUser(r.Context(), user)))
	}
}

// Require only lets the authenticated user through when the policy allows act
// on obj for their role. It must run inside Authenticate.
func (m *Middleware) Require(obj, act string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		if !ok {
			web.WriteError(w, r, m.logger, domain.Unauthorized("Not authorized, no token"))
			return
		}
		allowed, err := m.authz.Allowed(user, obj, act)
		if err != nil {
			web.WriteError(w, r, m.logger, err)
			return
		}
		if !allowed {
			web.WriteError(w, r, m.logger, domain.Forbidden("Not authorized as an admin"))
			return
		}
		next(w, r)
	}
}

// Admin is Authenticate followed by Require.
func (m *Middleware) Admin(obj, act string, next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticate(m.Require(obj, act, next))
}

// MustUser returns the user placed on the context by Authenticate.
func MustUser(r *http.Request) *domain.User {
	u, ok := UserFrom(r.Context())
	if !ok {
		panic("auth: handler mounted without Authenticate")
	}
	return u
}
