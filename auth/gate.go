package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/dependencies/mqlru"
	"github.com/saba2003/devcamper-api/log"
	"github.com/saba2003/devcamper-api/restmux/mux"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// roles of the users
const (
	RoleUser      = "user"
	RolePublisher = "publisher"
	RoleAdmin     = "admin"
)

// CookieName the cookie carrying the token
const CookieName = "token"

// loggedOut the cookie value set by logout
const loggedOut = "none"

var errNotAuthorized = status.Error(codes.Unauthenticated, "Not authorized to access this route")

// Principal the authenticated user of a request
type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin report whether the principal is an admin
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

type principalKey struct{}

type claimsKey struct{}

// PrincipalFrom the principal set by Protect, nil on public routes
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// ClaimsFrom the verified claims of the request token
func ClaimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

// NewContext a context carrying the principal
func NewContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// Gate protect the private routes
type Gate struct {
	identity Identity
	db       database.Database
	users    string
	cache    *mqlru.Lru
}

// NewGate the gate loading principals from the users collection, cache may be nil.
func NewGate(identity Identity, db database.Database, users string, cache *mqlru.Lru) *Gate {
	return &Gate{identity: identity, db: db, users: users, cache: cache}
}

// Identity the identity of the gate
func (g *Gate) Identity() Identity {
	return g.identity
}

// Credential the token of r: the bearer header, then the token cookie,
// then the access_token query parameter.
func Credential(r *http.Request) string {
	if authorization := r.Header.Get("Authorization"); strings.HasPrefix(authorization, "Bearer") {
		if _, token, ok := strings.Cut(authorization, " "); ok && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" && c.Value != loggedOut {
		return c.Value
	}
	return r.URL.Query().Get("access_token")
}

// Protect require a valid token whose user still exists.
func (g *Gate) Protect(h mux.HandlerFunc) mux.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) error {
		token := Credential(r)
		if token == "" {
			return errNotAuthorized
		}
		ctx := r.Context()
		claims, err := g.identity.Verify(ctx, token)
		if err != nil {
			return errNotAuthorized
		}
		principal, err := g.principal(ctx, claims.Subject)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				log.Extract(ctx).Action("auth.Protect").Warn("load principal %s: %v", claims.Subject, err)
			}
			return errNotAuthorized
		}
		log.Inject(ctx, map[string]any{"user_id": principal.ID})
		ctx = context.WithValue(NewContext(ctx, principal), claimsKey{}, claims)
		return h(w, r.WithContext(ctx), params)
	}
}

// Authorize allow only the roles, it runs after Protect.
func (g *Gate) Authorize(roles ...string) func(mux.HandlerFunc) mux.HandlerFunc {
	return func(h mux.HandlerFunc) mux.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request, params map[string]string) error {
			p := PrincipalFrom(r.Context())
			if p == nil {
				return errNotAuthorized
			}
			if !slices.Contains(roles, p.Role) {
				return status.Errorf(codes.PermissionDenied, "User role %s is not authorized to access this route", p.Role)
			}
			return h(w, r, params)
		}
	}
}

// CheckOwner allow the owner of a resource and the admins.
func CheckOwner(p *Principal, ownerID, msg string) error {
	if p == nil {
		return errNotAuthorized
	}
	if p.IsAdmin() || (ownerID != "" && p.ID == ownerID) {
		return nil
	}
	return status.Error(codes.PermissionDenied, msg)
}

// Revoke the token of the request, when the identity supports it.
func (g *Gate) Revoke(ctx context.Context) error {
	revoker, ok := g.identity.(interface {
		Revoke(ctx context.Context, claims *Claims) error
	})
	if !ok {
		return nil
	}
	return revoker.Revoke(ctx, ClaimsFrom(ctx))
}

// Invalidate drop the cached principal of the user on every instance.
func (g *Gate) Invalidate(ctx context.Context, userID string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Delete(ctx, cacheKey(userID)); err != nil {
		log.Extract(ctx).Action("auth.Invalidate").Warn(err.Error())
	}
}

func cacheKey(userID string) string {
	return "principal:" + userID
}

func (g *Gate) principal(ctx context.Context, userID string) (*Principal, error) {
	if g.cache == nil {
		return g.load(ctx, userID)
	}
	return mqlru.GetOrNew(ctx, g.cache, cacheKey(userID), func(ctx context.Context) (*Principal, error) {
		return g.load(ctx, userID)
	})
}

func (g *Gate) load(ctx context.Context, userID string) (*Principal, error) {
	doc, err := g.db.FindOne(ctx, g.users, database.ByID(userID))
	if err != nil {
		return nil, err
	}
	return PrincipalOf(doc), nil
}

// PrincipalOf the principal of a user document
func PrincipalOf(doc database.M) *Principal {
	return &Principal{
		ID:    fmt.Sprint(doc[database.IDKey]),
		Name:  doc.String("name"),
		Email: doc.String("email"),
		Role:  doc.String("role"),
	}
}
