package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/tendant/content-flow/pkg/contentflow"
)

// Claim names carried by bearer tokens.
const (
	ClaimSubject  = "sub"
	ClaimTenantID = "tenant_id"
	ClaimRole     = "role"
)

// NewTokenAuth returns an HS256 verifier for secret.
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// IssueToken signs a token for p. Used by tooling and tests.
func IssueToken(ja *jwtauth.JWTAuth, p contentflow.Principal) (string, error) {
	_, token, err := ja.Encode(map[string]interface{}{
		ClaimSubject:  p.ID.String(),
		ClaimTenantID: p.TenantID.String(),
		ClaimRole:     string(p.Role),
	})
	return token, err
}

// Authenticate verifies the bearer token and attaches the principal it
// describes to the request context.
func Authenticate(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verifier(ja)(jwtauth.Authenticator(principalFromClaims(next)))
	}
}

func principalFromClaims(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			writeError(w, r, contentflow.ErrUnauthenticated)
			return
		}
		p, err := principalOf(claims)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", contentflow.ErrUnauthenticated, err))
			return
		}
		fillPrincipalSlot(r.Context(), p)
		next.ServeHTTP(w, r.WithContext(contentflow.WithPrincipal(r.Context(), p)))
	})
}

func principalOf(claims map[string]interface{}) (contentflow.Principal, error) {
	id, err := uuidClaim(claims, ClaimSubject)
	if err != nil {
		return contentflow.Principal{}, err
	}
	tenantID, err := uuidClaim(claims, ClaimTenantID)
	if err != nil {
		return contentflow.Principal{}, err
	}
	role, _ := claims[ClaimRole].(string)
	return contentflow.Principal{ID: id, TenantID: tenantID, Role: contentflow.Role(role)}, nil
}

func uuidClaim(claims map[string]interface{}, name string) (uuid.UUID, error) {
	raw, ok := claims[name].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing %s claim", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s claim: %w", name, err)
	}
	return id, nil
}
