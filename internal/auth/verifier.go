// Package auth implements the token verification and identity resolution
// pipeline: bearer extraction, dual-strategy credential verification and
// mapping of verified credentials onto application principals.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"crownkeys/internal/domain"
)

const maxClockSkew = 30 * time.Second

// IdentityProvider resolves an externally-issued access token to the
// identity it was minted for.
type IdentityProvider interface {
	GetUser(ctx context.Context, accessToken string) (domain.ExternalIdentity, error)
}

// Source tags which verification strategy accepted a credential.
type Source int

const (
	// SourceExternal means the hosted identity provider vouched for the
	// token; the subject may not have a directory row yet.
	SourceExternal Source = iota
	// SourceLocal means the token was signed with our secret and carries
	// id/email/role claims directly.
	SourceLocal
)

// Claims are the fields embedded in a locally-signed token.
type Claims struct {
	UserID string
	Email  string
	Role   domain.Role
}

// Verified is the tagged result of credential verification. Exactly one of
// External/Local is meaningful, selected by Source.
type Verified struct {
	Source   Source
	External domain.ExternalIdentity
	Local    Claims
}

// Verifier validates bearer credentials. It supports two formats:
// externally-issued tokens checked against the identity provider, and
// locally-signed HS256 tokens checked against the local secret.
type Verifier struct {
	provider IdentityProvider
	secret   []byte
	issueTTL time.Duration
}

// NewVerifier creates a verifier backed by the given provider and local
// signing secret. issueTTL bounds the lifetime of locally-issued tokens.
func NewVerifier(provider IdentityProvider, secret []byte, issueTTL time.Duration) *Verifier {
	return &Verifier{provider: provider, secret: secret, issueTTL: issueTTL}
}

// ExtractBearer pulls the token out of an Authorization header value.
// Missing scheme, wrong segment count or an empty token fail with
// domain.ErrInvalidCredential before any verification runs.
func ExtractBearer(authorization string) (string, error) {
	if authorization == "" {
		return "", domain.ErrInvalidCredential
	}
	parts := strings.Fields(authorization)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", domain.ErrInvalidCredential
	}
	return parts[1], nil
}

// VerifyExternal asks the identity provider whether the token is a live
// session and returns the identity it belongs to.
func (v *Verifier) VerifyExternal(ctx context.Context, token string) (domain.ExternalIdentity, error) {
	ident, err := v.provider.GetUser(ctx, token)
	if err != nil {
		return domain.ExternalIdentity{}, domain.ErrInvalidCredential
	}
	if ident.ID == "" {
		return domain.ExternalIdentity{}, domain.ErrInvalidCredential
	}
	return ident, nil
}

// VerifyLocal validates a locally-signed token's signature and expiry and
// decodes its embedded claims. All failure modes collapse into
// domain.ErrInvalidCredential.
func (v *Verifier) VerifyLocal(token string) (Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithLeeway(maxClockSkew),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, domain.ErrInvalidCredential
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, domain.ErrInvalidCredential
	}
	id, _ := mc["id"].(string)
	if id == "" {
		return Claims{}, domain.ErrInvalidCredential
	}
	email, _ := mc["email"].(string)
	roleStr, _ := mc["role"].(string)

	return Claims{
		UserID: id,
		Email:  email,
		Role:   domain.RoleOrBaseline(roleStr),
	}, nil
}

// Verify determines the token type by ordered attempt: externally-issued
// first, then locally-signed. It returns the tagged result of whichever
// strategy accepted the token, or domain.ErrInvalidCredential when both
// reject it. The error never records which strategy failed or why.
func (v *Verifier) Verify(ctx context.Context, token string) (Verified, error) {
	if ident, err := v.VerifyExternal(ctx, token); err == nil {
		return Verified{Source: SourceExternal, External: ident}, nil
	}
	if claims, err := v.VerifyLocal(token); err == nil {
		return Verified{Source: SourceLocal, Local: claims}, nil
	}
	return Verified{}, domain.ErrInvalidCredential
}

// Issue signs a local token carrying the user's id, email and role.
func (v *Verifier) Issue(user domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"role":  user.Role.String(),
		"iat":   now.Unix(),
		"exp":   now.Add(v.issueTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
