package auth

import (
	"context"

	"crownkeys/internal/domain"
)

// Service composes bearer extraction, verification and resolution into the
// single operation the access-control guards consume.
type Service struct {
	verifier *Verifier
	resolver *Resolver
}

// NewService wires a verifier and resolver together.
func NewService(verifier *Verifier, resolver *Resolver) *Service {
	return &Service{verifier: verifier, resolver: resolver}
}

// Authenticate turns a raw Authorization header into a Principal. An empty
// header, a malformed header and an unverifiable token all fail with
// domain.ErrInvalidCredential; directory outages fail with
// domain.ErrUpstream.
func (s *Service) Authenticate(ctx context.Context, authorization string) (domain.Principal, error) {
	token, err := ExtractBearer(authorization)
	if err != nil {
		return domain.Principal{}, err
	}
	verified, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return domain.Principal{}, err
	}
	return s.resolver.Resolve(ctx, verified)
}

// Verifier exposes the underlying verifier for token issuance at
// registration time.
func (s *Service) Verifier() *Verifier { return s.verifier }
