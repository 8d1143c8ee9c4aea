package gateway

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResolvedCredentials is a gateway record narrowed to the single credential
// pair that will actually be used, with the selected environment made
// explicit so callers never have to guess which keys were picked.
type ResolvedCredentials struct {
	GatewayID   uuid.UUID
	Provider    string
	Environment Environment
	PublicKey   string
	AccessToken string
	// Degraded is set when the record was found by the last-resort strategy
	// (inactive gateway of the right provider).
	Degraded bool
}

// Resolver selects a usable gateway record and credential pair.
type Resolver struct {
	repo   Repository
	logger *zap.Logger
}

// NewResolver creates a new credential resolver.
func NewResolver(repo Repository, logger *zap.Logger) *Resolver {
	return &Resolver{repo: repo, logger: logger}
}

// candidate is a gateway record plus how it was found.
type candidate struct {
	gateway  *Gateway
	degraded bool
}

// strategy tries one way of locating a gateway record. A nil candidate with
// a nil error means "no match, try the next strategy".
type strategy func(ctx context.Context, gatewayID uuid.UUID, provider string) (*candidate, error)

// Resolve finds a gateway and picks a credential pair. Strategies run in
// order, first match wins:
//  1. the exact requested gateway id, if active
//  2. the newest active gateway of the provider
//  3. any gateway of the provider, flagged degraded
//
// Within the chosen record, the requested environment's pair is preferred;
// with no requested environment the order is sandbox, production, legacy.
func (r *Resolver) Resolve(ctx context.Context, gatewayID uuid.UUID, provider string, requested Environment) (*ResolvedCredentials, error) {
	strategies := []strategy{
		r.byExactID,
		r.newestActive,
		r.anyOfProvider,
	}

	var cand *candidate
	for _, s := range strategies {
		c, err := s(ctx, gatewayID, provider)
		if err != nil {
			return nil, err
		}
		if c != nil {
			cand = c
			break
		}
	}
	if cand == nil {
		return nil, ErrNoGateway
	}

	env, pair, ok := selectPair(cand.gateway, requested)
	if !ok {
		return nil, ErrMissingCredentials
	}

	if cand.degraded {
		r.logger.Warn("resolved inactive gateway as last resort",
			zap.String("gateway_id", cand.gateway.ID.String()),
			zap.String("provider", cand.gateway.Provider),
		)
	}

	return &ResolvedCredentials{
		GatewayID:   cand.gateway.ID,
		Provider:    cand.gateway.Provider,
		Environment: env,
		PublicKey:   pair.PublicKey,
		AccessToken: pair.AccessToken,
		Degraded:    cand.degraded,
	}, nil
}

func (r *Resolver) byExactID(ctx context.Context, gatewayID uuid.UUID, _ string) (*candidate, error) {
	if gatewayID == uuid.Nil {
		return nil, nil
	}
	gw, err := r.repo.GetByID(ctx, gatewayID)
	if err != nil {
		if errors.Is(err, ErrGatewayNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !gw.Active {
		return nil, nil
	}
	return &candidate{gateway: gw}, nil
}

func (r *Resolver) newestActive(ctx context.Context, _ uuid.UUID, provider string) (*candidate, error) {
	gw, err := r.repo.NewestActiveByProvider(ctx, provider)
	if err != nil {
		if errors.Is(err, ErrGatewayNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &candidate{gateway: gw}, nil
}

func (r *Resolver) anyOfProvider(ctx context.Context, _ uuid.UUID, provider string) (*candidate, error) {
	gw, err := r.repo.NewestByProvider(ctx, provider)
	if err != nil {
		if errors.Is(err, ErrGatewayNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &candidate{gateway: gw, degraded: true}, nil
}

// selectPair picks the credential pair for the record. A requested
// environment pins the choice to that pair; otherwise sandbox is preferred,
// then production, then the legacy pair.
func selectPair(gw *Gateway, requested Environment) (Environment, CredentialPair, bool) {
	if requested.IsValid() {
		if pair := gw.Pair(requested); pair.Complete() {
			return requested, pair, true
		}
		return "", CredentialPair{}, false
	}

	for _, env := range []Environment{EnvironmentSandbox, EnvironmentProduction, EnvironmentLegacy} {
		if pair := gw.Pair(env); pair.Complete() {
			return env, pair, true
		}
	}
	return "", CredentialPair{}, false
}
