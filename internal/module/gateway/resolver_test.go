package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mock repository ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Gateway, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Gateway), args.Error(1)
}

func (m *MockRepository) NewestActiveByProvider(ctx context.Context, provider string) (*Gateway, error) {
	args := m.Called(ctx, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Gateway), args.Error(1)
}

func (m *MockRepository) NewestByProvider(ctx context.Context, provider string) (*Gateway, error) {
	args := m.Called(ctx, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Gateway), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]*Gateway, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Gateway), args.Error(1)
}

func fullyConfiguredGateway() *Gateway {
	return &Gateway{
		ID:                    uuid.New(),
		Provider:              "mercadopago",
		Active:                true,
		SandboxPublicKey:      "TEST-pub",
		SandboxAccessToken:    "TEST-token",
		ProductionPublicKey:   "APP-pub",
		ProductionAccessToken: "APP-token",
		CreatedAt:             time.Now(),
	}
}

func TestResolve_PrefersSandboxWhenEnvironmentUnspecified(t *testing.T) {
	gw := fullyConfiguredGateway()
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, gw.ID).Return(gw, nil)

	resolver := NewResolver(repo, zap.NewNop())
	creds, err := resolver.Resolve(context.Background(), gw.ID, "mercadopago", "")

	require.NoError(t, err)
	assert.Equal(t, EnvironmentSandbox, creds.Environment)
	assert.Equal(t, "TEST-pub", creds.PublicKey)
	assert.Equal(t, "TEST-token", creds.AccessToken)
	assert.False(t, creds.Degraded)
}

func TestResolve_HonorsRequestedEnvironment(t *testing.T) {
	gw := fullyConfiguredGateway()
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, gw.ID).Return(gw, nil)

	resolver := NewResolver(repo, zap.NewNop())
	creds, err := resolver.Resolve(context.Background(), gw.ID, "mercadopago", EnvironmentProduction)

	require.NoError(t, err)
	assert.Equal(t, EnvironmentProduction, creds.Environment)
	assert.Equal(t, "APP-token", creds.AccessToken)
}

func TestResolve_RequestedEnvironmentIncomplete(t *testing.T) {
	gw := fullyConfiguredGateway()
	gw.ProductionAccessToken = ""
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, gw.ID).Return(gw, nil)

	resolver := NewResolver(repo, zap.NewNop())
	_, err := resolver.Resolve(context.Background(), gw.ID, "mercadopago", EnvironmentProduction)

	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestResolve_FallsBackToLegacyPair(t *testing.T) {
	gw := &Gateway{
		ID:          uuid.New(),
		Provider:    "mercadopago",
		Active:      true,
		PublicKey:   "legacy-pub",
		AccessToken: "legacy-token",
	}
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, gw.ID).Return(gw, nil)

	resolver := NewResolver(repo, zap.NewNop())
	creds, err := resolver.Resolve(context.Background(), gw.ID, "mercadopago", "")

	require.NoError(t, err)
	assert.Equal(t, EnvironmentLegacy, creds.Environment)
	assert.Equal(t, "legacy-token", creds.AccessToken)
}

func TestResolve_InactiveExactIDFallsThroughToNewestActive(t *testing.T) {
	requested := fullyConfiguredGateway()
	requested.Active = false
	fallback := fullyConfiguredGateway()

	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, requested.ID).Return(requested, nil)
	repo.On("NewestActiveByProvider", mock.Anything, "mercadopago").Return(fallback, nil)

	resolver := NewResolver(repo, zap.NewNop())
	creds, err := resolver.Resolve(context.Background(), requested.ID, "mercadopago", "")

	require.NoError(t, err)
	assert.Equal(t, fallback.ID, creds.GatewayID)
	assert.False(t, creds.Degraded)
}

func TestResolve_LastResortIsFlaggedDegraded(t *testing.T) {
	inactive := fullyConfiguredGateway()
	inactive.Active = false

	repo := new(MockRepository)
	repo.On("NewestActiveByProvider", mock.Anything, "mercadopago").Return(nil, ErrGatewayNotFound)
	repo.On("NewestByProvider", mock.Anything, "mercadopago").Return(inactive, nil)

	resolver := NewResolver(repo, zap.NewNop())
	creds, err := resolver.Resolve(context.Background(), uuid.Nil, "mercadopago", "")

	require.NoError(t, err)
	assert.True(t, creds.Degraded)
	assert.Equal(t, inactive.ID, creds.GatewayID)
}

func TestResolve_NoGateway(t *testing.T) {
	repo := new(MockRepository)
	repo.On("NewestActiveByProvider", mock.Anything, "mercadopago").Return(nil, ErrGatewayNotFound)
	repo.On("NewestByProvider", mock.Anything, "mercadopago").Return(nil, ErrGatewayNotFound)

	resolver := NewResolver(repo, zap.NewNop())
	_, err := resolver.Resolve(context.Background(), uuid.Nil, "mercadopago", "")

	assert.ErrorIs(t, err, ErrNoGateway)
}

func TestResolve_MatchingRecordWithoutAnyPair(t *testing.T) {
	gw := &Gateway{ID: uuid.New(), Provider: "mercadopago", Active: true}
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, gw.ID).Return(gw, nil)

	resolver := NewResolver(repo, zap.NewNop())
	_, err := resolver.Resolve(context.Background(), gw.ID, "mercadopago", "")

	assert.ErrorIs(t, err, ErrMissingCredentials)
}
