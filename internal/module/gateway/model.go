package gateway

import (
	"time"

	"github.com/google/uuid"
)

// ProviderMercadoPago is the only gateway provider currently integrated.
const ProviderMercadoPago = "mercadopago"

// Environment identifies which credential pair of a gateway record is in use.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
	// EnvironmentLegacy is the undifferentiated key pair kept from before
	// sandbox and production credentials were split.
	EnvironmentLegacy Environment = "legacy"
)

// IsValid checks if the environment is one a caller may request.
func (e Environment) IsValid() bool {
	return e == EnvironmentSandbox || e == EnvironmentProduction
}

// Gateway is a configured payment-gateway credential record.
type Gateway struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Provider string    `json:"provider" gorm:"not null;index"`
	Name     string    `json:"name"`
	// Environment is the declared environment for this record. The resolver
	// may still fall back to another pair if the declared one is incomplete.
	Environment Environment `json:"environment" gorm:"default:sandbox"`
	Active      bool        `json:"active" gorm:"default:true;index"`

	SandboxPublicKey      string `json:"-"`
	SandboxAccessToken    string `json:"-"`
	ProductionPublicKey   string `json:"-"`
	ProductionAccessToken string `json:"-"`
	// Legacy undifferentiated pair
	PublicKey   string `json:"-"`
	AccessToken string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Gateway) TableName() string {
	return "gateways"
}

// CredentialPair is one public key + secret token pair.
type CredentialPair struct {
	PublicKey   string
	AccessToken string
}

// Complete reports whether both halves of the pair are present.
func (p CredentialPair) Complete() bool {
	return p.PublicKey != "" && p.AccessToken != ""
}

// Pair returns the credential pair for the given environment.
func (g *Gateway) Pair(env Environment) CredentialPair {
	switch env {
	case EnvironmentSandbox:
		return CredentialPair{PublicKey: g.SandboxPublicKey, AccessToken: g.SandboxAccessToken}
	case EnvironmentProduction:
		return CredentialPair{PublicKey: g.ProductionPublicKey, AccessToken: g.ProductionAccessToken}
	default:
		return CredentialPair{PublicKey: g.PublicKey, AccessToken: g.AccessToken}
	}
}

// Usable reports whether the gateway has at least one complete pair.
func (g *Gateway) Usable() bool {
	return g.Pair(EnvironmentSandbox).Complete() ||
		g.Pair(EnvironmentProduction).Complete() ||
		g.Pair(EnvironmentLegacy).Complete()
}
