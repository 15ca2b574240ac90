package model

import (
	"time"

	"saas-api-console/internal/domain"
)

type APIKeyStatus string

const (
	APIKeyStatusActive  APIKeyStatus = "active"
	APIKeyStatusWarning APIKeyStatus = "warning" // approaching quota
	APIKeyStatusRevoked APIKeyStatus = "revoked"
)

type Environment string

const (
	EnvProduction Environment = "production"
	EnvTest       Environment = "test"
)

// UnlimitedQuota is the sentinel quota stored when a plan's call limit is -1.
const UnlimitedQuota int64 = 999999999

// APIKey is a provisioned credential. When it was issued by the payment flow
// it references its originating payment; at most one key may reference a given
// payment (enforced by a unique index, not just application logic).
type APIKey struct {
	ID        string // UUID
	UserID    string // UUID
	Key       string // full secret value, shown to the caller on issuance
	KeyPrefix string // non-secret display form: ak_live_7721...x922
	KeyDigest string // sha256 hex of Key, used by the metering verifier
	Name      string
	Industry  string
	PlanID    string
	URL       string
	// PaymentID links the key to the payment that funded it. Nil for keys
	// created outside the payment flow.
	PaymentID            *string
	TransactionReference string
	Status               APIKeyStatus
	Usage                int64
	Limit                int64
	Environment          Environment
	CreatedAt            time.Time
	LastRotatedAt        *time.Time
	RevokedAt            *time.Time
}

func (k *APIKey) IsZero() bool { return k == nil || k.ID == "" }

// QuotaFromPlan maps a plan's call limit to the stored quota.
func QuotaFromPlan(p *PricingPlan) int64 {
	if p == nil {
		return 0
	}
	if p.APICallLimit == -1 {
		return UnlimitedQuota
	}
	return p.APICallLimit
}

// NewAPIKey validates and constructs an active key.
func NewAPIKey(id, userID, name, industry, planID string, key, prefix, digest string, limit int64, env Environment) (*APIKey, error) {
	if id == "" || userID == "" || planID == "" || key == "" {
		return nil, domain.ErrInvalidArgument
	}
	if env == "" {
		env = EnvProduction
	}
	return &APIKey{
		ID:          id,
		UserID:      userID,
		Key:         key,
		KeyPrefix:   prefix,
		KeyDigest:   digest,
		Name:        name,
		Industry:    industry,
		PlanID:      planID,
		Status:      APIKeyStatusActive,
		Usage:       0,
		Limit:       limit,
		Environment: env,
		CreatedAt:   time.Now(),
	}, nil
}
