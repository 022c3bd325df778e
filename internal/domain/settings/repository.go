package settings

import "context"

// Repository defines the interface for integration settings data operations
type Repository interface {
	// Upsert creates the organization's settings row or replaces it
	Upsert(ctx context.Context, settings *IntegrationSettings) error
	GetByOrganization(ctx context.Context, organizationID string) (*IntegrationSettings, error)
	DeleteByOrganization(ctx context.Context, organizationID string) error
}
