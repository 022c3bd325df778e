package connection

import "context"

// Repository defines the interface for connection data operations.
// Each organization holds at most one connection.
type Repository interface {
	Create(ctx context.Context, conn *Connection) error
	Get(ctx context.Context, id string) (*Connection, error)
	GetByOrganization(ctx context.Context, organizationID string) (*Connection, error)
	Update(ctx context.Context, conn *Connection) error
	DeleteByOrganization(ctx context.Context, organizationID string) error
}
