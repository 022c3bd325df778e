package testutil

import (
	"context"

	"github.com/complytrack/complytrack/internal/types"
)

const (
	TestOrganizationID = "org_test_1"
	TestUserID         = "user_test_1"
)

// SetupContext returns a context carrying the default test identity
func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetOrganizationID(ctx, TestOrganizationID)
	ctx = types.SetUserID(ctx, TestUserID)
	return ctx
}

// ContextForOrg returns a context scoped to the given organization
func ContextForOrg(organizationID string) context.Context {
	ctx := context.Background()
	ctx = types.SetOrganizationID(ctx, organizationID)
	ctx = types.SetUserID(ctx, TestUserID)
	return ctx
}
