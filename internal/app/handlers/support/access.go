package support

import (
	"context"

	"rentme/internal/app/access"
	domainproperty "rentme/internal/domain/property"
)

// RequireHostOf allows the owning host and privileged principals.
func RequireHostOf(ctx context.Context, p *domainproperty.Property) (access.Principal, error) {
	principal, err := access.Require(ctx)
	if err != nil {
		return access.Principal{}, err
	}
	if principal.Privileged() || p.OwnedBy(principal.ID) {
		return principal, nil
	}
	return access.Principal{}, access.ErrForbidden
}
