// Package access carries the caller identity resolved by the edge (API gateway
// or the HTTP layer) through application handlers.
package access

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("access: authentication required")
	ErrForbidden       = errors.New("access: insufficient permissions")
)

type Role string

const (
	RoleGuest  Role = "guest"
	RoleHost   Role = "host"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

type Principal struct {
	ID    string
	Roles []Role
}

// System is the principal used by background workers and broker consumers.
var System = Principal{ID: "system", Roles: []Role{RoleSystem}}

func (p Principal) Has(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Privileged reports whether p may act on resources it does not own.
func (p Principal) Privileged() bool {
	return p.Has(RoleAdmin) || p.Has(RoleSystem)
}

// ParseRoles reads a comma separated role list, ignoring unknown values.
func ParseRoles(raw string) []Role {
	var out []Role
	for _, part := range strings.Split(raw, ",") {
		switch r := Role(strings.ToLower(strings.TrimSpace(part))); r {
		case RoleGuest, RoleHost, RoleAdmin:
			out = append(out, r)
		}
	}
	return out
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	if !ok || strings.TrimSpace(p.ID) == "" {
		return Principal{}, false
	}
	return p, true
}

// Require returns the caller or ErrUnauthenticated.
func Require(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	return p, nil
}

// Restricted is implemented by messages that need one of the listed roles.
// Admin and system principals always pass.
type Restricted interface {
	RequiredRoles() []Role
}

// Authorize checks message against the principal stored in ctx.
func Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(Restricted)
	if !ok {
		return nil
	}
	p, err := Require(ctx)
	if err != nil {
		return err
	}
	if p.Privileged() {
		return nil
	}
	required := restricted.RequiredRoles()
	if len(required) == 0 {
		return nil
	}
	for _, role := range required {
		if p.Has(role) {
			return nil
		}
	}
	return ErrForbidden
}

// Authorizer adapts Authorize to the middleware port.
type Authorizer struct{}

func (Authorizer) Authorize(ctx context.Context, message any) error {
	return Authorize(ctx, message)
}
