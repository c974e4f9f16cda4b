package middleware

import (
	"context"
	"log/slog"

	"rentme/internal/app/commands"
	"rentme/internal/app/policies"
)

// PropertyScoped is implemented by commands that mutate one property calendar.
type PropertyScoped interface {
	PropertyScope() string
}

// ScopeResolver maps a command that does not name its property to the
// property whose calendar it writes. An empty id leaves the command unscoped.
type ScopeResolver func(ctx context.Context, cmd commands.Command) (string, error)

// PropertyLock serializes scoped commands per property. It must sit outside
// Transaction so the lock is held until the unit has committed.
func PropertyLock(locker policies.PropertyLocker, logger *slog.Logger, resolvers ...ScopeResolver) CommandMiddleware {
	if locker == nil {
		panic("middleware: property locker required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			scope, err := resolveScope(ctx, cmd, resolvers)
			if err != nil {
				return nil, err
			}
			if scope == "" {
				return nextFn(ctx, cmd)
			}
			unlock, err := locker.Lock(ctx, scope)
			if err != nil {
				return nil, err
			}
			defer func() {
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					logger.WarnContext(ctx, "property lock release failed", "property_id", scope, "error", err)
				}
			}()
			return nextFn(ctx, cmd)
		})
	}
}

func resolveScope(ctx context.Context, cmd commands.Command, resolvers []ScopeResolver) (string, error) {
	if scoped, ok := cmd.(PropertyScoped); ok {
		return scoped.PropertyScope(), nil
	}
	for _, resolve := range resolvers {
		scope, err := resolve(ctx, cmd)
		if err != nil || scope != "" {
			return scope, err
		}
	}
	return "", nil
}
