package middleware

import (
	"context"

	"rentme/internal/app/commands"
	"rentme/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// SerializableWhenAsked runs commands implementing commands.Serializable with
// serializable isolation and everything else with defaults.
func SerializableWhenAsked(cmd commands.Command) uow.TxOptions {
	if s, ok := cmd.(commands.Serializable); ok && s.Serializable() {
		return uow.TxOptions{Serializable: true}
	}
	return uow.TxOptions{}
}

// Transaction wraps each command in a unit of work. The unit is rolled back on
// any handler error or when ctx is cancelled before commit. Hooks registered by
// the handler run after the commit, or after the rollback for compensations.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	if optsProvider == nil {
		optsProvider = SerializableWhenAsked
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if _, ok := uow.FromContext(ctx); ok {
				return nextFn(ctx, cmd)
			}
			unit, err := factory.Begin(ctx, optsProvider(cmd))
			if err != nil {
				return nil, err
			}
			execCtx, hooks := uow.WithHooks(uow.Bind(ctx, unit))
			committed := false
			defer func() {
				if !committed {
					detached := context.WithoutCancel(execCtx)
					_ = unit.Rollback(detached)
					hooks.RunOnRollback(detached)
				}
			}()

			res, err := nextFn(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			hooks.RunAfterCommit(context.WithoutCancel(execCtx))
			return res, nil
		})
	}
}
