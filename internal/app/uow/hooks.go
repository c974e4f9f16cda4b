package uow

import (
	"context"
	"sync"
)

// Hooks holds side effects that depend on how the surrounding unit ends.
// The Transaction middleware runs them; handlers only register.
type Hooks struct {
	mu          sync.Mutex
	afterCommit []func(context.Context)
	onRollback  []func(context.Context)
}

type hooksKey struct{}

// WithHooks binds a fresh hook set to ctx.
func WithHooks(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

func hooksFrom(ctx context.Context) (*Hooks, bool) {
	h, ok := ctx.Value(hooksKey{}).(*Hooks)
	return h, ok
}

// AfterCommit schedules fn for after the unit bound to ctx commits. Outside a
// unit fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	h, ok := hooksFrom(ctx)
	if !ok {
		fn(ctx)
		return
	}
	h.mu.Lock()
	h.afterCommit = append(h.afterCommit, fn)
	h.mu.Unlock()
}

// OnRollback schedules a compensation for when the unit bound to ctx does not
// commit. Outside a unit it is dropped.
func OnRollback(ctx context.Context, fn func(context.Context)) {
	h, ok := hooksFrom(ctx)
	if !ok {
		return
	}
	h.mu.Lock()
	h.onRollback = append(h.onRollback, fn)
	h.mu.Unlock()
}

func (h *Hooks) RunAfterCommit(ctx context.Context) {
	for _, fn := range h.take(&h.afterCommit) {
		fn(ctx)
	}
}

// RunOnRollback runs compensations newest first.
func (h *Hooks) RunOnRollback(ctx context.Context) {
	fns := h.take(&h.onRollback)
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i](ctx)
	}
}

func (h *Hooks) take(list *[]func(context.Context)) []func(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fns := *list
	*list = nil
	return fns
}
