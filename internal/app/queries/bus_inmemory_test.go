package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoQuery struct{ Value string }

func (echoQuery) Key() string { return "test.echo" }

type otherQuery struct{}

func (otherQuery) Key() string { return "test.other" }

func TestAskRoutesByKey(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[echoQuery, string](bus, HandlerFunc[echoQuery, string](func(ctx context.Context, q echoQuery) (string, error) {
		return q.Value, nil
	}))

	out, err := Ask[echoQuery, string](context.Background(), bus, echoQuery{Value: "nightly"})
	require.NoError(t, err)
	assert.Equal(t, "nightly", out)
	assert.Equal(t, []string{"test.echo"}, bus.Registered())

	_, err = bus.Ask(context.Background(), otherQuery{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[echoQuery, string](func(ctx context.Context, q echoQuery) (string, error) { return "", nil })
	RegisterHandler[echoQuery, string](bus, h)
	assert.Panics(t, func() { RegisterHandler[echoQuery, string](bus, h) })
}
