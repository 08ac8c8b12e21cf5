package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func echoTool(name, category string) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its input",
		Category:    category,
		Parameters: map[string]Parameter{
			"message": {Type: "string", Required: true},
		},
		Handler: func(_ context.Context, params map[string]any) (any, error) {
			return params["message"], nil
		},
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(echoTool("echo", "test"))

	got, err := r.Get("echo")
	assert.NoError(t, err)
	assert.Equal(t, "echo", got.Name)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(echoTool("zeta", "a"))
	r.Register(echoTool("alpha", "b"))
	r.Register(echoTool("mid", "a"))

	tools := r.List()
	assert.Len(t, tools, 3)
	assert.Equal(t, "alpha", tools[0].Name)
	assert.Equal(t, "zeta", tools[2].Name)

	catA := r.ListByCategory("a")
	assert.Len(t, catA, 2)
	assert.Equal(t, "mid", catA[0].Name)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(echoTool("echo", "test"))

	assert.True(t, r.Remove("echo"))
	assert.False(t, r.Remove("echo"))
	_, err := r.Get("echo")
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(echoTool("echo", "test"))

	result, err := r.Execute(context.Background(), "echo", map[string]any{"message": "hello"})
	assert.NoError(t, err)
	assert.Equal(t, "hello", result)

	_, err = r.Execute(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestTool_ExecuteMissingRequiredParam(t *testing.T) {
	tl := echoTool("echo", "test")
	_, err := tl.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing required parameter: message")
}

func TestTool_ExecuteHandlerError(t *testing.T) {
	boom := errors.New("boom")
	tl := &Tool{
		Name:       "failing",
		Parameters: map[string]Parameter{},
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return nil, boom
		},
	}
	_, err := tl.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}
