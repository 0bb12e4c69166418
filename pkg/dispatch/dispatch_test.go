package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weftwork/weft/pkg/models"
)

func float(v float64) *float64 { return &v }

func newTestDispatcher(t *testing.T, fn Executor) *Dispatcher {
	t.Helper()

	d := NewDispatcher(nil)
	d.RegisterResource(Resource{Name: "message", DisplayName: "Message"})

	err := d.Register(Operation{
		Name:        "send",
		DisplayName: "Send Message",
		Resource:    "message",
		Fields: []Field{
			{Name: "channel", Kind: KindString, Required: true},
			{Name: "text", Kind: KindTextarea, Required: true},
			{Name: "priority", Kind: KindEnum, Options: []string{"low", "normal", "high"}, Default: "normal"},
			{Name: "retries", Kind: KindInteger, Default: 3, Min: float(0), Max: float(10)},
			{Name: "silent", Kind: KindBoolean, Default: false},
		},
	}, fn)
	require.NoError(t, err)

	return d
}

func TestDispatch_MissingRequiredField(t *testing.T) {
	d := newTestDispatcher(t, func(_ context.Context, _ models.ExecutionContext, _, _ map[string]any) (map[string]any, error) {
		t.Fatal("executor must not run on validation failure")

		return nil, nil
	})

	result := d.Dispatch(context.Background(), models.ExecutionContext{}, "message", "send",
		map[string]any{"channel": "#general"}, nil)

	assert.True(t, result.IsFailure())
	assert.Contains(t, result.Error, "text")
}

func TestDispatch_AppliesDefaults(t *testing.T) {
	var got map[string]any

	d := newTestDispatcher(t, func(_ context.Context, _ models.ExecutionContext, params, _ map[string]any) (map[string]any, error) {
		got = params

		return map[string]any{"ok": true}, nil
	})

	result := d.Dispatch(context.Background(), models.ExecutionContext{}, "message", "send",
		map[string]any{"channel": "#general", "text": "hello"}, nil)

	require.True(t, result.IsSuccess())
	assert.Equal(t, "normal", got["priority"])
	assert.Equal(t, 3, got["retries"])
	assert.Equal(t, false, got["silent"])
}

func TestDispatch_SingleExecutorInvocation(t *testing.T) {
	calls := 0

	d := newTestDispatcher(t, func(_ context.Context, _ models.ExecutionContext, _, _ map[string]any) (map[string]any, error) {
		calls++

		return map[string]any{}, nil
	})

	result := d.Dispatch(context.Background(), models.ExecutionContext{}, "message", "send",
		map[string]any{"channel": "#general", "text": "hello"}, nil)

	require.True(t, result.IsSuccess())
	assert.Equal(t, 1, calls)
}

func TestDispatch_TypeCoercion(t *testing.T) {
	var got map[string]any

	d := newTestDispatcher(t, func(_ context.Context, _ models.ExecutionContext, params, _ map[string]any) (map[string]any, error) {
		got = params

		return map[string]any{}, nil
	})

	// JSON decodes integers as float64; the dispatcher coerces them back.
	result := d.Dispatch(context.Background(), models.ExecutionContext{}, "message", "send",
		map[string]any{"channel": "#general", "text": "hi", "retries": float64(5), "silent": "true"}, nil)

	require.True(t, result.IsSuccess())
	assert.Equal(t, 5, got["retries"])
	assert.Equal(t, true, got["silent"])
}

func TestDispatch_UncoercibleTypeNamesField(t *testing.T) {
	d := newTestDispatcher(t, func(_ context.Context, _ models.ExecutionContext, _, _ map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	})

	result := d.Dispatch(context.Background(), models.ExecutionContext{}, "message", "send",
		map[string]any{"channel": "#general", "text": "hi", "retries": "lots"}, nil)

	assert.True(t, result.IsFailure())
	assert.Contains(t, result.Error, "retries")
	assert.Contains(t, result.Error, "integer")
}

func TestDispatch_EnumMembership(t *testing.T) {
	d := newTestDispatcher(t, func(_ context.Context, _ models.ExecutionContext, _, _ map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	})

	result := d.Dispatch(context.Background(), models.ExecutionContext{}, "message", "send",
		map[string]any{"channel": "#general", "text": "hi", "priority": "urgent"}, nil)

	assert.True(t, result.IsFailure())
	assert.Contains(t, result.Error, "priority")
}

func TestDispatch_NumericRange(t *testing.T) {
	d := newTestDispatcher(t, func(_ context.Context, _ models.ExecutionContext, _, _ map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	})

	result := d.Dispatch(context.Background(), models.ExecutionContext{}, "message", "send",
		map[string]any{"channel": "#general", "text": "hi", "retries": float64(99)}, nil)

	assert.True(t, result.IsFailure())
	assert.Contains(t, result.Error, "retries")
}

func TestDispatch_UnknownResourceAndOperation(t *testing.T) {
	d := newTestDispatcher(t, func(_ context.Context, _ models.ExecutionContext, _, _ map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	})

	result := d.Dispatch(context.Background(), models.ExecutionContext{}, "channel", "send", nil, nil)
	assert.True(t, result.IsFailure())
	assert.Contains(t, result.Error, "unknown resource")

	result = d.Dispatch(context.Background(), models.ExecutionContext{}, "message", "delete", nil, nil)
	assert.True(t, result.IsFailure())
	assert.Contains(t, result.Error, "unknown operation")
}

func TestDispatch_WrapsExecutorError(t *testing.T) {
	d := newTestDispatcher(t, func(_ context.Context, _ models.ExecutionContext, _, _ map[string]any) (map[string]any, error) {
		return nil, errors.New("downstream exploded")
	})

	result := d.Dispatch(context.Background(), models.ExecutionContext{}, "message", "send",
		map[string]any{"channel": "#general", "text": "hi"}, nil)

	assert.True(t, result.IsFailure())
	assert.Contains(t, result.Error, "downstream exploded")
}

func TestDispatch_RecoversExecutorPanic(t *testing.T) {
	d := newTestDispatcher(t, func(_ context.Context, _ models.ExecutionContext, _, _ map[string]any) (map[string]any, error) {
		panic("boom")
	})

	result := d.Dispatch(context.Background(), models.ExecutionContext{}, "message", "send",
		map[string]any{"channel": "#general", "text": "hi"}, nil)

	assert.True(t, result.IsFailure())
	assert.Contains(t, result.Error, "boom")
}

func TestSchema_ContainsSelectorsAndFields(t *testing.T) {
	d := newTestDispatcher(t, func(_ context.Context, _ models.ExecutionContext, _, _ map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	})

	schema := d.Schema()

	require.NotNil(t, schema.Properties["resource"])
	require.NotNil(t, schema.Properties["operation"])
	assert.Contains(t, schema.Properties["resource"].Enum, "message")
	assert.Contains(t, schema.Properties["operation"].Enum, "send")
	require.NotNil(t, schema.Properties["channel"])
	assert.Equal(t, "string", schema.Properties["channel"].Type)
	require.NotNil(t, schema.Properties["priority"])
	assert.Len(t, schema.Properties["priority"].Enum, 3)
}
