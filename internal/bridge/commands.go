package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/maloquacious/count/internal/store"
)

type idArgs struct {
	ID int64 `json:"id"`
}

type incrementArgs struct {
	ID     int64  `json:"id"`
	Amount *int64 `json:"amount,omitempty"`
}

// decode strictly unmarshals args into v; a malformed payload is a
// validation failure.
func decode(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing arguments", store.ErrValidation)
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	return nil
}

func (b *Bridge) createCounter(ctx context.Context, args json.RawMessage) (any, error) {
	var nc store.NewCounter
	if err := decode(args, &nc); err != nil {
		return nil, err
	}
	return b.backend.CreateCounter(ctx, nc)
}

func (b *Bridge) getCounter(ctx context.Context, args json.RawMessage) (any, error) {
	var a idArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return b.backend.GetCounter(ctx, a.ID)
}

func (b *Bridge) getAllCounters(ctx context.Context, _ json.RawMessage) (any, error) {
	return b.backend.ListCounters(ctx)
}

func (b *Bridge) updateCounter(ctx context.Context, args json.RawMessage) (any, error) {
	var uc store.UpdateCounter
	if err := decode(args, &uc); err != nil {
		return nil, err
	}
	return b.backend.UpdateCounter(ctx, uc)
}

func (b *Bridge) deleteCounter(ctx context.Context, args json.RawMessage) (any, error) {
	var a idArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if err := b.backend.DeleteCounter(ctx, a.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (b *Bridge) incrementCounter(ctx context.Context, args json.RawMessage) (any, error) {
	var a incrementArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	amount := int64(1)
	if a.Amount != nil {
		amount = *a.Amount
	}
	return b.backend.IncrementCounter(ctx, a.ID, amount)
}

func (b *Bridge) resetCounter(ctx context.Context, args json.RawMessage) (any, error) {
	var a idArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return b.backend.ResetCounter(ctx, a.ID)
}

func (b *Bridge) schemaVersion(ctx context.Context, _ json.RawMessage) (any, error) {
	v, err := b.backend.GetSchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"version": v}, nil
}
