// Package statediff implements the read-compare-emit pattern shared by
// approvals, delegated allowances, ownership changes and deployment checks:
// read current on-chain state once, compare against the desired state, and
// emit zero calls when already satisfied or the minimal calls otherwise.
package statediff

import (
	"context"
	"errors"

	"github.com/hxuan190/omni-route/internal/domain"
)

// ErrInvariant is a parameter contract breach detected before any network
// call. It is never retried.
var ErrInvariant = errors.New("state-diff parameter invariant violated")

// ReadFunc loads the current on-chain state.
type ReadFunc[S any] func(ctx context.Context) (S, error)

// BuildFunc compares the current state with the caller's desired state and
// returns the minimal calls to reach it. An empty result means the state is
// already satisfied.
type BuildFunc[S any] func(current S) []domain.CallArgs

// Reconcile runs one read and one comparison. All concrete appliers in this
// package are thin parameterizations of this function.
func Reconcile[S any](ctx context.Context, read ReadFunc[S], build BuildFunc[S]) ([]domain.CallArgs, error) {
	current, err := read(ctx)
	if err != nil {
		return nil, err
	}
	return build(current), nil
}
