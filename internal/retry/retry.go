// Package retry provides the bounded repair-and-retry combinator used by
// the JSON repair round and the script re-execution path. Exactly one
// repair attempt is permitted; the bound lives here so callers cannot
// accidentally loop.
package retry

import "context"

// WithOneRepair runs run once. On failure it invokes repair with the
// failure and, if repair succeeds, runs once more. The second failure (or
// a repair failure) is final. The returned bool reports whether the
// successful result came from the retry.
func WithOneRepair[T any](ctx context.Context, run func(ctx context.Context) (T, error), repair func(ctx context.Context, cause error) error) (T, bool, error) {
	out, err := run(ctx)
	if err == nil {
		return out, false, nil
	}
	if repair == nil {
		return out, false, err
	}
	if repairErr := repair(ctx, err); repairErr != nil {
		return out, false, err
	}
	out, retryErr := run(ctx)
	if retryErr != nil {
		return out, false, retryErr
	}
	return out, true, nil
}
