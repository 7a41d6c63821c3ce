package shortcode

import (
	"context"
	"errors"
	"fmt"
)

// ErrExhaustedAttempts is returned when every attempt produced a code that
// is already stored.
var ErrExhaustedAttempts = errors.New("unable to generate unique code after multiple attempts")

// DefaultLengths is the candidate length schedule. Early attempts stay short;
// later ones grow to lower the collision probability as the namespace fills.
var DefaultLengths = []int{6, 6, 6, 7, 7, 8, 8, 8}

// ExistenceChecker is the part of the link store the resolver needs.
type ExistenceChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// Resolver picks codes that the store does not contain yet. The answer is only
// a hint: the insert's unique constraint remains the source of truth.
type Resolver struct {
	checker  ExistenceChecker
	generate func(length int) string
	lengths  []int
	// OnCollision, when set, is called for every candidate found in the store.
	OnCollision func(code string)
}

// NewResolver returns a resolver using Generate and DefaultLengths.
func NewResolver(checker ExistenceChecker) *Resolver {
	return &Resolver{
		checker:  checker,
		generate: Generate,
		lengths:  DefaultLengths,
	}
}

// WithGenerator replaces the code generator, mostly for tests.
func (r *Resolver) WithGenerator(generate func(length int) string) *Resolver {
	r.generate = generate
	return r
}

// Unique returns the first generated candidate that is absent from the store.
// At most min(maxAttempts, len(lengths)) candidates are tried.
func (r *Resolver) Unique(ctx context.Context, maxAttempts int) (string, error) {
	attempts := min(maxAttempts, len(r.lengths))
	for i := 0; i < attempts; i++ {
		code := r.generate(r.lengths[i])

		exists, err := r.checker.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking short code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
		if r.OnCollision != nil {
			r.OnCollision(code)
		}
	}
	return "", ErrExhaustedAttempts
}
