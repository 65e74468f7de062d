package posemotion

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned when getting an estimator from a closed pool
var ErrPoolClosed = errors.New("estimator pool closed")

// Factory creates the estimator for pool slot i
type Factory func(i int) (Estimator, error)

// Pool is a simple pool of estimators so the cost of starting an estimator is
// paid once instead of per frame
type Pool struct {
	// pool of estimators
	estimators chan Estimator
	// size of pool
	size   int
	mu     sync.Mutex
	closed bool
}

// NewPool creates a new pool of the given size using factory to create each
// estimator
func NewPool(size int, factory Factory) (*Pool, error) {

	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}

	p := &Pool{
		estimators: make(chan Estimator, size),
		size:       size,
	}

	for i := 0; i < size; i++ {
		est, err := factory(i)

		if err != nil {
			// close any instances that may have been created before receiving
			// the error
			p.Close()
			return nil, fmt.Errorf("error creating estimator %d: %w", i, err)
		}

		// attach to pool
		p.Return(est)
	}

	return p, nil
}

// Get takes an estimator from the pool, blocking until one is free or the
// context is done
func (p *Pool) Get(ctx context.Context) (Estimator, error) {
	select {
	case est, ok := <-p.estimators:
		if !ok {
			return nil, ErrPoolClosed
		}
		return est, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Return an estimator to the pool.  Estimators returned after the pool is
// closed are closed instead.
func (p *Pool) Return(est Estimator) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = est.Close()
		return
	}

	select {
	case p.estimators <- est:
	default:
		// pool is full
		_ = est.Close()
	}
}

// Size returns the number of estimators the pool was created with
func (p *Pool) Size() int {
	return p.size
}

// Close the pool and all estimators in it.  Estimators currently checked out
// are closed when returned.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.estimators)

	var errs []error

	for next := range p.estimators {
		if err := next.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
