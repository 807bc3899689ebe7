package rag

import (
	"context"

	apperr "github.com/readmate/readmate/internal/pkg/errors"
)

// Limiter bounds concurrent generator calls. Up to maxConcurrent run at
// once, up to maxQueue more wait; anything beyond that is rejected with
// ErrOverloaded instead of queuing without bound.
type Limiter struct {
	sem           chan struct{}
	admission     chan struct{}
	maxConcurrent int
}

func NewLimiter(maxConcurrent, maxQueue int) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxQueue < 0 {
		maxQueue = 0
	}
	return &Limiter{
		sem:           make(chan struct{}, maxConcurrent),
		admission:     make(chan struct{}, maxConcurrent+maxQueue),
		maxConcurrent: maxConcurrent,
	}
}

// Acquire claims a slot, waiting in the bounded queue if all slots are
// busy. The returned release func must be called exactly once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.admission <- struct{}{}:
	default:
		return nil, apperr.ErrOverloaded
	}
	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			<-l.admission
		}, nil
	case <-ctx.Done():
		<-l.admission
		return nil, ctx.Err()
	}
}

// Status reports in-flight and waiting counts for the queue status surface.
func (l *Limiter) Status() (active, waiting, capacity int) {
	active = len(l.sem)
	waiting = len(l.admission) - active
	if waiting < 0 {
		waiting = 0
	}
	return active, waiting, l.maxConcurrent
}
