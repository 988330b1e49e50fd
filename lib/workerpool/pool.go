// Package workerpool runs blocking work, such as file system calls,
// on a fixed number of goroutines owned by the pool.
package workerpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	ErrPoolClosed   = errors.New("worker pool is closed")
	ErrTaskPanicked = errors.New("task panicked")
	ErrInvalidSize  = errors.New("worker pool size must be at least 1")
)

type Task func()

type Pool struct {
	size  uint
	tasks chan Task

	closed chan struct{}
	once   sync.Once
	g      errgroup.Group
}

// New starts size workers. They live until [Pool.Close] is called.
func New(size uint) (*Pool, error) {
	if size == 0 {
		return nil, ErrInvalidSize
	}

	p := &Pool{
		size:   size,
		tasks:  make(chan Task),
		closed: make(chan struct{}),
	}

	for i := uint(0); i < size; i++ {
		p.g.Go(p.work)
	}

	return p, nil
}

func (p *Pool) Size() uint { return p.size }

func (p *Pool) work() error {
	for {
		select {
		case <-p.closed:
			return nil
		case task := <-p.tasks:
			task()
		}
	}
}

// Submit hands task to an idle worker and waits for it to finish.
// ctx only bounds the time spent waiting for an idle worker;
// once a worker picked the task up, Submit returns after the task returned.
// A panic inside task is reported as [ErrTaskPanicked].
func (p *Pool) Submit(ctx context.Context, task Task) error {
	var (
		done     = make(chan struct{})
		panicked any
	)

	wrapped := func() {
		defer close(done)
		defer func() { panicked = recover() }()
		task()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return ErrPoolClosed
	case p.tasks <- wrapped:
	}

	<-done

	if panicked != nil {
		return errors.Wrap(ErrTaskPanicked, fmt.Sprint(panicked))
	}
	return nil
}

// Close stops accepting tasks and waits for running ones.
func (p *Pool) Close() error {
	err := ErrPoolClosed
	p.once.Do(func() {
		close(p.closed)
		err = p.g.Wait()
	})
	return err
}
