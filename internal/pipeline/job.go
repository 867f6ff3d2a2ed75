package pipeline

import (
	"context"
	"fmt"
)

// Job is a pipeline run executing on its own goroutine, for embeddings
// that must keep an interactive thread responsive.
type Job struct {
	done chan error
}

// Start launches the pipeline in the background. A panicking worker is
// reported as a generic failure rather than taking the host down.
func (p *Pipeline) Start(ctx context.Context) *Job {
	j := &Job{done: make(chan error, 1)}
	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				p.log.Errorw("pipeline worker crashed", "panic", r)
				err = fmt.Errorf("pipeline failed: %v", r)
			}
			j.done <- err
		}()
		err = p.Run(ctx)
	}()
	return j
}

// Done exposes the terminal result; it receives exactly one value.
func (j *Job) Done() <-chan error {
	return j.done
}

// Wait blocks until the run finishes.
func (j *Job) Wait() error {
	return <-j.done
}
