// Package worker renders many views in parallel.
package worker

import (
	"context"
	"sync"
	"time"
)

// Renderer renders one view and returns where the result was written.
type Renderer interface {
	Render(ctx context.Context, fragment string) (path string, err error)
}

// Task is a single view to render.
type Task struct {
	Fragment string
}

// Result is the outcome of a task.
type Result struct {
	Task    Task
	Path    string
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the pool.
type Config struct {
	Workers    int
	Renderer   Renderer
	OnProgress ProgressFunc
}

// Pool renders views on a fixed number of goroutines.
type Pool struct {
	renderer   Renderer
	onProgress ProgressFunc
	workers    int
}

// New creates a pool with at least one worker.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		renderer:   cfg.Renderer,
		onProgress: cfg.OnProgress,
	}
}

// Run renders all tasks and returns one result per task, in completion order.
// Tasks not started before ctx is done get ctx.Err() as their error.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, 0, len(tasks))
	failed := 0
	for result := range resultCh {
		results = append(results, result)
		if result.Err != nil {
			failed++
		}
		if p.onProgress != nil {
			p.onProgress(len(results), len(tasks), failed)
		}
	}
	return results
}

func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result{Task: task, Err: err}
			continue
		}

		start := time.Now()
		path, err := p.renderer.Render(ctx, task.Fragment)
		results <- Result{
			Task:    task,
			Path:    path,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
