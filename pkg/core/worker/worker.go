package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sokol111/avropipe/pkg/core/health"
	"github.com/Sokol111/avropipe/pkg/core/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Runnable is a unit of work started with the application.
type Runnable interface {
	Run(ctx context.Context) error
}

// Options contains configuration for a worker.
type Options struct {
	WaitReady        bool
	ReadyTimeout     time.Duration
	ShutdownWhenDone bool
}

// Option is a functional option for configuring a worker.
type Option func(*Options)

// WithReady makes the worker wait for every registered component before running.
// A zero timeout waits until the worker is stopped.
func WithReady(timeout time.Duration) Option {
	return func(o *Options) {
		o.WaitReady = true
		o.ReadyTimeout = timeout
	}
}

// WithShutdown stops the application once the run returns, with exit code 1
// when it failed.
func WithShutdown() Option {
	return func(o *Options) {
		o.ShutdownWhenDone = true
	}
}

// Result holds the outcome of the workers of an application.
type Result struct {
	mu   sync.Mutex
	errs []error
}

func (r *Result) add(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// Err joins the errors of every failed worker.
func (r *Result) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

type baseWorker struct {
	name       string
	cancelFunc context.CancelFunc
	done       chan struct{}
	log        *zap.Logger
	runFunc    func(ctx context.Context) error
	shutdowner fx.Shutdowner
	readiness  health.ReadinessWaiter
	result     *Result
	options    Options
}

func (w *baseWorker) Start() {
	w.log.Debug("starting " + w.name)
	var ctx context.Context
	ctx, w.cancelFunc = context.WithCancel(logger.With(context.Background(), w.log.Named(w.name)))
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		w.finish(w.run(ctx))
	}()
}

func (w *baseWorker) run(ctx context.Context) error {
	if w.options.WaitReady {
		waitCtx, cancel := ctx, context.CancelFunc(func() {})
		if w.options.ReadyTimeout > 0 {
			waitCtx, cancel = context.WithTimeout(ctx, w.options.ReadyTimeout)
		}
		err := w.readiness.WaitReady(waitCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s: components not ready after %s: %w", w.name, w.options.ReadyTimeout, err)
		}
	}
	return w.runFunc(ctx)
}

func (w *baseWorker) finish(err error) {
	if err != nil {
		w.log.Error(w.name+" failed", zap.Error(err))
		if w.result != nil {
			w.result.add(err)
		}
	} else {
		w.log.Debug(w.name + " finished")
	}

	if !w.options.ShutdownWhenDone || w.shutdowner == nil {
		return
	}
	code := 0
	if err != nil {
		code = 1
	}
	if shutdownErr := w.shutdowner.Shutdown(fx.ExitCode(code)); shutdownErr != nil {
		w.log.Error("failed to initiate shutdown", zap.Error(shutdownErr))
	}
}

// Stop cancels the run and waits for it until ctx is done.
func (w *baseWorker) Stop(ctx context.Context) {
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.done == nil {
		return
	}
	select {
	case <-w.done:
	case <-ctx.Done():
		w.log.Warn(w.name + " did not stop in time")
	}
}

// Register returns a constructor that runs T's Run method with the
// application lifecycle. The *Result it reports into must be provided.
//
//	fx.Provide(func() *worker.Result { return &worker.Result{} }),
//	fx.Invoke(worker.Register[*mongo.Exporter]("export", worker.WithReady(30*time.Second), worker.WithShutdown())),
func Register[T Runnable](name string, opts ...Option) any {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}

	return func(lc fx.Lifecycle, log *zap.Logger, shutdowner fx.Shutdowner, readiness health.ReadinessWaiter, result *Result, dep T) {
		w := &baseWorker{
			name:       name,
			log:        log,
			runFunc:    dep.Run,
			shutdowner: shutdowner,
			readiness:  readiness,
			result:     result,
			options:    options,
		}
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				w.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				w.Stop(ctx)
				return nil
			},
		})
	}
}
