package monitor

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/promptwatch/promptwatch/pkg/backend"
	"github.com/promptwatch/promptwatch/pkg/document"
)

// ErrBackendBusy is returned by Sweep when the busy gate suppressed the
// whole pass. It is distinct from a sweep that found nothing to do.
var ErrBackendBusy = errors.New("backend busy")

// ErrJobTimeout marks a generation call that exceeded the controller's
// outer bound, as opposed to a backend that answered with an error.
var ErrJobTimeout = errors.New("generation exceeded job timeout")

// GeneratorFactory builds the generation collaborator for one document's
// configuration.
type GeneratorFactory func(cfg *document.Config) (backend.Generator, error)

// Controller drives one processing attempt per discovered file. Jobs run
// strictly one at a time; the rename at the end of an attempt is the sole
// commit point. The controller performs no file locking itself: concurrent
// invocations racing on the same file must be prevented by an external
// advisory lock around the whole invocation.
type Controller struct {
	// Dir is the watched directory.
	Dir string
	// StabilityDelay is the sampling delay of the stability check.
	StabilityDelay time.Duration
	// JobTimeout bounds one generation call, independent of the per-request
	// timeout configured inside the document. It protects the sweep loop
	// from a wedged backend.
	JobTimeout time.Duration
	// DryRun reports would-be work without generating or renaming.
	DryRun bool
	// Busy gates each sweep; nil disables the gate.
	Busy BusyChecker
	// NewGenerator builds the generation collaborator per document.
	NewGenerator GeneratorFactory
}

func NewController(dir string) *Controller {
	return &Controller{
		Dir:            dir,
		StabilityDelay: 2 * time.Second,
		JobTimeout:     2 * time.Hour,
		NewGenerator: func(cfg *document.Config) (backend.Generator, error) {
			return backend.New(cfg)
		},
	}
}

// Sweep runs one full pass over the watched directory and returns the
// number of files advanced to a terminal state. When the busy gate reports
// the backend occupied, the pass is skipped entirely and ErrBackendBusy is
// returned.
func (c *Controller) Sweep(ctx context.Context) (int, error) {
	if c.Busy != nil {
		busy, reason, err := c.Busy.Busy(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("busy check failed, proceeding with sweep")
		} else if busy {
			log.Info().Str("reason", reason).Msg("backend busy, skipping sweep")
			return 0, errors.Wrap(ErrBackendBusy, reason)
		}
	}

	jobs, err := Discover(c.Dir)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		log.Debug().Str("dir", c.Dir).Msg("no prompt files found to process")
		return 0, nil
	}

	processed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		if !IsStable(job.Path, c.StabilityDelay) {
			log.Debug().Str("path", job.Path).Msg("skipping file still being written")
			continue
		}
		job.Status = StatusStable

		if c.DryRun {
			log.Info().Str("path", job.Path).Msg("would process")
			processed++
			continue
		}

		if c.processJob(ctx, job) {
			processed++
		}
	}
	return processed, nil
}

// Run repeats sweeps on a fixed interval until the context is cancelled.
// Errors inside a sweep are logged and never stop the loop.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	log.Info().Str("dir", c.Dir).Dur("interval", interval).Msg("starting continuous monitoring")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		count, err := c.Sweep(ctx)
		switch {
		case err == nil:
			if count > 0 {
				log.Info().Int("processed", count).Msg("sweep finished")
			}
		case errors.Is(err, ErrBackendBusy):
			// wait for the next tick and re-check
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return ctx.Err()
		default:
			log.Error().Err(err).Msg("sweep failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// processJob runs one attempt and commits the outcome via rename. It
// reports whether the job reached a terminal state; a failed rename leaves
// the file under its original name for manual recovery.
func (c *Controller) processJob(ctx context.Context, job *Job) bool {
	log.Info().Str("path", job.Path).Msg("processing prompt file")
	job.Status = StatusInFlight

	err := c.runJob(ctx, job)
	if err != nil {
		log.Error().
			Err(err).
			Str("path", job.Path).
			Str("class", failureClass(err)).
			Msg("job failed")
	}

	target, renameErr := c.markTerminal(job, err == nil)
	if renameErr != nil {
		log.Error().Err(renameErr).Str("path", job.Path).Msg("could not rename file")
		return false
	}

	log.Info().
		Str("path", job.Path).
		Str("renamed_to", target).
		Str("status", job.Status.String()).
		Msg("job finished")
	return true
}

// runJob is one processing attempt: parse, validate the tail-turn
// invariant, generate under the outer bound, append.
func (c *Controller) runJob(ctx context.Context, job *Job) error {
	raw, err := os.ReadFile(job.Path)
	if err != nil {
		return errors.Wrap(err, "read prompt file")
	}

	doc, err := document.Parse(string(raw))
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	gen, err := c.NewGenerator(doc.Config)
	if err != nil {
		return err
	}

	genCtx, cancel := context.WithTimeout(ctx, c.JobTimeout)
	defer cancel()

	if validator, ok := gen.(backend.ModelValidator); ok {
		if _, err := validator.ValidateModel(genCtx); err != nil {
			return err
		}
	}

	start := time.Now()
	result, err := gen.Generate(genCtx, doc.Messages())
	if err != nil {
		if genCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return errors.Wrapf(ErrJobTimeout, "after %s", c.JobTimeout)
		}
		return err
	}
	elapsed := time.Since(start)

	if err := document.AppendResponse(job.Path, result.Text, elapsed, result.Usage); err != nil {
		return err
	}

	event := log.Info().
		Str("path", job.Path).
		Dur("elapsed", elapsed)
	if result.Usage != nil {
		event = event.Int("tokens", result.Usage.TotalTokens)
	}
	event.Msg("response appended")
	return nil
}

func (c *Controller) markTerminal(job *Job, ok bool) (string, error) {
	suffix, status := CompleteSuffix, StatusCompleted
	if !ok {
		suffix, status = ErrorSuffix, StatusFailed
	}

	target := job.Path + suffix
	if err := os.Rename(job.Path, target); err != nil {
		return "", errors.Wrap(err, "rename to terminal state")
	}
	job.Status = status
	return target, nil
}

// failureClass buckets a job error for operator-facing logs, so a slow
// backend reads differently from a broken one or a malformed file.
func failureClass(err error) string {
	var formatErr *document.FormatError
	var configErr *document.ConfigError
	var invariantErr *document.InvariantError
	var generationErr *backend.GenerationError

	switch {
	case errors.Is(err, ErrJobTimeout):
		return "timeout"
	case errors.As(err, &formatErr):
		return "format"
	case errors.As(err, &configErr):
		return "config"
	case errors.As(err, &invariantErr):
		return "invariant"
	case errors.As(err, &generationErr):
		return "generation"
	default:
		return "io"
	}
}
