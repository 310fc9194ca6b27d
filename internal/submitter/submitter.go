// internal/submitter/submitter.go
// Package submitter runs the submission loop: for each of N attempts it
// opens the form, answers and advances through its pages, submits, and
// checks for confirmation. Attempt failures are recorded, never retried,
// and never stop the loop.
package submitter

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/confirm"
	"github.com/xkilldash9x/formpilot/internal/form"
	"github.com/xkilldash9x/formpilot/internal/humanoid"
	"github.com/xkilldash9x/formpilot/internal/observability"
	"github.com/xkilldash9x/formpilot/internal/report"
)

// Options carries the collaborators of a Submitter. Recorder and Pacer may
// be nil.
type Options struct {
	Page     Page
	Survey   *form.Survey
	Mapping  form.Mapping
	Rand     *rand.Rand
	Pacer    Pacer
	Recorder Recorder
	Logger   *zap.Logger
}

// Submitter repeats the form script. It is not safe for concurrent use;
// one browser tab serves every attempt.
type Submitter struct {
	cfg      config.Interface
	page     Page
	survey   *form.Survey
	mapping  form.Mapping
	picker   *form.Picker
	checker  *confirm.Checker
	pacer    Pacer
	recorder Recorder
	shots    *screenshots
	logger   *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New validates the inputs and builds a submitter. In prefill mode every
// survey field must be mapped; a gap is reported as *form.MappingError
// before any browser work starts.
func New(cfg config.Interface, opts Options) (*Submitter, error) {
	if opts.Page == nil {
		return nil, errors.New("submitter: page is required")
	}
	if opts.Survey == nil {
		return nil, errors.New("submitter: survey is required")
	}
	if cfg.Form().Mode == config.ModePrefill {
		if err := opts.Mapping.Validate(opts.Survey.Fields); err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("submitter")

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Submitter{
		cfg:      cfg,
		page:     opts.Page,
		survey:   opts.Survey,
		mapping:  opts.Mapping,
		picker:   form.NewPicker(opts.Survey, rng),
		checker:  confirm.NewChecker(cfg.Confirm(), logger),
		pacer:    opts.Pacer,
		recorder: opts.Recorder,
		shots:    &screenshots{dir: cfg.Artifacts().Dir, enabled: cfg.Artifacts().Screenshots, logger: logger},
		logger:   logger,
		now:      time.Now,
		sleep:    humanoid.Sleep,
	}, nil
}

// Run performs at most Submit().Count attempts and returns their record.
// Cancelling ctx stops the loop between steps; the attempts made so far
// are still returned, with Cancelled set.
func (s *Submitter) Run(ctx context.Context) *report.Run {
	sc := s.cfg.Submit()
	run := &report.Run{
		ID:        uuid.NewString(),
		Survey:    s.survey.Name,
		Mode:      s.cfg.Form().Mode,
		Requested: sc.Count,
		Randomize: sc.Randomize,
		StartedAt: s.now(),
	}
	logger := observability.ForRun(s.logger, run.ID)
	logger.Info("Starting submission run.",
		zap.Int("count", sc.Count),
		zap.Bool("randomize", sc.Randomize),
		zap.String("mode", run.Mode),
		zap.String("survey", run.Survey),
	)

	recorder := s.recorder
	if recorder != nil {
		if err := recorder.StartRun(ctx, run); err != nil {
			logger.Warn("Run history disabled for this run.", zap.Error(err))
			recorder = nil
		}
	}

	for i := 1; i <= sc.Count; i++ {
		if ctx.Err() != nil {
			break
		}

		logger.Info(fmt.Sprintf("Processing submission %d/%d", i, sc.Count))
		a := s.attempt(ctx, observability.ForAttempt(logger, i), i)
		run.Attempts = append(run.Attempts, a)
		s.logAttempt(logger, a, sc.Count)

		if recorder != nil {
			if err := recorder.RecordAttempt(ctx, run.ID, a); err != nil {
				logger.Warn("Could not record attempt.", zap.Int(observability.KeyAttempt, i), zap.Error(err))
			}
		}

		if i < sc.Count && s.pacer != nil {
			if err := s.pacer.Between(ctx); err != nil {
				if ctx.Err() != nil {
					break
				}
				logger.Warn("Pacing failed.", zap.Error(err))
			}
		}
	}
	// A cancel during the last attempt still counts, even though the loop
	// bound was reached.
	run.Cancelled = ctx.Err() != nil

	run.FinishedAt = s.now()
	if recorder != nil {
		// The run row is finished even when ctx was cancelled.
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := recorder.FinishRun(finishCtx, run); err != nil {
			logger.Warn("Could not finish run history.", zap.Error(err))
		}
		cancel()
	}

	t := run.Totals()
	logger.Info(fmt.Sprintf("All submissions completed! Successful: %d/%d", t.Confirmed, sc.Count),
		zap.Int("unconfirmed", t.Unconfirmed),
		zap.Int("aborted", t.Aborted),
		zap.Bool("cancelled", run.Cancelled),
	)
	return run
}

func (s *Submitter) logAttempt(logger *zap.Logger, a report.Attempt, total int) {
	fields := []zap.Field{zap.Int("attempt", a.Number), zap.String("state", string(a.State)), zap.Duration("duration", a.Duration)}
	switch a.State {
	case report.StateConfirmed:
		logger.Info(fmt.Sprintf("Submission %d/%d confirmed successful", a.Number, total), fields...)
	case report.StateUnconfirmed:
		logger.Warn(fmt.Sprintf("Could not confirm if submission %d/%d was successful", a.Number, total), fields...)
	default:
		logger.Error(fmt.Sprintf("Submission %d/%d aborted", a.Number, total), append(fields, zap.String("error", a.Error))...)
	}
}

// TargetURL returns the address an attempt opens for the given answers.
func (s *Submitter) TargetURL(answers form.Answers) (string, error) {
	fc := s.cfg.Form()
	if fc.Mode == config.ModeDirect {
		return fc.FormURL, nil
	}
	return form.BuildURL(fc.BaseURL, s.mapping, s.survey.Fields, answers)
}

// attempt runs one navigation cycle. Every failure ends in a terminal
// state on the returned record instead of an error.
func (s *Submitter) attempt(ctx context.Context, logger *zap.Logger, number int) report.Attempt {
	start := s.now()
	a := report.Attempt{Number: number, StartedAt: start}
	m := newMachine()

	abort := func(err error) report.Attempt {
		_ = m.to(report.StateAborted)
		a.State = m.state
		a.Error = err.Error()
		a.Duration = s.now().Sub(start)
		return a
	}

	fc := s.cfg.Form()
	nc := s.cfg.Navigation()
	randomize := s.cfg.Submit().Randomize

	target, err := s.TargetURL(s.picker.Pick(randomize))
	if err != nil {
		return abort(err)
	}
	a.URL = target

	if err := s.page.Navigate(ctx, target); err != nil {
		return abort(err)
	}
	if err := s.sleep(ctx, nc.PostLoadWait); err != nil {
		return abort(err)
	}
	if fc.ReadySelector != "" {
		readyCtx, cancel := context.WithTimeout(ctx, readyTimeout(nc))
		err := s.page.WaitReady(readyCtx, fc.ReadySelector)
		cancel()
		if err != nil {
			return abort(fmt.Errorf("form did not load: %w", err))
		}
	}

	nav := &navigator{
		page:      s.page,
		nav:       nc,
		form:      fc,
		picker:    s.picker,
		randomize: randomize,
		shots:     s.shots,
		logger:    logger,
		attempt:   number,
	}

	pages := fc.Pages
	if pages < 1 {
		pages = s.survey.PageCount()
	}
	pages = min(pages, config.MaxPages)
	offset := 0
	var missed error

	for page := 1; page <= pages; page++ {
		if err := m.to(pageState(page)); err != nil {
			return abort(err)
		}
		a.Pages = page

		if fc.Mode == config.ModeDirect {
			answered, err := nav.answerPage(ctx, offset)
			if err != nil {
				return abort(err)
			}
			offset += answered
		}

		step, err := nav.leave(ctx, page == pages)
		a.Strategies = nav.used
		a.Screenshots = nav.captured
		if step == advanceMissed {
			missed = err
			break
		}
		if err != nil {
			return abort(fmt.Errorf("page %d: %w", page, err))
		}
		if step == advanceSubmitted {
			break
		}

		// Let the following page render.
		if err := s.sleep(ctx, nc.PostLoadWait); err != nil {
			return abort(err)
		}
	}

	if err := m.to(report.StateSubmitted); err != nil {
		return abort(err)
	}
	if missed != nil {
		a.Error = missed.Error()
	}

	out, err := s.checker.Await(ctx, s.page)
	if err != nil {
		return abort(err)
	}
	if out.Confirmed {
		_ = m.to(report.StateConfirmed)
		a.Confirmation = string(out.Signal) + ":" + out.Marker
	} else {
		_ = m.to(report.StateUnconfirmed)
		if path := s.shots.capture(ctx, s.page, afterSubmitName(number)); path != "" {
			a.Screenshots = append(a.Screenshots, path)
		}
	}
	a.State = m.state
	a.Duration = s.now().Sub(start)
	return a
}

func readyTimeout(nc config.NavigationConfig) time.Duration {
	if nc.NavigationTimeout > 0 {
		return nc.NavigationTimeout
	}
	return 10 * time.Second
}
