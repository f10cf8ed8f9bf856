package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State names the phases of one monitoring run.
type State int

// Monitoring loop states.
const (
	StateInitializing State = iota
	StateAwaitingLogin
	StatePolling
	StateNotifying
	StateDone
)

// String returns a log-friendly state name.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAwaitingLogin:
		return "awaiting_login"
	case StatePolling:
		return "polling"
	case StateNotifying:
		return "notifying"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// LoopConfig controls one monitoring run.
type LoopConfig struct {
	Topic               string
	IntervalMin         time.Duration
	IntervalMax         time.Duration
	LoginPoll           time.Duration
	ReminderCount       int
	ReminderSpacing     time.Duration
	SessionRetryBackoff time.Duration
	// LoginHint is included in the login-required notification so a person
	// knows where to complete authentication interactively.
	LoginHint string
}

// Loop drives the Initializing -> AwaitingLogin -> Polling -> Notifying ->
// Done state machine for a single monitoring run. There is no persisted
// checkpoint; a process restart always resumes at Initializing.
type Loop struct {
	cfg      LoopConfig
	sessions SessionFactory
	checker  *Checker
	notifier Notifier
	clock    Clock
	tracker  *Tracker
	logger   *zap.Logger
}

// NewLoop constructs a Loop.
func NewLoop(
	cfg LoopConfig,
	sessions SessionFactory,
	checker *Checker,
	notifier Notifier,
	clock Clock,
	tracker *Tracker,
	logger *zap.Logger,
) *Loop {
	if cfg.LoginPoll <= 0 {
		cfg.LoginPoll = time.Minute
	}
	if cfg.ReminderSpacing <= 0 {
		cfg.ReminderSpacing = time.Minute
	}
	if cfg.SessionRetryBackoff <= 0 {
		cfg.SessionRetryBackoff = 30 * time.Second
	}
	return &Loop{
		cfg:      cfg,
		sessions: sessions,
		checker:  checker,
		notifier: notifier,
		clock:    clock,
		tracker:  tracker,
		logger:   logger,
	}
}

// run holds per-run mutable state so Loop itself stays reusable across
// scheduler cycles.
type run struct {
	loop    *Loop
	logger  *zap.Logger
	session PageSession
	checks  int
}

// Run executes one monitoring run to completion. It returns an error only on
// context cancellation; everything else is self-healing or terminates the
// run cleanly.
func (l *Loop) Run(ctx context.Context) error {
	runID := uuid.NewString()
	r := &run{
		loop:   l,
		logger: l.logger.With(zap.String("run_id", runID)),
	}
	l.tracker.BeginRun(runID)
	defer func() {
		r.closeSession()
		r.setState(StateDone)
	}()

	state := StateInitializing
	var result CheckResult
	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.setState(state)

		var err error
		switch state {
		case StateInitializing:
			state, result, err = r.initialize(ctx)
		case StateAwaitingLogin:
			state, result, err = r.awaitLogin(ctx)
		case StatePolling:
			state, result, err = r.poll(ctx, result)
		case StateNotifying:
			state, err = r.notifyAvailable(ctx)
		}
		if err != nil {
			return err
		}
	}
	r.logger.Info("monitoring run finished", zap.Int("checks", r.checks))
	return nil
}

// initialize acquires a session and performs the first check.
func (r *run) initialize(ctx context.Context) (State, CheckResult, error) {
	if err := r.acquireSession(ctx); err != nil {
		if ctx.Err() != nil {
			return StateDone, CheckResult{}, ctx.Err()
		}
		r.logger.Error("could not create browser session", zap.Error(err))
		r.notify(ctx, "EDP Monitor Error", "Falha ao criar browser")
		return StateDone, CheckResult{}, nil
	}

	result, err := r.check(ctx)
	if err != nil {
		return StateDone, CheckResult{}, err
	}
	return r.evaluate(ctx, result), result, nil
}

// awaitLogin polls until the classifier returns any non-login state. Some
// external actor completes authentication on the shared profile meanwhile.
func (r *run) awaitLogin(ctx context.Context) (State, CheckResult, error) {
	for {
		if err := r.loop.clock.Sleep(ctx, r.loop.cfg.LoginPoll); err != nil {
			return StateDone, CheckResult{}, err
		}
		r.logger.Info("waiting for login")

		result, err := r.check(ctx)
		if err != nil {
			return StateDone, CheckResult{}, err
		}
		if result.Reason == ReasonLoginRequired {
			continue
		}

		r.logger.Info("login detected")
		r.notify(ctx, "EDP Monitor", "Login detetado, monitorizacao retomada")
		if result.Availability == AvailabilityAvailable {
			return StateNotifying, result, nil
		}
		return StatePolling, result, nil
	}
}

// poll sleeps a random interval and runs the next check.
func (r *run) poll(ctx context.Context, prev CheckResult) (State, CheckResult, error) {
	interval := r.loop.sampleInterval()
	r.logger.Info("next check scheduled",
		zap.Int("check", r.checks),
		zap.Duration("interval", interval),
		zap.String("last_reason", string(prev.Reason)),
	)
	if err := r.loop.clock.Sleep(ctx, interval); err != nil {
		return StateDone, CheckResult{}, err
	}

	result, err := r.check(ctx)
	if err != nil {
		return StateDone, CheckResult{}, err
	}
	return r.evaluate(ctx, result), result, nil
}

// evaluate maps a check result onto the next state. Login entry sends the
// hint notification once per entry.
func (r *run) evaluate(ctx context.Context, result CheckResult) State {
	switch {
	case result.Availability == AvailabilityAvailable:
		r.logger.Info("voucher available", zap.String("reason", string(result.Reason)))
		return StateNotifying
	case result.Reason == ReasonLoginRequired:
		r.logger.Warn("login required")
		r.notify(ctx, "EDP Monitor", r.loop.cfg.LoginHint)
		return StateAwaitingLogin
	case result.Availability == AvailabilitySoldOut:
		r.logger.Info("voucher sold out")
		return StatePolling
	default:
		r.logger.Info("voucher state unknown",
			zap.String("reason", string(result.Reason)),
			zap.String("snippet", result.Snippet),
		)
		return StatePolling
	}
}

// notifyAvailable sends the primary availability notification followed by a
// bounded burst of reminders, then ends the run.
func (r *run) notifyAvailable(ctx context.Context) (State, error) {
	r.notify(ctx, "VOUCHER DISPONIVEL!", "Pingo Doce 10 EUR - VAI JA!")
	for i := 1; i <= r.loop.cfg.ReminderCount; i++ {
		if err := r.loop.clock.Sleep(ctx, r.loop.cfg.ReminderSpacing); err != nil {
			return StateDone, err
		}
		r.notify(ctx, "VOUCHER DISPONIVEL!",
			fmt.Sprintf("Pingo Doce 10 EUR - VAI JA! (%d/%d)", i, r.loop.cfg.ReminderCount))
	}
	return StateDone, nil
}

// check runs one check cycle, recreating the session on a session-fatal
// fetch error. Transient fetch failure never terminates the run; the result
// degrades to Unknown and the loop keeps polling.
func (r *run) check(ctx context.Context) (CheckResult, error) {
	// A failed recreation on the previous cycle leaves the run without a
	// session; restore it before checking.
	if r.session == nil {
		ok, err := r.restoreSession(ctx)
		if err != nil {
			return CheckResult{}, err
		}
		if !ok {
			return r.record(CheckResult{Availability: AvailabilityUnknown, Reason: ReasonSessionRecreated}), nil
		}
	}

	r.checks++
	result, err := r.loop.checker.Run(ctx, r.session)
	if err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			return CheckResult{}, err
		}

		r.logger.Warn("session unusable, recreating", zap.Error(err))
		observeSessionRestart()
		r.closeSession()
		if _, rerr := r.restoreSession(ctx); rerr != nil {
			return CheckResult{}, rerr
		}
		result = CheckResult{Availability: AvailabilityUnknown, Reason: ReasonSessionRecreated}
	}

	return r.record(result), nil
}

// restoreSession attempts to bring a session back. On failure it notifies,
// backs off, and returns ok=false so the loop degrades the cycle to an
// Unknown result and keeps polling instead of terminating.
func (r *run) restoreSession(ctx context.Context) (bool, error) {
	err := r.recreateSession(ctx)
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	r.logger.Error("session recreation failed", zap.Error(err))
	r.notify(ctx, "EDP Monitor Error", "Falha ao recriar browser")
	if serr := r.loop.clock.Sleep(ctx, time.Minute); serr != nil {
		return false, serr
	}
	return false, nil
}

// record observes and publishes the cycle outcome.
func (r *run) record(result CheckResult) CheckResult {
	observeCheck(result.Reason)
	r.loop.tracker.RecordResult(r.loop.clock.Now(), result)
	return result
}

// acquireSession creates the session, retrying once after a fixed backoff.
func (r *run) acquireSession(ctx context.Context) error {
	session, err := r.loop.sessions.NewSession(ctx)
	if err == nil {
		r.session = session
		return nil
	}
	r.logger.Warn("session creation failed, retrying",
		zap.Duration("backoff", r.loop.cfg.SessionRetryBackoff),
		zap.Error(err),
	)
	if serr := r.loop.clock.Sleep(ctx, r.loop.cfg.SessionRetryBackoff); serr != nil {
		return serr
	}
	session, err = r.loop.sessions.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("create session after retry: %w", err)
	}
	r.session = session
	return nil
}

// recreateSession replaces a dead session. The run stays alive even when
// recreation fails; the caller backs off and the next check retries.
func (r *run) recreateSession(ctx context.Context) error {
	session, err := r.loop.sessions.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("recreate session: %w", err)
	}
	r.session = session
	return nil
}

func (r *run) closeSession() {
	if r.session == nil {
		return
	}
	if err := r.session.Close(); err != nil {
		r.logger.Warn("session close failed", zap.Error(err))
	}
	r.session = nil
}

func (r *run) setState(s State) {
	r.logger.Info("state transition", zap.Stringer("state", s))
	r.loop.tracker.SetState(s)
	observeState(s)
}

// notify sends a push message. Delivery failure is logged and never blocks
// or aborts the run.
func (r *run) notify(ctx context.Context, title, message string) {
	err := r.loop.notifier.Send(ctx, r.loop.cfg.Topic, title, message)
	observeNotification(err)
	if err != nil {
		r.logger.Warn("notification delivery failed",
			zap.String("title", title),
			zap.Error(err),
		)
		return
	}
	r.logger.Info("notification sent", zap.String("title", title))
}

// sampleInterval draws a uniform duration in [IntervalMin, IntervalMax].
func (l *Loop) sampleInterval() time.Duration {
	if l.cfg.IntervalMax <= l.cfg.IntervalMin {
		return l.cfg.IntervalMin
	}
	span := l.cfg.IntervalMax - l.cfg.IntervalMin
	return l.cfg.IntervalMin + time.Duration(rand.Int63n(int64(span)+1))
}
