package monitor

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CheckConfig controls one check cycle.
type CheckConfig struct {
	// PacksURL is the benefit listing page.
	PacksURL string
	// TargetText locates the voucher link by visible text, case-insensitively.
	TargetText string
	// ElementWait bounds the primary wait for the target element.
	ElementWait time.Duration
	// SettleDelay absorbs client-side navigation latency after the click.
	SettleDelay time.Duration
}

// Checker orchestrates one fetch+classify attempt against a live session.
type Checker struct {
	cfg        CheckConfig
	classifier *Classifier
	clock      Clock
	logger     *zap.Logger
}

// NewChecker constructs a Checker.
func NewChecker(cfg CheckConfig, classifier *Classifier, clock Clock, logger *zap.Logger) *Checker {
	if cfg.ElementWait <= 0 {
		cfg.ElementWait = 20 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 5 * time.Second
	}
	return &Checker{
		cfg:        cfg,
		classifier: classifier,
		clock:      clock,
		logger:     logger,
	}
}

// Run performs one check cycle. Interaction failures are absorbed into an
// Unknown result; a *FetchError or context cancellation propagates so the
// caller can recreate the session or stop. Run never fabricates a result on
// a session-fatal error.
func (c *Checker) Run(ctx context.Context, session PageSession) (CheckResult, error) {
	c.logger.Debug("navigating to packs page", zap.String("url", c.cfg.PacksURL))
	if err := session.Navigate(ctx, c.cfg.PacksURL); err != nil {
		return c.soften("navigate", err)
	}

	target, err := c.locateTarget(ctx, session)
	if err != nil {
		if errors.Is(err, ErrElementNotFound) {
			text, terr := session.PageText(ctx)
			if terr != nil {
				return c.soften("page text", terr)
			}
			return c.classifier.ClassifyMissingTarget(text), nil
		}
		return c.soften("locate target", err)
	}

	c.logger.Debug("clicking target", zap.String("text", target.Text()))
	if err := session.Click(ctx, target); err != nil {
		return c.soften("click", err)
	}
	if err := c.clock.Sleep(ctx, c.cfg.SettleDelay); err != nil {
		return CheckResult{}, err
	}

	text, err := session.PageText(ctx)
	if err != nil {
		return c.soften("page text", err)
	}
	currentURL, err := session.CurrentURL(ctx)
	if err != nil {
		return c.soften("current url", err)
	}
	c.logger.Debug("page fetched", zap.String("url", currentURL), zap.Int("text_len", len(text)))

	return c.classifier.Classify(text, currentURL), nil
}

// locateTarget tries the bounded wait first, then falls back to scanning all
// interactive elements for a case-insensitive substring match.
func (c *Checker) locateTarget(ctx context.Context, session PageSession) (ElementHandle, error) {
	target, err := session.FindByText(ctx, c.cfg.TargetText, c.cfg.ElementWait)
	if err == nil {
		return target, nil
	}
	if !errors.Is(err, ErrElementNotFound) {
		return nil, err
	}

	c.logger.Debug("primary wait missed, scanning interactive elements")
	elements, err := session.ListInteractiveElements(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(c.cfg.TargetText)
	for _, el := range elements {
		if strings.Contains(strings.ToLower(el.Text()), needle) {
			return el, nil
		}
	}
	return nil, ErrElementNotFound
}

// soften converts an interaction error into an Unknown result unless the
// session itself is unusable or the context ended.
func (c *Checker) soften(op string, err error) (CheckResult, error) {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return CheckResult{}, err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CheckResult{}, err
	}
	c.logger.Warn("check interaction failed", zap.String("op", op), zap.Error(err))
	return CheckResult{
		Availability: AvailabilityUnknown,
		Reason:       ReasonCheckError,
		Snippet:      err.Error(),
	}, nil
}
