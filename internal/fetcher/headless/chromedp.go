// Package headless implements the browser session capability via chromedp.
package headless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/voucherwatch/voucherwatch/internal/monitor"
)

// Config controls browser session creation.
type Config struct {
	// ProfileDir is reused across sessions so authentication survives
	// session recreation within a run.
	ProfileDir        string
	UserAgent         string
	NavigationTimeout time.Duration
}

// Factory implements monitor.SessionFactory. Each session launches its own
// browser process against the shared profile directory.
type Factory struct {
	cfg    Config
	logger *zap.Logger
}

// NewFactory validates the configuration and prepares the profile directory.
func NewFactory(cfg Config, logger *zap.Logger) (*Factory, error) {
	if cfg.ProfileDir == "" {
		return nil, fmt.Errorf("profile dir must be set")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if err := os.MkdirAll(cfg.ProfileDir, 0o750); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	return &Factory{cfg: cfg, logger: logger}, nil
}

// NewSession starts a browser and warms it up. The browser runs with a
// visible window: a person completes portal authentication interactively
// over the remote display while the monitor polls.
func (f *Factory) NewSession(_ context.Context) (monitor.PageSession, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-software-rasterizer", true),
		chromedp.UserDataDir(f.cfg.ProfileDir),
		chromedp.WindowSize(1280, 720),
	}
	if f.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	f.logger.Info("browser session created", zap.String("profile_dir", f.cfg.ProfileDir))
	return &Session{
		cfg:           f.cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        f.logger,
	}, nil
}

// Session is one live browser, owned by a single monitoring run.
type Session struct {
	cfg           Config
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *zap.Logger
}

// element implements monitor.ElementHandle. A handle located via XPath keeps
// the node path; a handle from the interactive-element scan keeps its scan
// index instead.
type element struct {
	text  string
	xpath string
	index int
}

// Text returns the element's visible text.
func (e *element) Text() string {
	return e.text
}

// interactiveSelector covers the elements the fallback scan clicks through.
const interactiveSelector = "a, button"

// Navigate loads the URL and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := s.opContext(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	err := chromedp.Run(opCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	return s.wrap("navigate", err)
}

// FindByText waits up to timeout for an element whose text contains the
// substring, case-insensitively. It returns monitor.ErrElementNotFound when
// the wait budget expires without a match.
func (s *Session) FindByText(ctx context.Context, substring string, timeout time.Duration) (monitor.ElementHandle, error) {
	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	sel := textMatchXPath(substring)
	var nodes []*cdp.Node
	err := chromedp.Run(opCtx, chromedp.Nodes(sel, &nodes, chromedp.BySearch))
	if err != nil {
		if s.expired(ctx, err) {
			return nil, monitor.ErrElementNotFound
		}
		return nil, s.wrap("find by text", err)
	}
	if len(nodes) == 0 {
		return nil, monitor.ErrElementNotFound
	}

	xpath := nodes[0].FullXPath()
	var text string
	if err := chromedp.Run(opCtx, chromedp.Text(xpath, &text, chromedp.BySearch)); err != nil {
		if s.expired(ctx, err) {
			return nil, monitor.ErrElementNotFound
		}
		return nil, s.wrap("read element text", err)
	}
	return &element{text: text, xpath: xpath, index: -1}, nil
}

// ListInteractiveElements returns the visible text of every link and button
// on the current page, for the fallback substring scan.
func (s *Session) ListInteractiveElements(ctx context.Context) ([]monitor.ElementHandle, error) {
	opCtx, cancel := s.opContext(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	var texts []string
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(el => el.innerText || "")`,
		interactiveSelector,
	)
	if err := chromedp.Run(opCtx, chromedp.Evaluate(script, &texts)); err != nil {
		return nil, s.wrap("list interactive elements", err)
	}

	handles := make([]monitor.ElementHandle, 0, len(texts))
	for i, text := range texts {
		handles = append(handles, &element{text: text, index: i})
	}
	return handles, nil
}

// Click activates the element.
func (s *Session) Click(ctx context.Context, el monitor.ElementHandle) error {
	e, ok := el.(*element)
	if !ok {
		return fmt.Errorf("unexpected element handle type %T", el)
	}

	opCtx, cancel := s.opContext(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	var err error
	if e.xpath != "" {
		err = chromedp.Run(opCtx, chromedp.Click(e.xpath, chromedp.BySearch))
	} else {
		script := fmt.Sprintf(
			`document.querySelectorAll(%q)[%d].click()`,
			interactiveSelector, e.index,
		)
		err = chromedp.Run(opCtx, chromedp.Evaluate(script, nil))
	}
	return s.wrap("click", err)
}

// PageText returns the rendered text of the document body.
func (s *Session) PageText(ctx context.Context) (string, error) {
	opCtx, cancel := s.opContext(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	var text string
	if err := chromedp.Run(opCtx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", s.wrap("page text", err)
	}
	return text, nil
}

// CurrentURL returns the page location after any client-side navigation.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	opCtx, cancel := s.opContext(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	var url string
	if err := chromedp.Run(opCtx, chromedp.Location(&url)); err != nil {
		return "", s.wrap("current url", err)
	}
	return url, nil
}

// Close tears down the browser and allocator contexts.
func (s *Session) Close() error {
	s.browserCancel()
	s.allocCancel()
	return nil
}

// opContext derives a bounded chromedp context from the browser context and
// forwards cancellation from the caller's context.
func (s *Session) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	stop := forwardCancel(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// expired reports whether the error is the op timeout rather than a caller
// cancellation or a dead browser.
func (s *Session) expired(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) &&
		ctx.Err() == nil &&
		s.browserCtx.Err() == nil
}

// wrap converts errors from a dead browser into *monitor.FetchError so the
// monitoring loop recreates the session.
func (s *Session) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if s.browserCtx.Err() != nil {
		return &monitor.FetchError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

const (
	upperAlpha = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerAlpha = "abcdefghijklmnopqrstuvwxyz"
)

// textMatchXPath builds a case-insensitive text containment expression. The
// portal capitalizes partner names inconsistently, so matching is done on a
// lowercase translation of the node text.
func textMatchXPath(substring string) string {
	needle := strings.ReplaceAll(strings.ToLower(substring), "'", "")
	return fmt.Sprintf(
		"//*[contains(translate(text(), '%s', '%s'), '%s')]",
		upperAlpha, lowerAlpha, needle,
	)
}
