// Package attendmark orchestrates one attendance run end to end: session
// bootstrap, login wait, calendar open, date resolution, event-tile search,
// row processing, and submission. The resolution engine itself lives in the
// internal packages; this package only sequences it.
package attendmark

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/slcmtools/attendmark/internal/audit"
	"github.com/slcmtools/attendmark/internal/browser"
	"github.com/slcmtools/attendmark/internal/calendar"
	"github.com/slcmtools/attendmark/internal/dom"
	"github.com/slcmtools/attendmark/internal/event"
	"github.com/slcmtools/attendmark/internal/roster"
)

// ErrPanelNotReady is returned when the day panel never becomes ready even
// though a date click verified.
var ErrPanelNotReady = errors.New("attendmark: day panel not ready after date selection")

// Request describes one attendance run.
type Request struct {
	Date time.Time

	// WorkbookPath is carried through for reporting only; the engine
	// never reads the workbook.
	WorkbookPath string

	Absentees []string
	Criteria  event.Criteria
}

// Runner drives a run. Create with New.
type Runner struct {
	cfg    *Config
	logger *slog.Logger

	// Stdin/Stdout are swapped in tests; prompts during login go here.
	Stdin  io.Reader
	Stdout io.Writer
}

// New creates a Runner.
func New(cfg *Config, logger *slog.Logger) *Runner {
	if cfg == nil {
		cfg = Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger, Stdin: os.Stdin, Stdout: os.Stdout}
}

// Run executes the full flow. The browser session is always closed, even on
// a fatal resolution or submission error. The returned Summary holds
// whatever rows were processed before any error.
func (r *Runner) Run(ctx context.Context, req Request) (roster.Summary, error) {
	var summary roster.Summary

	session, err := browser.Start(ctx, browser.Config{
		ProfileDir: r.cfg.Browser.ProfileDir,
		Headful:    !r.cfg.Browser.Headless,
		Logger:     r.logger,
	})
	if err != nil {
		return summary, err
	}
	defer session.Close()

	if err := r.login(ctx, session); err != nil {
		r.recordRun(req, summary, "failed")
		return summary, err
	}

	port := dom.NewPagePort(ctx, session.Page())

	if err := r.openCalendar(ctx, session, port); err != nil {
		r.recordRun(req, summary, "failed")
		return summary, err
	}

	panel, err := r.resolveDate(ctx, port, req.Date)
	if err != nil {
		r.recordRun(req, summary, "failed")
		return summary, err
	}

	if err := r.openEvent(ctx, port, panel, req); err != nil {
		r.recordRun(req, summary, "failed")
		return summary, err
	}

	processor := &roster.Processor{
		Port:          port,
		Log:           r.logger,
		PerItemBudget: r.cfg.Timeouts.PerStudent,
		ScrollTries:   r.cfg.Scroll.TableTries,
		ScrollPause:   r.cfg.Scroll.TablePause,
	}
	summary = processor.Process(ctx, req.Absentees)

	submitter := &roster.Submitter{
		Port:         port,
		Log:          r.logger,
		ModalTimeout: r.cfg.Timeouts.Modal,
	}
	if err := submitter.Submit(ctx); err != nil {
		r.recordRun(req, summary, "failed")
		return summary, err
	}

	r.recordRun(req, summary, "submitted")
	return summary, nil
}

// login navigates home and, when an SSO/login page intervenes, waits for
// the operator to complete it in the visible browser.
func (r *Runner) login(ctx context.Context, session *browser.Session) error {
	if _, err := session.OpenPage(ctx, r.cfg.Portal.HomeURL); err != nil {
		// One bounce through the base URL shakes loose a stale redirect.
		if err := session.Navigate(ctx, r.cfg.Portal.BaseURL); err != nil {
			return err
		}
		if err := session.Navigate(ctx, r.cfg.Portal.HomeURL); err != nil {
			return err
		}
	}

	if r.onLoginPage(session.CurrentURL()) {
		r.logger.Info("attendmark: login page detected, complete SSO in the browser")
		r.promptEnter("Press Enter after the portal home is visible... ")
		if err := session.Navigate(ctx, r.cfg.Portal.HomeURL); err != nil {
			return err
		}
	}

	if !session.WaitVisible(ctx, "a[title='Calendar']", r.cfg.Timeouts.Login) {
		return fmt.Errorf("attendmark: portal home did not load within %s", r.cfg.Timeouts.Login)
	}
	r.logger.Info("attendmark: logged in")
	return nil
}

func (r *Runner) onLoginPage(url string) bool {
	u := strings.ToLower(url)
	return strings.Contains(u, "login.microsoftonline.com") ||
		strings.Contains(u, "saml") ||
		(strings.Contains(u, "manipal.edu") && strings.Contains(u, "/login"))
}

func (r *Runner) openCalendar(ctx context.Context, session *browser.Session, port dom.Port) error {
	tab, err := dom.First(port, nil, "a[title='Calendar']")
	if err != nil || tab == nil {
		return fmt.Errorf("attendmark: calendar tab not found")
	}
	_ = port.ScrollIntoView(tab)
	if err := port.Click(tab); err != nil {
		return fmt.Errorf("attendmark: open calendar: %w", err)
	}
	if !session.WaitVisible(ctx, "#calendarSidebar", 12*time.Second) {
		return fmt.Errorf("attendmark: mini calendar did not appear")
	}
	r.logger.Info("attendmark: calendar open")
	return nil
}

// resolveDate runs the click-and-verify chain and waits for the day panel.
func (r *Runner) resolveDate(ctx context.Context, port dom.Port, date time.Time) (dom.Node, error) {
	resolver := &calendar.Resolver{Port: port, Log: r.logger}
	navigator := &calendar.Navigator{Port: port, Log: r.logger, StepPause: 100 * time.Millisecond}
	verifier := &calendar.Verifier{Port: port, Log: r.logger}
	controller := &calendar.Controller{
		Port:           port,
		Resolver:       resolver,
		Navigator:      navigator,
		Verifier:       verifier,
		Log:            r.logger,
		AttemptPause:   r.cfg.Pauses.Attempt,
		PostClickPause: 120 * time.Millisecond,
	}

	if err := controller.SelectDate(ctx, date); err != nil {
		return nil, err
	}
	time.Sleep(r.cfg.Pauses.AfterDateClick)

	panel, ok := verifier.WaitPanel(ctx, date, r.cfg.Timeouts.PanelReady)
	if !ok {
		return nil, ErrPanelNotReady
	}
	return panel, nil
}

// openEvent waits for the event list to settle, finds the session tile,
// opens it, and switches to the attendance tab.
func (r *Runner) openEvent(ctx context.Context, port dom.Port, panel dom.Node, req Request) error {
	settle := &event.SettleDetector{Port: port, Log: r.logger}
	if !settle.WaitSettled(ctx, panel, r.cfg.Timeouts.EventSettle) {
		r.logger.Warn("attendmark: event list still changing, searching anyway")
	}

	locator := &event.Locator{
		Port:         port,
		Log:          r.logger,
		StepFraction: r.cfg.Scroll.StepFraction,
		ScrollPause:  r.cfg.Scroll.Pause,
	}
	tile, err := locator.Find(ctx, panel, req.Criteria, req.Date, r.cfg.Timeouts.EventSearch)
	if err != nil {
		return err
	}

	_ = port.ScrollIntoView(tile)
	if err := port.Click(tile); err != nil {
		return fmt.Errorf("attendmark: open event tile: %w", err)
	}
	r.logger.Info("attendmark: opened event tile")

	r.clickMoreDetails(ctx, port)

	if !roster.OpenAttendanceTab(port, r.logger) {
		r.logger.Warn("attendmark: could not switch to attendance tab automatically")
		r.promptEnter("Click the Attendance tab, then press Enter... ")
	}
	return nil
}

// clickMoreDetails follows the optional More Details link when the event
// opens as a compact preview. Absence is normal and not an error.
func (r *Runner) clickMoreDetails(ctx context.Context, port dom.Port) {
	deadline := time.Now().Add(r.cfg.Timeouts.ShortFind)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		links, err := port.Query(nil, "a")
		if err == nil {
			for _, link := range links {
				txt, _ := port.Text(link)
				if strings.TrimSpace(txt) == "More Details" {
					_ = port.ScrollIntoView(link)
					if port.Click(link) == nil {
						r.logger.Info("attendmark: clicked more details")
					}
					return
				}
			}
		}
		time.Sleep(400 * time.Millisecond)
	}
}

func (r *Runner) promptEnter(msg string) {
	fmt.Fprint(r.Stdout, msg)
	reader := bufio.NewReader(r.Stdin)
	_, _ = reader.ReadString('\n')
}

// recordRun writes the run to the audit database when configured. Audit
// failures are logged, never fatal.
func (r *Runner) recordRun(req Request, summary roster.Summary, status string) {
	if r.cfg.Audit.Path == "" {
		return
	}
	store, err := audit.Open(r.cfg.Audit.Path)
	if err != nil {
		r.logger.Warn("attendmark: audit store unavailable", "error", err)
		return
	}
	defer store.Close()
	store.RecordAsync(audit.Entry{
		RunAt:         time.Now(),
		TargetDate:    req.Date.Format("2006-01-02"),
		CourseCode:    req.Criteria.CourseCode,
		Section:       req.Criteria.Section,
		Unticked:      len(summary.Unticked()),
		AlreadyAbsent: len(summary.AlreadyAbsent()),
		NotFound:      len(summary.NotFound()),
		Status:        status,
	})
}
