// Package browser manages the Chrome session the automation drives: a
// persistent user profile so the portal login survives between runs,
// launch with a temp-profile fallback when the profile is locked, stealth
// page creation, and hard navigation with retries.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// Config configures the session.
type Config struct {
	// ProfileDir is the Chrome user-data directory. Empty picks the
	// default persistent profile with a temp fallback.
	ProfileDir string

	// Headful shows the browser window. The login flow needs a human, so
	// this is normally on.
	Headful bool

	Logger *slog.Logger
}

// Session is one driven Chrome instance with a single active page.
type Session struct {
	cfg         Config
	browser     *rod.Browser
	lnch        *launcher.Launcher
	page        *rod.Page
	tempProfile string
}

// PickProfileDir returns the persistent automation profile directory,
// falling back to a per-user temp directory when the home profile cannot
// be created.
func PickProfileDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".slcm_automation_profile")
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return dir
		}
	}
	dir := filepath.Join(os.TempDir(), fmt.Sprintf("slcm_automation_profile_%d", os.Getuid()))
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// clearSingletonLocks removes stale Chrome Singleton* lock files, which
// otherwise refuse the profile after an unclean shutdown.
func clearSingletonLocks(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "Singleton") {
			_ = os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}

// Start launches Chrome on the configured profile and connects. A locked
// profile falls back to a fresh temp profile (losing the saved login but
// keeping the run alive).
func Start(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ProfileDir == "" {
		cfg.ProfileDir = PickProfileDir()
	}
	clearSingletonLocks(cfg.ProfileDir)

	s := &Session{cfg: cfg}
	if err := s.launch(ctx, cfg.ProfileDir); err != nil {
		cfg.Logger.Warn("browser: profile launch failed, trying temp profile", "error", err)
		temp, mkErr := os.MkdirTemp("", "slcm_profile_")
		if mkErr != nil {
			return nil, fmt.Errorf("browser: temp profile: %w", mkErr)
		}
		s.tempProfile = temp
		if err := s.launch(ctx, temp); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Session) launch(ctx context.Context, profileDir string) error {
	log := s.cfg.Logger

	l := launcher.New().
		UserDataDir(profileDir).
		Headless(!s.cfg.Headful).
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-blink-features", "AutomationControlled")

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("browser: launch: %w", err)
	}
	s.lnch = l

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	s.browser = b

	log.Info("browser: launched", "profile", profileDir, "headful", s.cfg.Headful)
	return nil
}

// OpenPage creates the working page with stealth applied and navigates to
// the URL.
func (s *Session) OpenPage(ctx context.Context, url string) (*rod.Page, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	s.page = page
	if err := s.Navigate(ctx, url); err != nil {
		return nil, err
	}
	return page, nil
}

// Navigate drives the current page to the URL, retrying a few times. SSO
// redirect chains occasionally abort the first load; a retry lands.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.page == nil {
		return fmt.Errorf("browser: no open page")
	}
	var lastErr error
	for attempt := 0; attempt < 4; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := s.page.Context(navCtx).Navigate(url)
		if err == nil {
			if err := s.page.Context(navCtx).WaitLoad(); err != nil {
				s.cfg.Logger.Warn("browser: wait load timeout", "url", url, "error", err)
			}
			cancel()
			if strings.HasPrefix(s.CurrentURL(), "http") {
				return nil
			}
			lastErr = fmt.Errorf("browser: landed on %q", s.CurrentURL())
		} else {
			cancel()
			lastErr = err
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("browser: navigate %s: %w", url, lastErr)
}

// CurrentURL reports the page's URL, or "" when unavailable.
func (s *Session) CurrentURL() string {
	if s.page == nil {
		return ""
	}
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// WaitVisible polls for any element matching the selector, bounded by
// timeout.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		els, err := s.page.Elements(selector)
		if err == nil && len(els) > 0 {
			return true
		}
		time.Sleep(250 * time.Millisecond)
	}
	return false
}

// Page returns the working page.
func (s *Session) Page() *rod.Page { return s.page }

// Close shuts the browser down and removes any temp profile. Always safe
// to call; the session is closed even after a fatal run error.
func (s *Session) Close() {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
	}
	if s.tempProfile != "" {
		_ = os.RemoveAll(s.tempProfile)
	}
}
