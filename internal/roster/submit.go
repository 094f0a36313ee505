package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/slcmtools/attendmark/internal/dom"
)

// ErrSubmission wraps any failure between clicking Submit Attendance and
// confirming the modal. Fatal for the run, but the caller still tears the
// session down gracefully.
var ErrSubmission = errors.New("roster: submission failed")

const modalSelector = "div.slds-modal, div.modal-container, div.uiModal"

// Submitter drives the submit-and-confirm flow at the end of a run.
type Submitter struct {
	Port dom.Port
	Log  *slog.Logger

	// ModalTimeout bounds the wait for the confirmation modal. Defaults
	// to 20s.
	ModalTimeout time.Duration
	// PollInterval paces the modal wait. Defaults to 250ms.
	PollInterval time.Duration
}

func (s *Submitter) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// Submit clicks the Submit Attendance button, waits for the confirmation
// modal, and confirms the submission.
func (s *Submitter) Submit(ctx context.Context) error {
	btn := s.buttonByText(nil, func(txt string) bool {
		return strings.Contains(txt, "submit attendance")
	})
	if btn == nil {
		return fmt.Errorf("%w: submit button not found", ErrSubmission)
	}
	_ = s.Port.ScrollIntoView(btn)
	if err := s.Port.Click(btn); err != nil {
		return fmt.Errorf("%w: click submit: %v", ErrSubmission, err)
	}
	s.log().Info("roster: clicked submit attendance")

	modal := s.waitModal(ctx)
	if modal == nil {
		return fmt.Errorf("%w: confirmation modal did not appear", ErrSubmission)
	}

	confirm := s.buttonByText(modal, func(txt string) bool {
		return txt == "confirm submission" || txt == "confirm" ||
			strings.Contains(txt, "confirm submission")
	})
	if confirm == nil {
		// Brand-styled confirm button without the exact label.
		confirm = s.brandConfirm(modal)
	}
	if confirm == nil {
		return fmt.Errorf("%w: confirm button not found in modal", ErrSubmission)
	}
	if err := s.Port.Click(confirm); err != nil {
		return fmt.Errorf("%w: click confirm: %v", ErrSubmission, err)
	}
	s.log().Info("roster: confirmed submission")
	return nil
}

func (s *Submitter) waitModal(ctx context.Context) dom.Node {
	timeout := s.ModalTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	interval := s.PollInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	for {
		if modal, _ := dom.First(s.Port, nil, modalSelector); modal != nil {
			return modal
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return nil
		}
		time.Sleep(interval)
	}
}

func (s *Submitter) buttonByText(scope dom.Node, match func(string) bool) dom.Node {
	buttons, err := s.Port.Query(scope, "button")
	if err != nil {
		return nil
	}
	for _, b := range buttons {
		txt, err := s.Port.Text(b)
		if err != nil {
			continue
		}
		if match(strings.ToLower(strings.TrimSpace(txt))) {
			return b
		}
	}
	return nil
}

func (s *Submitter) brandConfirm(modal dom.Node) dom.Node {
	buttons, err := s.Port.Query(modal, "button.slds-button_brand")
	if err != nil {
		return nil
	}
	for _, b := range buttons {
		txt, _ := s.Port.Text(b)
		if strings.Contains(strings.ToLower(txt), "confirm") {
			return b
		}
	}
	return nil
}

// OpenAttendanceTab switches the opened event to its Attendance tab: the
// data-label anchor when present, otherwise the titled tab span's nearest
// clickable ancestor.
func OpenAttendanceTab(port dom.Port, log *slog.Logger) bool {
	if log == nil {
		log = slog.Default()
	}
	if tab, _ := dom.First(port, nil, "a[data-label='Attendance']"); tab != nil {
		_ = port.ScrollIntoView(tab)
		if port.Click(tab) == nil {
			log.Info("roster: opened attendance tab")
			return true
		}
	}

	spans, err := port.Query(nil, "span.title")
	if err != nil {
		return false
	}
	for _, span := range spans {
		txt, _ := port.Text(span)
		if strings.TrimSpace(txt) != "Attendance" {
			continue
		}
		target := span
		if anc, _ := port.Closest(span, "a, button, [role='tab']"); anc != nil {
			target = anc
		}
		_ = port.ScrollIntoView(target)
		if port.Click(target) == nil {
			log.Info("roster: opened attendance tab via title span")
			return true
		}
	}
	return false
}
