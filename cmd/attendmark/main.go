// Command attendmark marks attendance in the SLCM portal by driving a
// browser.
//
// Usage:
//
//	attendmark [flags] <date> <workbook-path> <absentee-ids> <subject-descriptor>
//
// The absentee list is comma-separated. The subject descriptor is a
// delimited record ("::", "|" or "^|" separated) of course-name,
// course-code, semester, section and optional session; course-code,
// semester and section are required.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/slcmtools/attendmark"
	"github.com/slcmtools/attendmark/internal/dateparse"
	"github.com/slcmtools/attendmark/internal/event"
	"github.com/slcmtools/attendmark/internal/report"
)

func main() {
	configPath := flag.String("config", "", "path to attendmark.yaml config file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	headless := flag.Bool("headless", false, "run the browser headless (login must already be saved)")
	auditPath := flag.String("audit", "", "path to the run-audit sqlite database")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *headless, *auditPath, flag.Args()); err != nil {
		logger.Error("attendmark: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath string, headless bool, auditPath string, args []string) error {
	if len(args) < 4 {
		fmt.Fprintln(os.Stderr,
			"usage: attendmark [flags] <date> <workbook-path> <absentee-ids> <subject-descriptor>")
		os.Exit(2)
	}

	date, err := dateparse.Parse(args[0])
	if err != nil {
		return err
	}

	var absentees []string
	for _, id := range strings.Split(args[2], ",") {
		if id = strings.TrimSpace(id); id != "" {
			absentees = append(absentees, id)
		}
	}

	criteria, err := event.ParseCriteria(args[3])
	if err != nil {
		return err
	}

	cfg := attendmark.Default()
	if configPath != "" {
		cfg, err = attendmark.LoadFile(configPath)
		if err != nil {
			return err
		}
	}
	if headless {
		cfg.Browser.Headless = true
	}
	if auditPath != "" {
		cfg.Audit.Path = auditPath
	}

	logger.Info("attendmark: starting run",
		"date", date.Format("2006-01-02"),
		"workbook", args[1],
		"absentees", len(absentees),
		"course", criteria.CourseCode,
		"semester", criteria.Semester,
		"section", criteria.Section,
		"session", criteria.Session)

	runner := attendmark.New(cfg, logger)
	summary, runErr := runner.Run(ctx, attendmark.Request{
		Date:         date,
		WorkbookPath: args[1],
		Absentees:    absentees,
		Criteria:     criteria,
	})

	// Whatever was processed before a failure still gets reported.
	report.Render(os.Stdout, summary)

	return runErr
}
