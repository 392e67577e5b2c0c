package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/glue-runner/internal/config"
	"github.com/kingrea/glue-runner/internal/dashboard"
	"github.com/kingrea/glue-runner/internal/dispatch"
	"github.com/kingrea/glue-runner/internal/eventlog"
	"github.com/kingrea/glue-runner/internal/execution"
	"github.com/kingrea/glue-runner/internal/execution/glue"
	"github.com/kingrea/glue-runner/internal/execution/nop"
	"github.com/kingrea/glue-runner/internal/logging"
	"github.com/kingrea/glue-runner/internal/monitor"
	"github.com/kingrea/glue-runner/internal/statusserver"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	configPath      string
	dryRun          bool
	plan            bool
	tui             bool
	cancelOnFailure bool
	maxParallel     int
	poll            time.Duration
	logFile         string
	diagLog         string
	sets            assignmentFlag

	// client replaces the Glue or dry-run client when set.
	client execution.Client
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitOK)
		}
		die("%v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, opts, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("glue-runner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", config.DefaultPath, "path to the YAML run configuration")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "resolve and schedule jobs without submitting them")
	fs.BoolVar(&opts.plan, "plan", false, "print the tier plan and exit")
	fs.BoolVar(&opts.tui, "tui", false, "show the live dashboard")
	fs.BoolVar(&opts.cancelOnFailure, "cancel-on-failure", false, "cancel running siblings when a job in the tier fails")
	fs.IntVar(&opts.maxParallel, "max-parallel", -1, "cap on concurrent jobs per tier (0 = unbounded, -1 = use config)")
	fs.DurationVar(&opts.poll, "poll", 0, "poll interval while waiting for runs (overrides config)")
	fs.StringVar(&opts.logFile, "log", "", "append lifecycle events to this file (overrides config)")
	fs.StringVar(&opts.diagLog, "diag-log", "", "write runner diagnostics to this file instead of stderr")
	fs.Var(&opts.sets, "set", "run default override (key=value, repeatable)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.poll < 0 {
		return options{}, fmt.Errorf("--poll must not be negative")
	}
	return opts, nil
}

// run executes one dispatch and returns the process exit code.
func run(ctx context.Context, opts options, stdout, stderr io.Writer) int {
	diag := logging.New(stderr)
	if opts.diagLog != "" {
		fileLog, err := logging.Open(opts.diagLog)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
		defer fileLog.Close()
		diag = fileLog
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		diag.Printf("load config: %v", err)
		return exitUsage
	}
	for _, assignment := range opts.sets {
		if err := cfg.ApplySet(assignment); err != nil {
			diag.Printf("%v", err)
			return exitUsage
		}
	}
	entries, defaults := cfg.Entries(), cfg.Defaults()

	if opts.plan {
		fmt.Fprintln(stdout, dashboard.RenderPlan(dispatch.GroupTiers(entries, defaults), defaults))
		return exitOK
	}

	client := opts.client
	if client == nil {
		client, err = newClient(ctx, cfg, opts.dryRun)
		if err != nil {
			diag.Printf("%v", err)
			return exitFailure
		}
	}

	snapshot := eventlog.NewSnapshot()
	sinks := eventlog.Fanout{snapshot}
	if !opts.tui {
		sinks = append(sinks, eventlog.NewConsole(stdout))
	}
	logPath := cfg.File.Log.File
	if opts.logFile != "" {
		logPath = opts.logFile
	}
	var book *eventlog.Logbook
	if logPath != "" {
		book, err = eventlog.NewLogbook(logPath)
		if err != nil {
			diag.Printf("%v", err)
			return exitUsage
		}
		sinks = append(sinks, book)
		diag.Printf("logbook: %s", book.Path())
	}

	settings := statusserver.SettingsFromConfig(cfg)
	if settings.Enabled {
		serverOpts := []statusserver.Option{statusserver.WithLogger(diag)}
		if book != nil {
			serverOpts = append(serverOpts, statusserver.WithLogSource(book))
		}
		srv := statusserver.NewServer(settings, snapshot, serverOpts...)
		if err := srv.Start(ctx); err != nil {
			diag.Printf("%v", err)
			return exitFailure
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	policy := cfg.MonitorPolicy()
	if opts.poll > 0 {
		policy.Interval = opts.poll
	}
	maxParallel := cfg.File.Runner.MaxParallel
	if opts.maxParallel >= 0 {
		maxParallel = opts.maxParallel
	}
	work := func(ctx context.Context, extra eventlog.Sink) (dispatch.Summary, error) {
		d, err := dispatch.New(client,
			dispatch.WithSink(append(sinks, extra)),
			dispatch.WithMaxParallel(maxParallel),
			dispatch.WithCancelOnFailure(cfg.File.Runner.CancelOnFailure || opts.cancelOnFailure),
			dispatch.WithMonitorOptions(monitor.WithPolicy(policy)),
		)
		if err != nil {
			return dispatch.Summary{}, err
		}
		return d.Dispatch(ctx, entries, defaults)
	}

	var summary dispatch.Summary
	if opts.tui {
		summary, err = dashboard.Run(ctx, "glue runner", work, tea.WithAltScreen())
	} else {
		summary, err = work(ctx, nil)
	}
	fmt.Fprintln(stdout, dashboard.RenderSummary(summary))
	if dry, ok := client.(*nop.Client); ok {
		fmt.Fprintf(stdout, "Dry run: %d jobs resolved, nothing submitted.\n", dry.Submitted())
	}

	switch {
	case errors.Is(err, dispatch.ErrDuplicateJob), errors.Is(err, dispatch.ErrEmptyJobName):
		diag.Printf("%v", err)
		return exitUsage
	case err != nil:
		diag.Printf("%v", err)
		return exitFailure
	case !summary.OK:
		return exitFailure
	}
	return exitOK
}

func newClient(ctx context.Context, cfg *config.Config, dryRun bool) (execution.Client, error) {
	if dryRun {
		return nop.New(), nil
	}
	client, err := glue.NewFromCredentials(ctx, cfg.Credentials())
	if err != nil {
		return nil, fmt.Errorf("glue client: %w", err)
	}
	return client, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(exitUsage)
}

// assignmentFlag collects repeated key=value flags in command-line order.
type assignmentFlag []string

func (a *assignmentFlag) String() string {
	if a == nil {
		return ""
	}
	return strings.Join(*a, ", ")
}

func (a *assignmentFlag) Set(value string) error {
	key, _, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("override key is empty in %q", value)
	}
	*a = append(*a, value)
	return nil
}
