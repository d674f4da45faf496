package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"taskcal/internal/capture"
	"taskcal/internal/config"
	"taskcal/internal/ics"
	appLog "taskcal/internal/log"
	"taskcal/internal/model"
	"taskcal/internal/planner"
	"taskcal/internal/ref"
	"taskcal/internal/report"
	"taskcal/internal/storage"
	"taskcal/internal/tui"
	"taskcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	tui        bool
	exportPath string
	importPath string
	yes        bool
	report     string
	out        string
	icsPath    string
	snapshot   string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	// Log lines would tear the terminal UI; keep errors only.
	if flags.tui {
		appLog.SetLevel(appLog.LevelError)
	}

	appLog.Info("taskcal starting", "version", "0.1.0")
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"backend", conf.Backend,
		"data_path", conf.DataPath,
		"holiday_feeds", len(conf.HolidayFeeds),
		"basic_auth", conf.BasicAuth != nil,
	)

	if err := run(conf, flags); err != nil {
		if errors.Is(err, planner.ErrImportNotConfirmed) {
			appLog.Error("import needs confirmation; rerun with -yes", err, "file", flags.importPath)
		} else {
			appLog.Error("taskcal failed", err)
		}
		os.Exit(1)
	}
	appLog.Info("taskcal exiting")
}

func run(conf *config.Config, flags flagConfig) error {
	kv, err := storage.Open(conf)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer kv.Close()

	app, err := planner.New(kv, planner.Options{
		DueSoonDays:       conf.DueSoonDays,
		HighDensity:       conf.HighDensity,
		DefaultCategories: conf.DefaultCategories,
		Location:          conf.Location(),
	})
	if err != nil {
		return err
	}

	switch {
	case flags.exportPath != "":
		return runExport(app, flags.exportPath)
	case flags.importPath != "":
		return runImport(app, flags.importPath, flags.yes)
	case flags.icsPath != "":
		return runICS(app, conf, flags.icsPath)
	case flags.report != "" && flags.snapshot == "":
		return runReport(app, flags.report, flags.out)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	refs, err := ref.NewEncoder(conf.RefSecret)
	if err != nil {
		return err
	}
	srv := web.NewServer(conf, app, refs)

	if flags.snapshot != "" {
		return runSnapshot(ctx, conf, srv, flags.report, flags.snapshot)
	}

	syncer := startHolidaySync(ctx, conf, app)
	if syncer != nil {
		defer syncer.Stop()
	}

	if flags.tui {
		return tui.Run(app, conf.FirstWeekday())
	}
	return srv.ListenAndServe(ctx)
}

// startHolidaySync runs the holiday feeds once and then on the configured
// cron schedule. It returns nil when no feeds are configured.
func startHolidaySync(ctx context.Context, conf *config.Config, app *planner.App) *ics.Syncer {
	sources := ics.SourcesFromConfig(conf.HolidayFeeds)
	if len(sources) == 0 {
		return nil
	}
	client := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	syncer := ics.NewSyncer(ics.NewFetcher(conf.ICSCacheDir, client), sources, app, conf.Location())
	if err := syncer.Start(ctx, conf.HolidayRefresh); err != nil {
		appLog.Error("holiday sync not started", err, "spec", conf.HolidayRefresh)
		return nil
	}
	return syncer
}

func runExport(app *planner.App, path string) error {
	data, err := app.Export()
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	appLog.Info("backup exported", "path", path, "suggested_name", app.ExportFilename())
	return nil
}

func runImport(app *planner.App, path string, yes bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return app.Import(data, yes)
}

func runICS(app *planner.App, conf *config.Config, path string) error {
	body := ics.Export(app.Definitions(), conf.Location(), time.Now())
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return err
	}
	appLog.Info("calendar exported", "path", path)
	return nil
}

func runReport(app *planner.App, month, out string) error {
	year, m, err := model.ParseMonth(month)
	if err != nil {
		return err
	}
	body, err := report.Render(context.Background(), app.Month(year, m))
	if err != nil {
		return err
	}
	if out == "" {
		out = report.Filename(year, m)
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return err
	}
	appLog.Info("report written", "path", out)
	return nil
}

// runSnapshot serves the report on an ephemeral loopback port and captures
// it through headless Chromium.
func runSnapshot(ctx context.Context, conf *config.Config, srv *web.Server, month, out string) error {
	if month == "" {
		month = time.Now().In(conf.Location()).Format("2006-01")
	}
	if _, _, err := model.ParseMonth(month); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("snapshot server failed", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	opts := capture.Options{
		URL:        fmt.Sprintf("http://%s/report?month=%s", ln.Addr(), month),
		OutputPath: out,
	}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}
	return capture.CaptureReport(ctx, opts)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./taskcal.yaml", "Path to config file (.yaml or .toml)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.tui, "tui", false, "Run the terminal calendar instead of the web server")
	flag.StringVar(&cfg.exportPath, "export", "", "Write a JSON backup to this file (\"-\" for stdout) and exit")
	flag.StringVar(&cfg.importPath, "import", "", "Replace all data with this JSON backup and exit")
	flag.BoolVar(&cfg.yes, "yes", false, "Confirm -import overwriting current data")
	flag.StringVar(&cfg.report, "report", "", "Month (YYYY-MM) for -out report or -snapshot")
	flag.StringVar(&cfg.out, "out", "", "Report output file (default Monthly_Report_<Month>_<Year>.doc)")
	flag.StringVar(&cfg.icsPath, "ics", "", "Write all tasks as an iCalendar file and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Capture the monthly report as PNG or PDF (by extension) and exit")

	flag.Parse()

	return cfg
}
