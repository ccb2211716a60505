package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/junior/internal/daemon"
	"github.com/joescharf/junior/internal/intake"
	"github.com/joescharf/junior/internal/scheduler"
)

var serveDaemon bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook intake server",
	Long: `Start the HTTP server that receives pull request webhooks and
runs reviews. By default it runs in the foreground on port 8484.
Use --daemon to detach into the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveDaemon {
			return serveStartRun()
		}
		return serveRun(cmd.Context())
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show background server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.Flags().BoolVarP(&serveDaemon, "daemon", "d", false, "Run in the background")
	serveCmd.Flags().IntP("port", "p", 8484, "Port to listen on")
	_ = viper.BindPFlag("webhook.port", serveCmd.Flags().Lookup("port"))

	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "junior-serve.pid"))
}

func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "junior-serve.log")
}

// serveRun runs the webhook server in the foreground until a shutdown
// signal arrives.
func serveRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	sched, err := buildScheduler(s)
	if err != nil {
		return err
	}
	defer sched.Close()

	processor := intake.NewProcessor(viper.GetString("webhook.host"), viper.GetString("webhook.secret"))
	handler := intake.NewServer(processor, sched)

	addr := fmt.Sprintf(":%d", viper.GetInt("webhook.port"))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ui.Success("Listening on %s", addr)
	if viper.GetString("webhook.secret") == "" {
		ui.Warning("No webhook secret configured; signature verification is disabled")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals()...)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		ui.Info("Received %v, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// serveStartRun forks a detached child running `serve` and records its PID.
func serveStartRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return fmt.Errorf("server already running (pid %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	if err := os.MkdirAll(viper.GetString("state_dir"), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	logFile, err := os.OpenFile(serveLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, "serve", "--port", fmt.Sprint(viper.GetInt("webhook.port")))
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)

	if dryRun {
		ui.DryRunMsg("Would start background server: %s serve", exe)
		return nil
	}

	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if err := pf.WritePID(child.Process.Pid); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}

	ui.Success("Server started (pid %d), logging to %s", child.Process.Pid, serveLogPath())
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		_ = pf.Remove()
		return fmt.Errorf("server not running")
	}

	if dryRun {
		ui.DryRunMsg("Would stop server (pid %d)", pid)
		return nil
	}

	if err := pf.Signal(sigTERM()); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}

	// Give it a moment to exit cleanly before escalating.
	for i := 0; i < 50; i++ {
		if _, alive := pf.IsRunning(); !alive {
			_ = pf.Remove()
			ui.Success("Server stopped (pid %d)", pid)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	_ = pf.Signal(sigKILL())
	_ = pf.Remove()
	ui.Warning("Server killed (pid %d)", pid)
	return nil
}

func serveStatusRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		ui.Info("Server running (pid %d) on port %d", pid, viper.GetInt("webhook.port"))
	} else {
		ui.Info("Server not running")
	}
	return nil
}

// buildScheduler wires the full review pipeline from configuration.
func buildScheduler(history scheduler.History) (*scheduler.Scheduler, error) {
	pipeline, err := buildPipeline()
	if err != nil {
		return nil, err
	}

	cfg := scheduler.DefaultConfig()
	cfg.Concurrency = viper.GetInt("jobs.concurrency")
	cfg.JobTimeout = viper.GetDuration("jobs.timeout")
	cfg.OnDuplicate = scheduler.DuplicatePolicy(viper.GetString("jobs.on_duplicate"))
	cfg.OnCompleted = scheduler.CompletedPolicy(viper.GetString("jobs.on_completed"))

	return scheduler.New(pipeline, buildPublisher(), history, cfg), nil
}
