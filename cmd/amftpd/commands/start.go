package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/m4mm0n/amFTPd-sub003/internal/config"
	"github.com/m4mm0n/amFTPd-sub003/internal/logger"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the amFTPd server",
	Long: `Start the amFTPd server with the specified configuration.

By default, the server runs in the background (daemon mode). Use
--foreground to run in the foreground for debugging or when managed
by a process supervisor.

Examples:
  # Start in background (default)
  amftpd start

  # Start in foreground
  amftpd start --foreground

  # Start with a custom config file
  amftpd start --config /etc/amftpd/config.yaml

  # Override a setting via environment variable
  AMFTPD_LOGGING_LEVEL=DEBUG amftpd start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/amftpd/amftpd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/amftpd/amftpd.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	rt, err := config.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("amftpd starting", "bind_addr", cfg.Listener.BindAddr, "tls", cfg.TLS.Enabled)

	serverDone := make(chan error, 1)
	go func() { serverDone <- rt.Server.Serve(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("amftpd is running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, draining sessions")
		cancel()
		err := <-serverDone
		if shutdownErr := rt.Shutdown(); shutdownErr != nil {
			logger.Error("runtime shutdown error", "error", shutdownErr)
		}
		if err != nil {
			logger.Error("server shutdown error", "error", err)
			return err
		}
		logger.Info("amftpd stopped gracefully")
	case err := <-serverDone:
		signal.Stop(sigChan)
		if shutdownErr := rt.Shutdown(); shutdownErr != nil {
			logger.Error("runtime shutdown error", "error", shutdownErr)
		}
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		logger.Info("amftpd stopped")
	}

	return nil
}

// startDaemon re-execs the current binary with --foreground, detached
// from the controlling terminal, and records its PID for `amftpd stop`
// tooling built on top of this PID file convention.
func startDaemon() error {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	amftpdStateDir := filepath.Join(stateDir, "amftpd")
	if err := os.MkdirAll(amftpdStateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = filepath.Join(amftpdStateDir, "amftpd.pid")
	}

	if data, err := os.ReadFile(pidPath); err == nil {
		var pid int
		if _, err := fmt.Sscanf(string(data), "%d", &pid); err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("amftpd is already running (PID %d)", pid)
				}
			}
		}
		_ = os.Remove(pidPath)
	}

	logPath := logFile
	if logPath == "" {
		logPath = filepath.Join(amftpdStateDir, "amftpd.log")
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	cmd := exec.Command(executable, daemonArgs...)

	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFileHandle.Close()

	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Printf("amftpd started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	return nil
}
