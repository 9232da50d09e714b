package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/questwatch/internal/config"
	"github.com/blackwell-systems/questwatch/internal/output"
	"github.com/blackwell-systems/questwatch/internal/watcher"
)

var (
	watchDaemon   bool
	watchInterval time.Duration
	watchStop     bool
	watchQuiet    bool
	watchNoNotify bool
)

// minWatchInterval keeps the loop from hammering the database.
const minWatchInterval = 10 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch [quest-id...]",
	Short: "Recompute quest analytics periodically and alert on changes",
	Long: `Monitor quests and raise alerts when their analytics change: clear rate
drops, new low reviews, newly hard puzzle spots, new feedback categories
and new drop-off modes. Alerts go to desktop notifications and the
terminal. With no IDs every quest in the database is watched.

Examples:
  questwatch watch                       # all quests, foreground
  questwatch watch harbor-01 -w 7d       # one quest, last 7 days
  questwatch watch --interval 5m
  questwatch watch --daemon              # write PID and log files
  questwatch watch --stop                # stop the background daemon`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "Run in background mode (write PID file, log to file)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Check interval, e.g. 30s or 5m (default from config)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "Stop a running background daemon")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output, only send notifications")
	watchCmd.Flags().BoolVar(&watchNoNotify, "no-notify", false, "Do not send desktop notifications")
	rootCmd.AddCommand(watchCmd)
}

func pidFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.pid")
}

func logFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.log")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchStop {
		return stopDaemon()
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), shutdownSignals...)
	defer cancel()

	var (
		sink     io.Writer = os.Stdout
		logPaths []string
	)
	if watchDaemon {
		logFile, cleanup, err := startDaemon()
		if err != nil {
			return err
		}
		defer cleanup()
		sink = logFile
		logPaths = []string{logFilePath()}
	}

	e, err := openEnv(ctx, logPaths...)
	if err != nil {
		return err
	}
	defer e.Close()

	interval := watchInterval
	if interval == 0 {
		interval = e.cfg.Watch.Interval
	}
	if interval < minWatchInterval {
		return fmt.Errorf("interval must be at least %s, got %s", minWatchInterval, interval)
	}

	window, err := e.window()
	if err != nil {
		return err
	}

	ids := args
	if len(ids) == 0 {
		if ids, err = e.db.ListQuestIDs(ctx); err != nil {
			return fmt.Errorf("listing quests: %w", err)
		}
	}
	if len(ids) == 0 {
		return errors.New("no quests to watch; import data first")
	}

	alertFn := func(a watcher.Alert) {
		if !watchNoNotify {
			_ = watcher.Notify(a)
		}
		switch {
		case watchDaemon:
			writeLog(sink, "[%s] %s %s: %s", a.Level, a.QuestID, a.Title, a.Message)
		case !watchQuiet:
			printAlert(a)
		}
	}

	w := watcher.New(e.facade, ids, interval, alertFn,
		watcher.WithWindow(window),
		watcher.WithLogger(e.log),
		watcher.WithSnapshotStore(e.db),
		watcher.WithThresholds(watcher.Thresholds{
			ClearRateDrop: e.cfg.Watch.ClearRateDrop,
			HardSpotRate:  e.cfg.Watch.HardSpotRate,
			LowRating:     e.cfg.Watch.LowRatingLimit,
		}),
	)

	if watchDaemon {
		writeLog(sink, "questwatch daemon started (PID %d, %d quest(s), window %s, interval %s)",
			os.Getpid(), len(ids), window, interval)
	} else if !watchQuiet {
		fmt.Printf("questwatch watching %s (window %s, every %s)\n", strings.Join(ids, ", "), window, interval)
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if watchDaemon {
			writeLog(sink, "daemon stopped")
		} else if !watchQuiet {
			fmt.Println("\nStopped.")
		}
		return nil
	}
	return err
}

// startDaemon writes the PID file and opens the log file. The actual
// backgrounding is left to the caller (nohup, a service manager) since Go
// cannot reliably fork.
func startDaemon() (*os.File, func(), error) {
	if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating config dir: %w", err)
	}

	if pid, err := readPID(); err == nil {
		if processExists(pid) {
			return nil, nil, fmt.Errorf("daemon already running (PID %d). Use --stop to stop it", pid)
		}
		_ = os.Remove(pidFilePath())
	}

	if err := os.WriteFile(pidFilePath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, nil, fmt.Errorf("writing PID file: %w", err)
	}

	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = os.Remove(pidFilePath())
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	cleanup := func() {
		_ = logFile.Close()
		_ = os.Remove(pidFilePath())
	}
	return logFile, cleanup, nil
}

func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// writeLog writes a timestamped line to the daemon log.
func writeLog(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(w, "[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), msg)
}

// printAlert formats and prints an alert to the terminal.
func printAlert(a watcher.Alert) {
	fmt.Println(formatAlert(a))
	if a.Message != "" {
		fmt.Printf("           %s\n", output.StyleMuted.Render(a.Message))
	}
}

// formatAlert renders the headline of an alert, with a trend arrow for rate
// changes.
func formatAlert(a watcher.Alert) string {
	line := fmt.Sprintf("[%s] %s %s %s", a.Time.Format("15:04:05"), alertIcon(a.Level), output.StyleBold.Render(a.QuestID), a.Title)
	if a.Delta != 0 {
		line += " " + output.TrendArrow(a.Delta, true)
	}
	return line
}

func alertIcon(level string) string {
	switch level {
	case watcher.LevelCritical:
		return output.StyleError.Render("●")
	case watcher.LevelWarning:
		return output.StyleWarning.Render("▲")
	case watcher.LevelInfo:
		return output.StyleSuccess.Render("✓")
	default:
		return " "
	}
}
