package watcher

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// Notify sends a desktop notification for the given alert. On macOS it uses
// osascript, on Linux it tries notify-send. If neither is available, it falls
// back to printing to stderr.
func Notify(alert Alert) error {
	switch runtime.GOOS {
	case "darwin":
		return notifyMacOS(alert)
	case "linux":
		return notifyLinux(alert)
	default:
		return notifyFallback(alert)
	}
}

// notifyMacOS sends a notification via osascript on macOS.
func notifyMacOS(alert Alert) error {
	script := fmt.Sprintf(
		`display notification %q with title "questwatch" subtitle %q`,
		alert.Message, subtitle(alert),
	)
	cmd := exec.Command("osascript", "-e", script)
	if err := cmd.Run(); err != nil {
		// Fall back to stderr if osascript fails.
		return notifyFallback(alert)
	}
	return nil
}

// notifyLinux sends a notification via notify-send on Linux.
func notifyLinux(alert Alert) error {
	_, err := exec.LookPath("notify-send")
	if err != nil {
		return notifyFallback(alert)
	}

	title := fmt.Sprintf("questwatch: %s", subtitle(alert))
	args := []string{title, alert.Message}
	if alert.Level == LevelCritical {
		args = append([]string{"--urgency=critical"}, args...)
	}
	cmd := exec.Command("notify-send", args...)
	if err := cmd.Run(); err != nil {
		return notifyFallback(alert)
	}
	return nil
}

func subtitle(alert Alert) string {
	if alert.QuestID == "" {
		return alert.Title
	}
	return alert.QuestID + ": " + alert.Title
}

// notifyFallback prints the alert to stderr when no desktop notification
// system is available.
func notifyFallback(alert Alert) error {
	return WriteAlert(os.Stderr, alert)
}

// WriteAlert prints one alert line, prefixed with its quest when known.
func WriteAlert(w io.Writer, alert Alert) error {
	prefix := ""
	if alert.QuestID != "" {
		prefix = alert.QuestID + " "
	}
	_, err := fmt.Fprintf(w, "[%s] %s%s: %s\n", alert.Level, prefix, alert.Title, alert.Message)
	return err
}
