package logger

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
)

var (
	infoColor    = color.New(color.FgBlue)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	debugColor   = color.New(color.FgHiBlack)
	methodColor  = color.New(color.FgMagenta)

	debugEnabled atomic.Bool
)

// SetDebug toggles Debug output.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// DisableColor forces plain output, e.g. when logs go to a file.
func DisableColor() {
	color.NoColor = true
}

func stamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func Info(format string, args ...interface{}) {
	infoColor.Printf("[%s] [INFO] %s\n", stamp(), fmt.Sprintf(format, args...))
}

func Success(format string, args ...interface{}) {
	successColor.Printf("[%s] [OK] %s\n", stamp(), fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	warnColor.Printf("[%s] [WARN] %s\n", stamp(), fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	errorColor.Fprintf(color.Error, "[%s] [ERROR] %s\n", stamp(), fmt.Sprintf(format, args...))
}

func Debug(format string, args ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	debugColor.Printf("[%s] [DEBUG] %s\n", stamp(), fmt.Sprintf(format, args...))
}

// Request logs one finished HTTP request, colored by status class.
func Request(requestID, method, path string, status int, duration time.Duration) {
	var statusColor *color.Color
	switch {
	case status >= 500:
		statusColor = errorColor
	case status >= 400:
		statusColor = warnColor
	case status >= 300:
		statusColor = infoColor
	default:
		statusColor = successColor
	}

	fmt.Fprintf(color.Output, "[%s] %s %-40s %s %s %s\n",
		stamp(),
		methodColor.Sprintf("%-6s", method),
		path,
		statusColor.Sprintf("[%d]", status),
		debugColor.Sprintf("(%s)", formatDuration(duration)),
		debugColor.Sprint(requestID),
	)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
