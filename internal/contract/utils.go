package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Provenance label constants.
const (
	LiveValue        = "Live"
	CachedValue      = "Cached"
	StaleValue       = "Stale"
	RateLimitedValue = "Rate limited"
)

// Color variables for console output.
var (
	LiveColor        = color.New(color.FgGreen, color.Bold)
	CachedColor      = color.New(color.FgCyan)
	StaleColor       = color.New(color.FgYellow)
	RateLimitedColor = color.New(color.FgRed, color.Bold)
	HintColor        = color.New(color.FgMagenta)
	ChapterColor     = color.New(color.FgHiYellow, color.Bold)
)

// GetPlainLabel returns the provenance label of a stats result.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(fromCache, stale, rateLimited bool) string {
	switch {
	case !fromCache:
		return LiveValue
	case rateLimited:
		return RateLimitedValue
	case stale:
		return StaleValue
	default:
		return CachedValue
	}
}

// GetColorLabel returns a colored provenance label for console output.
func GetColorLabel(fromCache, stale, rateLimited bool) string {
	text := GetPlainLabel(fromCache, stale, rateLimited)

	switch text {
	case LiveValue:
		return LiveColor.Sprint(text)
	case RateLimitedValue:
		return RateLimitedColor.Sprint(text)
	case StaleValue:
		return StaleColor.Sprint(text)
	default:
		return CachedColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when the path is empty.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for stats cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".folio_cache.db"
	}
	return filepath.Join(homeDir, ".folio_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for fetch history storage.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".folio_history.db"
	}
	return filepath.Join(homeDir, ".folio_history.db")
}

// Truncate shortens s to maxWidth runes with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and some content.
func Truncate(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
