package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Health label constants.
const (
	HealthyValue = "Healthy" // Healthy value
	GoodValue    = "Good"    // Good value
	FairValue    = "Fair"    // Fair value
	AtRiskValue  = "At Risk" // At risk value
)

// Color variables for console output.
var (
	HealthyColor = color.New(color.FgGreen, color.Bold) // HealthyColor represents a thriving project.
	GoodColor    = color.New(color.FgCyan)              // GoodColor represents a sound project.
	FairColor    = color.New(color.FgYellow)            // FairColor represents standard caution.
	AtRiskColor  = color.New(color.FgRed, color.Bold)   // AtRiskColor represents standard danger.
	warnColor    = color.New(color.FgYellow)
	fatalColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// GetPlainLabel returns a plain text label for a 0-100 health score.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(score float64) string {
	switch {
	case score >= 80:
		return HealthyValue
	case score >= 60:
		return GoodValue
	case score >= 40:
		return FairValue
	default:
		return AtRiskValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(score float64) string {
	text := GetPlainLabel(score)

	switch text {
	case HealthyValue:
		return HealthyColor.Sprint(text)
	case GoodValue:
		return GoodColor.Sprint(text)
	case FairValue:
		return FairColor.Sprint(text)
	default:
		return AtRiskColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fatalColor.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	if err == nil {
		_, _ = warnColor.Fprintf(os.Stderr, "Warn %s\n", msg)
		return
	}
	_, _ = warnColor.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// LogInfo logs an informational message to stderr.
func LogInfo(format string, args ...any) {
	_, _ = infoColor.Fprintf(os.Stderr, format+"\n", args...)
}

// GetDBFilePath returns the path to the default SQLite database file.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".gitlegend.db"
	}
	return filepath.Join(homeDir, ".gitlegend.db")
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// The first line only is kept, since commit messages are often multi-line.
func TruncateText(text string, maxWidth int) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return string(runes)
}

// ShortSHA returns the 7-character abbreviation of a commit SHA.
func ShortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
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
