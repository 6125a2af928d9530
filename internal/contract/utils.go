package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/triad/schema"
)

// Color variables for console output.
var (
	CriticalColor = color.New(color.FgRed, color.Bold)     // CriticalColor represents standard danger.
	HighColor     = color.New(color.FgMagenta, color.Bold) // HighColor represents strong, distinct warning.
	ModerateColor = color.New(color.FgYellow)              // ModerateColor represents standard caution, not bold.
	LowColor      = color.New(color.FgCyan)                // LowColor represents informational / low-priority signal.
	HealthyColor  = color.New(color.FgGreen)               // HealthyColor represents a passing state.
)

// GetColorLabel returns a colored health label for console output (table).
func GetColorLabel(score *float64) string {
	text := schema.HealthLabel(score)
	switch text {
	case "Critical":
		return CriticalColor.Sprint(text)
	case "Poor":
		return HighColor.Sprint(text)
	case "Fair":
		return ModerateColor.Sprint(text)
	case "Healthy":
		return HealthyColor.Sprint(text)
	default:
		return LowColor.Sprint(text)
	}
}

// GetSeverityLabel returns a colored severity label for console output.
func GetSeverityLabel(s schema.Severity) string {
	switch s {
	case schema.SeverityUrgent:
		return CriticalColor.Sprint(s)
	case schema.SeverityHigh:
		return HighColor.Sprint(s)
	case schema.SeverityMedium:
		return ModerateColor.Sprint(s)
	default:
		return LowColor.Sprint(s)
	}
}

// GetPriorityLabel returns a colored priority label for console output.
func GetPriorityLabel(p schema.Priority) string {
	switch p {
	case schema.PriorityUrgent:
		return CriticalColor.Sprint(p)
	case schema.PriorityHigh:
		return HighColor.Sprint(p)
	default:
		return ModerateColor.Sprint(p)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// ShouldIgnore returns true if the given path matches any of the exclude patterns.
// It supports simple glob patterns (using filepath.Match) when the pattern
// contains wildcard characters (*, ?, [ ]). Patterns ending with '/' match a
// directory at any depth. Patterns starting with '.' are treated as suffix matches.
func ShouldIgnore(path string, excludes []string) bool {
	for _, ex := range excludes {
		ex = strings.TrimSpace(ex)
		if ex == "" {
			continue
		}

		if strings.ContainsAny(ex, "*?[") {
			pat := strings.ReplaceAll(ex, "**", "*")
			if ok, err := filepath.Match(pat, path); err == nil && ok {
				return true
			}
			if ok, err := filepath.Match(pat, filepath.Base(path)); err == nil && ok {
				return true
			}
			continue
		}

		switch {
		case strings.HasSuffix(ex, "/"):
			if strings.HasPrefix(path, ex) || strings.Contains(path, "/"+ex) {
				return true
			}
		case strings.HasPrefix(ex, "."):
			if strings.HasSuffix(path, ex) {
				return true
			}
		case strings.Contains(path, ex):
			return true
		}
	}
	return false
}

// GetReportDBFilePath returns the path to the SQLite DB file for report storage.
func GetReportDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".triad_reports.db"
	}
	return filepath.Join(homeDir, ".triad_reports.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for test history storage.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".triad_history.db"
	}
	return filepath.Join(homeDir, ".triad_history.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
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

// WriteFileAtomic writes data to a temporary file in the same directory and renames it into place,
// so readers see either the old content or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
