package backend

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	excludeCharsLinux = "*/|"
	excludeCharsVFAT  = "\"*/:<>?|"
)

// SaneFilename turns a clip title into a file name. Characters the target
// filesystem rejects become underscores; vfat selects the stricter set.
func SaneFilename(name string, vfat bool) string {
	exclude := excludeCharsLinux
	if vfat {
		exclude = excludeCharsVFAT
	}

	sane := strings.Map(func(r rune) rune {
		if strings.ContainsRune(exclude, r) {
			return '_'
		}
		return r
	}, strings.Trim(name, " ."))

	if sane == "" {
		return "ylevideo"
	}
	return sane
}

// NextAvailableFilename returns proposed, or name-1.ext, name-2.ext... when
// that file already exists. The check is best effort; a file created by
// someone else after the check is not detected.
func NextAvailableFilename(fs afero.Fs, proposed string, logger *zap.Logger) string {
	ext := filepath.Ext(proposed)
	basename := strings.TrimSuffix(proposed, ext)

	filename := proposed
	for i := 1; ; i++ {
		exists, err := afero.Exists(fs, filename)
		if err != nil || !exists {
			return filename
		}
		logger.Info(fmt.Sprintf("%s exists, trying an alternative name", filename))
		filename = fmt.Sprintf("%s-%d%s", basename, i, ext)
	}
}

// OutputFileFromArgs returns the value of the last -o or --flv option
func OutputFileFromArgs(args []string) string {
	for i := len(args) - 1; i >= 0; i-- {
		if args[i] == "-o" || args[i] == "--flv" {
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		}
	}
	return ""
}

// IsResumeJob reports whether the extra arguments ask rtmpdump to resume
func IsResumeJob(args []string) bool {
	for _, a := range args {
		if a == "--resume" || a == "-e" {
			return true
		}
	}
	return false
}

func joinPath(dir, name string) string {
	return filepath.Join(dir, name)
}
