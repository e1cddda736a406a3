package cli

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Validate checks the blog URL and the date filters, then makes sure the
// backup directory exists, creating it if needed. Nothing is touched on disk
// unless the other checks pass.
func (c Config) Validate(log logrus.FieldLogger) error {
	log.Debug("Validating input blog URL")
	if !IsURL(c.Blog) {
		return NewValidationError("--blog", c.Blog, ErrInvalidURL)
	}

	for _, d := range []struct {
		flag, value string
		set         bool
	}{
		{"--start-date", c.StartDate, c.StartDateSet},
		{"--end-date", c.EndDate, c.EndDateSet},
	} {
		if !d.set {
			log.Debugf("Skipping missing optional argument: %s", d.flag)
			continue
		}
		log.Debugf("Validating input %s", d.flag)
		if _, err := time.Parse(time.RFC3339, d.value); err != nil {
			return NewValidationError(d.flag, d.value, ErrInvalidDate)
		}
	}

	log.Debug("Setting up backup directory")
	return ensureDir(c.BackupDir)
}

// IsURL reports whether s is an absolute http(s) URL with a host.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return NewValidationError("--backup-dir", dir, ErrBackupDirCreate)
		}
		return nil
	case err != nil:
		return NewValidationError("--backup-dir", dir, ErrBackupDirCreate)
	case !info.IsDir():
		return NewValidationError("--backup-dir", dir, ErrBackupDirIsFile)
	}
	return nil
}
