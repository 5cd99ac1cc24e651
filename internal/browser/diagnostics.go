package browser

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Diagnostics captures screenshots and page source for post-mortem debugging.
// A nil or disabled Diagnostics does nothing. Failures are logged, never returned.
type Diagnostics struct {
	dir     string
	enabled bool
	logger  *slog.Logger
}

func NewDiagnostics(enabled bool, dir string, logger *slog.Logger) *Diagnostics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Diagnostics{
		dir:     dir,
		enabled: enabled,
		logger:  logger.With("component", "diagnostics"),
	}
}

func (d *Diagnostics) Screenshot(s Session, name string) {
	if d == nil || !d.enabled {
		return
	}

	path, err := d.path(name + ".png")
	if err != nil {
		d.logger.Warn("screenshot skipped", "name", name, "error", err)
		return
	}

	if err := s.Screenshot(path); err != nil {
		d.logger.Warn("screenshot failed", "name", name, "error", err)
		return
	}
	d.logger.Debug("saved screenshot", "path", path)
}

func (d *Diagnostics) DumpSource(s Session, name string) {
	if d == nil || !d.enabled {
		return
	}

	html, err := s.Content()
	if err != nil {
		d.logger.Warn("page source unavailable", "name", name, "error", err)
		return
	}

	path, err := d.path(name + ".html")
	if err != nil {
		d.logger.Warn("page source dump skipped", "name", name, "error", err)
		return
	}

	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		d.logger.Warn("page source dump failed", "path", path, "error", err)
		return
	}
	d.logger.Debug("saved page source", "path", path)
}

func (d *Diagnostics) path(file string) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create diagnostics dir: %w", err)
	}
	return filepath.Join(d.dir, file), nil
}
