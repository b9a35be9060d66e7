package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPost       = "post"
	KeySlug       = "slug"
	KeyFile       = "file"
	KeyPath       = "path"
	KeyImage      = "image"
	KeyWidth      = "width"
	KeyFormat     = "format"
	KeyComponent  = "component"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Post(title string) slog.Attr     { return slog.String(KeyPost, title) }
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func File(path string) slog.Attr      { return slog.String(KeyFile, path) }
func Path(path string) slog.Attr      { return slog.String(KeyPath, path) }
func Image(path string) slog.Attr     { return slog.String(KeyImage, path) }
func Width(w int) slog.Attr           { return slog.Int(KeyWidth, w) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
