package catalog

import (
	"errors"
	"io/fs"
	"log/slog"
)

// overlayFS opens files from primary and falls back to fallback when a file
// does not exist there.
type overlayFS struct {
	primary  fs.FS
	fallback fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if err == nil {
		slog.Info("using catalog override", "file", name)
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return o.fallback.Open(name)
}
