package rollbook

import (
	"io"
	"log/slog"
)

const (
	DefaultFileName   = "student.txt"
	DefaultMaxRecords = 2000
)

type Config struct {
	// FileName is the path of the record file.
	FileName string

	// MaxRecords caps the number of stored records. Zero means
	// DefaultMaxRecords, a negative value disables the limit.
	MaxRecords int

	// NoSync skips fsync after appends. Rewrites are always synced.
	NoSync bool

	Logger *slog.Logger
}

func (cfg *Config) applyDefaults() {
	if cfg.FileName == "" {
		cfg.FileName = DefaultFileName
	}

	if cfg.MaxRecords == 0 {
		cfg.MaxRecords = DefaultMaxRecords
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

func (cfg *Config) limited() bool {
	return cfg.MaxRecords > 0
}
