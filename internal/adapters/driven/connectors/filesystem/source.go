// Package filesystem reads documents from a local directory tree.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/normalisers"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// Config contains configuration for the filesystem source.
type Config struct {
	// Root is the directory to walk. Document paths are relative to it.
	Root string

	// Include lists doublestar patterns a file must match. Empty includes everything.
	Include []string

	// Exclude lists doublestar patterns that drop a file or prune a directory.
	Exclude []string

	// MaxFileSize is the largest file read, in bytes. Default is 1MB.
	MaxFileSize int64
}

// DefaultConfig returns the default filesystem source configuration.
func DefaultConfig(root string) Config {
	return Config{
		Root:        root,
		Include:     []string{"**/*.md"},
		MaxFileSize: 1 << 20,
	}
}

// Source walks Root and yields matching text files.
type Source struct {
	config Config
	fsys   fs.FS
	logger *slog.Logger
}

// NewSource validates the patterns and creates a source over Root.
func NewSource(config Config, logger *slog.Logger) (*Source, error) {
	if config.Root == "" {
		return nil, fmt.Errorf("%w: source root is required", domain.ErrValidation)
	}
	info, err := os.Stat(config.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: source root: %w", domain.ErrValidation, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: source root %s is not a directory", domain.ErrValidation, config.Root)
	}
	return newSource(config, os.DirFS(config.Root), logger)
}

func newSource(config Config, fsys fs.FS, logger *slog.Logger) (*Source, error) {
	for _, p := range append(append([]string{}, config.Include...), config.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: invalid source pattern %q", domain.ErrValidation, p)
		}
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = 1 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{config: config, fsys: fsys, logger: logger.With("source", config.Root)}, nil
}

// Name identifies the source in run records.
func (s *Source) Name() string {
	abs, err := filepath.Abs(s.config.Root)
	if err != nil {
		return "filesystem:" + s.config.Root
	}
	return "filesystem:" + abs
}

// Documents walks the tree in lexical order. Oversized and binary files
// are skipped with a log line rather than failing the walk.
func (s *Source) Documents(ctx context.Context) ([]domain.SourceDocument, error) {
	var docs []domain.SourceDocument
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if d.IsDir() {
			if matchAny(s.config.Exclude, p) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !s.shouldInclude(p) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > s.config.MaxFileSize {
			s.logger.Debug("skipping oversized file", "path", p, "size", info.Size())
			return nil
		}
		data, err := fs.ReadFile(s.fsys, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		if !utf8.Valid(data) {
			s.logger.Debug("skipping non-UTF-8 file", "path", p)
			return nil
		}

		docs = append(docs, domain.SourceDocument{
			Path:     p,
			Content:  string(data),
			MimeType: normalisers.MIMETypeForPath(p),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.config.Root, err)
	}
	return docs, nil
}

func (s *Source) shouldInclude(p string) bool {
	if matchAny(s.config.Exclude, p) {
		return false
	}
	return len(s.config.Include) == 0 || matchAny(s.config.Include, p)
}

func matchAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}
