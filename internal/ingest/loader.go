package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"aadhaarcli/internal/files"
	"aadhaarcli/pkg/contracts/domain"
)

// Tables holds the concatenated raw table of each record kind
type Tables map[domain.RecordKind]*domain.RawTable

// FileHook is called after each input file has been read
type FileHook func(kind domain.RecordKind, file files.FileInfo, rows int)

// Loader reads every table of the three datasets from their directories
type Loader struct {
	discovery *files.Discovery
	logger    *slog.Logger
	onFile    FileHook
	mu        sync.Mutex
}

// NewLoader creates a loader resolving relative directories against discovery's base path
func NewLoader(discovery *files.Discovery, logger *slog.Logger) *Loader {
	if discovery == nil {
		discovery = files.NewDiscovery("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		discovery: discovery,
		logger:    logger.With(slog.String("component", "ingest")),
	}
}

// OnFile registers a hook called after each file is read. Calls are serialized.
func (l *Loader) OnFile(hook FileHook) {
	l.onFile = hook
}

// Plan lists the files that Load would read for each kind
func (l *Loader) Plan(dirs map[domain.RecordKind]string) (map[domain.RecordKind][]files.FileInfo, error) {
	plan := make(map[domain.RecordKind][]files.FileInfo, len(dirs))
	for kind, dir := range dirs {
		found, err := l.discovery.FindTableFiles(dir)
		if err != nil {
			return nil, fmt.Errorf("discover %s tables: %w", kind, err)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("%s tables in %s: %w", kind, dir, ErrNoInputFiles)
		}
		plan[kind] = found
	}
	return plan, nil
}

// Load reads the three datasets concurrently. Any schema error or an empty
// directory aborts the whole load.
func (l *Loader) Load(ctx context.Context, dirs map[domain.RecordKind]string) (Tables, error) {
	plan, err := l.Plan(dirs)
	if err != nil {
		return nil, err
	}

	tables := make(Tables, len(plan))
	var tablesMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for kind, found := range plan {
		g.Go(func() error {
			table, err := l.loadFiles(ctx, kind, found)
			if err != nil {
				return err
			}
			tablesMu.Lock()
			tables[kind] = table
			tablesMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// LoadKind reads every table of a single kind from dir
func (l *Loader) LoadKind(ctx context.Context, kind domain.RecordKind, dir string) (*domain.RawTable, error) {
	found, err := l.discovery.FindTableFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("discover %s tables: %w", kind, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s tables in %s: %w", kind, dir, ErrNoInputFiles)
	}
	return l.loadFiles(ctx, kind, found)
}

func (l *Loader) loadFiles(ctx context.Context, kind domain.RecordKind, found []files.FileInfo) (*domain.RawTable, error) {
	parts := make([]*domain.RawTable, 0, len(found))
	for _, file := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		table, err := ReadFile(file.Path, kind)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", file.Name, err)
		}

		l.logger.InfoContext(ctx, "Loaded table",
			slog.String("kind", string(kind)),
			slog.String("file", file.Name),
			slog.Int("rows", table.Len()))

		if l.onFile != nil {
			l.mu.Lock()
			l.onFile(kind, file, table.Len())
			l.mu.Unlock()
		}
		parts = append(parts, table)
	}

	combined := Concat(kind, parts...)
	l.logger.InfoContext(ctx, "Concatenated tables",
		slog.String("kind", string(kind)),
		slog.Int("files", len(parts)),
		slog.Int("rows", combined.Len()))
	return combined, nil
}
