package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aadhaarcli/internal/files"
	"aadhaarcli/pkg/contracts/domain"
)

// ErrNoTables is returned when an input directory holds no CSV or Excel table
var ErrNoTables = errors.New("no csv or xlsx tables found")

// InputReport counts the table files found per record kind
type InputReport struct {
	Files map[domain.RecordKind]int   `json:"files"`
	Bytes map[domain.RecordKind]int64 `json:"bytes"`
}

// Total returns the number of files across all kinds
func (r InputReport) Total() int {
	n := 0
	for _, c := range r.Files {
		n += c
	}
	return n
}

// FileValidator checks input and output locations before a run
type FileValidator struct {
	discovery *files.Discovery
	logger    *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		discovery: files.NewDiscovery(""),
		logger:    logger,
	}
}

// ValidateInputDirectory checks that dir exists, is a directory, and
// holds at least one table file
func (v *FileValidator) ValidateInputDirectory(dir string) ([]files.FileInfo, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return nil, fmt.Errorf("input directory %s does not exist", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	found, err := v.discovery.FindTableFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in %s: %w", dir, err)
	}
	if len(found) == 0 {
		v.logger.Warn("No table files found",
			slog.String("directory", dir))
		return nil, fmt.Errorf("%w in %s", ErrNoTables, dir)
	}

	v.logger.Debug("Input directory validated",
		slog.String("directory", dir),
		slog.Int("files_found", len(found)))
	return found, nil
}

// ValidateInputs validates the directory of every record kind. All kinds
// are checked; the returned error joins every failure.
func (v *FileValidator) ValidateInputs(dirs map[domain.RecordKind]string) (InputReport, error) {
	report := InputReport{
		Files: make(map[domain.RecordKind]int, len(dirs)),
		Bytes: make(map[domain.RecordKind]int64, len(dirs)),
	}

	kinds := make([]string, 0, len(dirs))
	for kind := range dirs {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	var errs []error
	for _, k := range kinds {
		kind := domain.RecordKind(k)
		found, err := v.ValidateInputDirectory(dirs[kind])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		report.Files[kind] = len(found)
		report.Bytes[kind] = files.TotalSize(found)
	}

	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}

	v.logger.Info("Input directories validated",
		slog.Int("files", report.Total()))
	return report, nil
}

// ValidateOutputDirectory ensures dir exists or can be created and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateTableFile checks that path is a readable CSV or XLSX file and not
// an Excel lock file
func (v *FileValidator) ValidateTableFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Skipping temporary Excel file",
			slog.String("file", path))
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}
	if _, ok := files.DetectFormat(base); !ok {
		return fmt.Errorf("file %s is not a csv or xlsx table (extension: %s)", path, strings.ToLower(filepath.Ext(path)))
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()
	return nil
}
