package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"aadhaarcli/pkg/contracts/domain"
)

// PathsConfig locates the input directories of each record kind and the
// directory exports are written to. Relative paths resolve against BaseDir.
type PathsConfig struct {
	BaseDir        string `yaml:"base_dir" envconfig:"BASE_DIR"`
	EnrollmentDir  string `yaml:"enrollment_dir" envconfig:"ENROLLMENT_DIR" default:"data/enrollment" validate:"required"`
	DemographicDir string `yaml:"demographic_dir" envconfig:"DEMOGRAPHIC_DIR" default:"data/demographic" validate:"required"`
	BiometricDir   string `yaml:"biometric_dir" envconfig:"BIOMETRIC_DIR" default:"data/biometric" validate:"required"`
	OutputDir      string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"output" validate:"required"`
}

// DefaultPaths returns the default directory layout
func DefaultPaths() PathsConfig {
	return PathsConfig{
		EnrollmentDir:  "data/enrollment",
		DemographicDir: "data/demographic",
		BiometricDir:   "data/biometric",
		OutputDir:      "output",
	}
}

// Resolve returns p joined onto BaseDir unless it is already absolute
func (p PathsConfig) Resolve(path string) string {
	if filepath.IsAbs(path) || p.BaseDir == "" {
		return path
	}
	return filepath.Join(p.BaseDir, path)
}

// InputDirs maps each record kind to its resolved input directory
func (p PathsConfig) InputDirs() map[domain.RecordKind]string {
	return map[domain.RecordKind]string{
		domain.KindEnrollment:  p.Resolve(p.EnrollmentDir),
		domain.KindDemographic: p.Resolve(p.DemographicDir),
		domain.KindBiometric:   p.Resolve(p.BiometricDir),
	}
}

// Output returns the resolved path of name inside the output directory
func (p PathsConfig) Output(name string) string {
	return filepath.Join(p.Resolve(p.OutputDir), name)
}

// EnsureOutputDir creates the output directory if it does not exist
func (p PathsConfig) EnsureOutputDir() error {
	dir := p.Resolve(p.OutputDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	slog.Default().Debug("Ensured directory exists", slog.String("directory", dir))
	return nil
}
