package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aadhaarcli/pkg/contracts/domain"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"AADHAAR_SERVER_PORT":           "9090",
				"AADHAAR_LOGGING_LEVEL":         "debug",
				"AADHAAR_ANOMALY_CONTAMINATION": "0.01",
				"AADHAAR_STORE_DB_PATH":         "/tmp/runs.db",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 0.01, cfg.Anomaly.Contamination)
				assert.Equal(t, "/tmp/runs.db", cfg.Store.Path)
			},
		},
		{
			name: "file overrides defaults",
			file: `
server:
  port: 7070
  read_timeout: 5s
paths:
  enrollment_dir: /srv/enrol
anomaly:
  trees: 50
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "/srv/enrol", cfg.Paths.EnrollmentDir)
				assert.Equal(t, 50, cfg.Anomaly.Trees)
				assert.Equal(t, "data/demographic", cfg.Paths.DemographicDir)
			},
		},
		{
			name: "environment wins over file",
			env:  map[string]string{"AADHAAR_SERVER_PORT": "9191"},
			file: "server:\n  port: 7070\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9191, cfg.Server.Port)
			},
		},
		{
			name:    "invalid contamination",
			env:     map[string]string{"AADHAAR_ANOMALY_CONTAMINATION": "0.9"},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			file:    "logging:\n  level: verbose\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "server: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

// TestPathsConfig tests path resolution against the base directory
func TestPathsConfig(t *testing.T) {
	p := DefaultPaths()
	p.BaseDir = "/srv/aadhaar"
	p.BiometricDir = "/mnt/bio"

	dirs := p.InputDirs()
	assert.Equal(t, "/srv/aadhaar/data/enrollment", dirs[domain.KindEnrollment])
	assert.Equal(t, "/srv/aadhaar/data/demographic", dirs[domain.KindDemographic])
	assert.Equal(t, "/mnt/bio", dirs[domain.KindBiometric])
	assert.Equal(t, "/srv/aadhaar/output/"+AnomaliesCSV, p.Output(AnomaliesCSV))

	p.BaseDir = ""
	assert.Equal(t, "output", p.Resolve(p.OutputDir))
}

// TestEnsureOutputDir tests output directory creation
func TestEnsureOutputDir(t *testing.T) {
	p := DefaultPaths()
	p.BaseDir = t.TempDir()
	p.OutputDir = "nested/out"

	require.NoError(t, p.EnsureOutputDir())

	info, err := os.Stat(filepath.Join(p.BaseDir, "nested", "out"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// TestServerAddress tests address formatting
func TestServerAddress(t *testing.T) {
	s := Default().Server
	assert.Equal(t, "127.0.0.1:8080", s.Address())
}
