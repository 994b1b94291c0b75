package types

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "db file with directory part rejected",
			config:  Config{Backend: "sqlite", DBFile: "../library.db"},
			wantErr: ErrDBFileInvalid,
		},
		{
			name:    "hidden db file rejected",
			config:  Config{Backend: "sqlite", DBFile: ".library.db"},
			wantErr: ErrDBFileInvalid,
		},
		{
			name:    "custom db file accepted",
			config:  Config{Backend: "sqlite", DBFile: "branch.db"},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join(".", DefaultDBFile), Config{}.DBPath())
	assert.Equal(t, filepath.Join("/srv/lib", "branch.db"), Config{DataDir: "/srv/lib", DBFile: "branch.db"}.DBPath())
}
