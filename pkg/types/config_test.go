package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty data dir returns ErrDataDirEmpty",
			config:  Config{},
			wantErr: ErrDataDirEmpty,
		},
		{
			name:    "negative thumbnail width",
			config:  Config{DataDir: "/tmp/data", Thumbnail: ThumbnailConfig{Width: -1}},
			wantErr: ErrThumbnailWidthInvalid,
		},
		{
			name:    "quality above 100",
			config:  Config{DataDir: "/tmp/data", Thumbnail: ThumbnailConfig{Quality: 101}},
			wantErr: ErrThumbnailQualityInvalid,
		},
		{
			name:    "negative workers",
			config:  Config{DataDir: "/tmp/data", ImportWorkers: -2},
			wantErr: ErrImportWorkersInvalid,
		},
		{
			name:    "zero values rely on defaults",
			config:  Config{DataDir: "/tmp/data"},
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
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	c := Config{DataDir: "/tmp/data"}.WithDefaults()
	if c.Thumbnail.Width != DefaultThumbnailWidth {
		t.Errorf("width = %d, want %d", c.Thumbnail.Width, DefaultThumbnailWidth)
	}
	if c.Thumbnail.Quality != DefaultThumbnailQuality {
		t.Errorf("quality = %d, want %d", c.Thumbnail.Quality, DefaultThumbnailQuality)
	}
	if c.ImportWorkers != DefaultImportWorkers {
		t.Errorf("workers = %d, want %d", c.ImportWorkers, DefaultImportWorkers)
	}

	custom := Config{DataDir: "/tmp/data", Thumbnail: ThumbnailConfig{Width: 120, Quality: 60}, ImportWorkers: 1}.WithDefaults()
	if custom.Thumbnail.Width != 120 || custom.Thumbnail.Quality != 60 || custom.ImportWorkers != 1 {
		t.Errorf("explicit values overwritten: %+v", custom)
	}
}

func TestFieldErrorMatchesValidation(t *testing.T) {
	err := NewFieldError("reference", "is required")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("FieldError should match ErrValidation")
	}
	if !errors.Is(ErrNothingToUpdate, ErrValidation) {
		t.Fatalf("ErrNothingToUpdate should match ErrValidation")
	}
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "reference" {
		t.Fatalf("expected FieldError for reference, got %v", err)
	}
}
