package config

import "testing"

func TestLoadRecognitionDefaults(t *testing.T) {
	t.Setenv("OCR_ENGINE", "")
	t.Setenv("OCR_LANGUAGE", "")
	t.Setenv("OCR_DPI", "")
	t.Setenv("OCR_PSM", "")
	t.Setenv("OCR_OEM", "")
	t.Setenv("OCR_TIMEOUT_SECONDS", "")
	t.Setenv("CONFIDENCE_THRESHOLD", "")

	cfg := Load()
	if cfg.OCREngine != "cli" {
		t.Fatalf("expected default engine cli, got %q", cfg.OCREngine)
	}
	if cfg.OCRLanguage != "eng" || cfg.OCRDPI != 300 || cfg.OCRPSM != 3 || cfg.OCROEM != 3 {
		t.Fatalf("unexpected recognition defaults: %+v", cfg)
	}
	if cfg.OCRTimeoutSeconds != 180 {
		t.Fatalf("expected default timeout 180, got %d", cfg.OCRTimeoutSeconds)
	}
	if cfg.ConfidenceThreshold != 0.85 {
		t.Fatalf("expected default threshold 0.85, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.MaxFileSizeMB != 25 {
		t.Fatalf("expected default max file size 25, got %d", cfg.MaxFileSizeMB)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("OCR_ENGINE", "cgo")
	t.Setenv("OCR_DPI", "400")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.9")
	t.Setenv("STORAGE_BACKEND", "minio")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")

	cfg := Load()
	if cfg.OCREngine != "cgo" {
		t.Fatalf("expected engine override, got %q", cfg.OCREngine)
	}
	if cfg.OCRDPI != 400 {
		t.Fatalf("expected dpi 400, got %d", cfg.OCRDPI)
	}
	if cfg.ConfidenceThreshold != 0.9 {
		t.Fatalf("expected threshold 0.9, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.StorageBackend != "minio" {
		t.Fatalf("expected storage backend minio, got %q", cfg.StorageBackend)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.APIRateLimitRPS)
	}
}

func TestLoadFallsBackOnBadValues(t *testing.T) {
	t.Setenv("OCR_DPI", "not-a-number")
	t.Setenv("CONFIDENCE_THRESHOLD", "high")
	t.Setenv("MINIO_USE_SSL", "maybe")

	cfg := Load()
	if cfg.OCRDPI != 300 {
		t.Fatalf("expected fallback dpi 300, got %d", cfg.OCRDPI)
	}
	if cfg.ConfidenceThreshold != 0.85 {
		t.Fatalf("expected fallback threshold, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.MinioUseSSL {
		t.Fatal("expected fallback use_ssl false")
	}
}
