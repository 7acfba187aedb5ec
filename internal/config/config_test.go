package config

import (
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so host settings don't leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"EMBEDDING_URL", "DATABASE_URL", "DATABASE_MAX_OPEN_CONNS", "DATABASE_MAX_IDLE_CONNS",
		"GALLERY_DIR", "CAMERA_SOURCE", "REPORT_DIR", "WEB_HOST", "WEB_PORT", "WEB_API_TOKEN", "WEB_ALLOWED_ORIGINS",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM", "CONTACTS_FILE",
		"ATTENDANCE_ACCEPTANCE_THRESHOLD", "ATTENDANCE_FRAME_INTERVAL",
		"ATTENDANCE_COUNTDOWN_INTERVAL", "ATTENDANCE_SCHEDULE_POLL_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_EmbeddedDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Engine.AcceptanceThreshold != 0.5 {
		t.Errorf("expected acceptance threshold 0.5, got %f", cfg.Engine.AcceptanceThreshold)
	}
	if cfg.Engine.FrameInterval != 30*time.Millisecond {
		t.Errorf("expected frame interval 30ms, got %v", cfg.Engine.FrameInterval)
	}
	if cfg.Engine.CountdownInterval != time.Second {
		t.Errorf("expected countdown interval 1s, got %v", cfg.Engine.CountdownInterval)
	}
	if cfg.Engine.SchedulePollInterval != time.Minute {
		t.Errorf("expected schedule poll interval 1m, got %v", cfg.Engine.SchedulePollInterval)
	}
	if cfg.Gallery.Dir != "face_database" {
		t.Errorf("expected gallery dir 'face_database', got '%s'", cfg.Gallery.Dir)
	}
	if cfg.Contacts.File != "contacts.yaml" {
		t.Errorf("expected contacts file 'contacts.yaml', got '%s'", cfg.Contacts.File)
	}
	if cfg.SMTP.Port != 587 {
		t.Errorf("expected SMTP port 587, got %d", cfg.SMTP.Port)
	}
	if cfg.Camera.Source != "0" {
		t.Errorf("expected camera source '0', got '%s'", cfg.Camera.Source)
	}
	if cfg.Database.MaxOpenConns != 25 || cfg.Database.MaxIdleConns != 5 {
		t.Errorf("unexpected pool defaults: open=%d idle=%d", cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ATTENDANCE_ACCEPTANCE_THRESHOLD", "0.65")
	t.Setenv("ATTENDANCE_FRAME_INTERVAL", "100ms")
	t.Setenv("GALLERY_DIR", "/srv/gallery")
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("CAMERA_SOURCE", "http://cam.local/video.mjpg")

	cfg := Load()

	if cfg.Engine.AcceptanceThreshold != 0.65 {
		t.Errorf("expected threshold 0.65, got %f", cfg.Engine.AcceptanceThreshold)
	}
	if cfg.Engine.FrameInterval != 100*time.Millisecond {
		t.Errorf("expected frame interval 100ms, got %v", cfg.Engine.FrameInterval)
	}
	if cfg.Gallery.Dir != "/srv/gallery" {
		t.Errorf("expected gallery dir '/srv/gallery', got '%s'", cfg.Gallery.Dir)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Web.Port)
	}
	if cfg.Camera.Source != "http://cam.local/video.mjpg" {
		t.Errorf("unexpected camera source '%s'", cfg.Camera.Source)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("ATTENDANCE_FRAME_INTERVAL", "fast")
	t.Setenv("ATTENDANCE_ACCEPTANCE_THRESHOLD", "-1")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "zero")

	cfg := Load()

	if cfg.Engine.FrameInterval != 30*time.Millisecond {
		t.Errorf("expected fallback to 30ms, got %v", cfg.Engine.FrameInterval)
	}
	if cfg.Engine.AcceptanceThreshold != 0.5 {
		t.Errorf("expected fallback to 0.5, got %f", cfg.Engine.AcceptanceThreshold)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected fallback to 25, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestSMTPConfig_Enabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  SMTPConfig
		want bool
	}{
		{"complete", SMTPConfig{Host: "smtp.example.com", Username: "a@example.com", Password: "secret"}, true},
		{"missing host", SMTPConfig{Username: "a@example.com", Password: "secret"}, false},
		{"missing password", SMTPConfig{Host: "smtp.example.com", Username: "a@example.com"}, false},
		{"empty", SMTPConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSMTPConfig_Sender(t *testing.T) {
	cfg := SMTPConfig{Username: "user@example.com"}
	if got := cfg.Sender(); got != "user@example.com" {
		t.Errorf("expected username as sender, got '%s'", got)
	}

	cfg.From = "attendance@example.com"
	if got := cfg.Sender(); got != "attendance@example.com" {
		t.Errorf("expected From as sender, got '%s'", got)
	}
}
