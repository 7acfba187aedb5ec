package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Embedding EmbeddingConfig
	Database  DatabaseConfig
	Gallery   GalleryConfig
	Camera    CameraConfig
	Report    ReportConfig
	Web       WebConfig
	SMTP      SMTPConfig
	Contacts  ContactsConfig
	Engine    EngineConfig
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (optional, enables reference caching and report history)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type GalleryConfig struct {
	Dir string // directory holding metadata.json and per-person image folders
}

type CameraConfig struct {
	Source string // device index, http(s) MJPEG URL or directory of frames
}

type ReportConfig struct {
	Dir string // where attendance_*.xlsx files are written
}

type WebConfig struct {
	Host           string
	Port           int
	Token          string // bearer token required to stop a session over HTTP (optional)
	AllowedOrigins string // comma-separated CORS origins
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // defaults to Username
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (c *SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// Sender returns the From address.
func (c *SMTPConfig) Sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

type ContactsConfig struct {
	File string
}

type EngineConfig struct {
	AcceptanceThreshold  float64       `yaml:"acceptance_threshold"`
	FrameInterval        time.Duration `yaml:"frame_interval"`
	CountdownInterval    time.Duration `yaml:"countdown_interval"`
	SchedulePollInterval time.Duration `yaml:"schedule_poll_interval"`
}

type defaults struct {
	Engine EngineConfig `yaml:"engine"`
	Paths  struct {
		GalleryDir   string `yaml:"gallery_dir"`
		ReportDir    string `yaml:"report_dir"`
		ContactsFile string `yaml:"contacts_file"`
	} `yaml:"paths"`
	SMTP struct {
		Port int `yaml:"port"`
	} `yaml:"smtp"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a float environment variable, falling back on unset or invalid values.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a duration environment variable ("500ms", "2s").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envString returns the env var or the default when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	smtpUser := os.Getenv("SMTP_USERNAME")

	return &Config{
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Gallery: GalleryConfig{
			Dir: envString("GALLERY_DIR", d.Paths.GalleryDir),
		},
		Camera: CameraConfig{
			Source: envString("CAMERA_SOURCE", "0"),
		},
		Report: ReportConfig{
			Dir: envString("REPORT_DIR", d.Paths.ReportDir),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			Token:          os.Getenv("WEB_API_TOKEN"),
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", d.SMTP.Port),
			Username: smtpUser,
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		Contacts: ContactsConfig{
			File: envString("CONTACTS_FILE", d.Paths.ContactsFile),
		},
		Engine: EngineConfig{
			AcceptanceThreshold:  envFloat("ATTENDANCE_ACCEPTANCE_THRESHOLD", d.Engine.AcceptanceThreshold),
			FrameInterval:        envDuration("ATTENDANCE_FRAME_INTERVAL", d.Engine.FrameInterval),
			CountdownInterval:    envDuration("ATTENDANCE_COUNTDOWN_INTERVAL", d.Engine.CountdownInterval),
			SchedulePollInterval: envDuration("ATTENDANCE_SCHEDULE_POLL_INTERVAL", d.Engine.SchedulePollInterval),
		},
	}
}
