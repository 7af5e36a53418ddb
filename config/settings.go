package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Settings holds every environment-driven option of the API and its jobs.
type Settings struct {
	Server   ServerSettings
	Database DatabaseSettings
	Auth     AuthSettings
	Storage  StorageSettings
	Mail     MailSettings
	Logger   LoggerSettings

	AppBaseURL        string
	CORSOrigins       []string
	QuestionnaireFile string
	ReminderWorkers   int
}

type ServerSettings struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseSettings struct {
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	DebugSQL bool
}

type AuthSettings struct {
	JWTSecret       string
	JWTExpireHours  int
	BcryptCostLevel int
}

type StorageSettings struct {
	Root        string
	MaxUploadMB int
}

type MailSettings struct {
	Host          string
	Port          int
	User          string
	Password      string
	From          string
	SkipTLSVerify bool
}

type LoggerSettings struct {
	Level  string
	Format string
	File   string
}

// Current is the settings snapshot loaded by Load.
var Current = defaultSettings()

// Load reads .env (when present) and the process environment into Current.
func Load() (*Settings, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	s := &Settings{
		Server: ServerSettings{
			Port:        v.GetString("SERVER_PORT"),
			GinMode:     v.GetString("GIN_MODE"),
			Environment: strings.ToLower(v.GetString("ENVIRONMENT")),
		},
		Database: DatabaseSettings{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_DATABASE"),
			Username: v.GetString("DB_USERNAME"),
			Password: v.GetString("DB_PASSWORD"),
			DebugSQL: v.GetBool("DEBUG_SQL"),
		},
		Auth: AuthSettings{
			JWTSecret:       v.GetString("JWT_SECRET"),
			JWTExpireHours:  v.GetInt("JWT_EXPIRE_HOURS"),
			BcryptCostLevel: v.GetInt("BCRYPT_COST"),
		},
		Storage: StorageSettings{
			Root:        v.GetString("STORAGE_ROOT"),
			MaxUploadMB: v.GetInt("MAX_UPLOAD_MB"),
		},
		Mail: MailSettings{
			Host:          v.GetString("SMTP_HOST"),
			Port:          v.GetInt("SMTP_PORT"),
			User:          v.GetString("SMTP_USER"),
			Password:      v.GetString("SMTP_PASS"),
			From:          v.GetString("SMTP_FROM"),
			SkipTLSVerify: v.GetString("SMTP_SKIP_TLS_VERIFY") == "1" || v.GetBool("SMTP_SKIP_TLS_VERIFY"),
		},
		Logger: LoggerSettings{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			File:   v.GetString("LOG_FILE"),
		},
		AppBaseURL:        strings.TrimRight(v.GetString("APP_BASE_URL"), "/"),
		QuestionnaireFile: v.GetString("QUESTIONNAIRE_FILE"),
		ReminderWorkers:   v.GetInt("REMINDER_WORKERS"),
	}

	origins := v.GetString("CORS_ALLOWED_ORIGINS")
	if strings.TrimSpace(origins) == "" {
		origins = s.AppBaseURL
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			s.CORSOrigins = append(s.CORSOrigins, o)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	Current = s
	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_DATABASE", "sitesafe")
	v.SetDefault("DB_USERNAME", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DEBUG_SQL", false)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRE_HOURS", 24)
	v.SetDefault("BCRYPT_COST", 0)
	v.SetDefault("STORAGE_ROOT", "./storage")
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("APP_BASE_URL", "http://localhost:3000")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("SMTP_SKIP_TLS_VERIFY", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_FILE", "logs/sitesafe-api.log")
	v.SetDefault("QUESTIONNAIRE_FILE", "")
	v.SetDefault("REMINDER_WORKERS", 4)
}

func defaultSettings() *Settings {
	return &Settings{
		Server:          ServerSettings{Port: "8080", GinMode: "debug", Environment: "development"},
		Auth:            AuthSettings{JWTExpireHours: 24},
		Storage:         StorageSettings{Root: "./storage", MaxUploadMB: 10},
		Mail:            MailSettings{Port: 587},
		Logger:          LoggerSettings{Level: "info", Format: "text"},
		AppBaseURL:      "http://localhost:3000",
		ReminderWorkers: 4,
	}
}

// IsProduction reports whether ENVIRONMENT=production.
func (s *Settings) IsProduction() bool {
	return s.Server.Environment == "production"
}

// Validate rejects settings the server must not start with.
func (s *Settings) Validate() error {
	if s.IsProduction() && strings.TrimSpace(s.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	if s.Auth.JWTExpireHours <= 0 {
		s.Auth.JWTExpireHours = 24
	}
	if s.Storage.MaxUploadMB <= 0 {
		s.Storage.MaxUploadMB = 10
	}
	if s.ReminderWorkers <= 0 {
		s.ReminderWorkers = 1
	}
	return nil
}

// MaxUploadBytes is the upload size limit in bytes.
func (s *Settings) MaxUploadBytes() int64 {
	return int64(s.Storage.MaxUploadMB) * 1024 * 1024
}
