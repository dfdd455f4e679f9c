package config

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/linesmerrill/custody-ledger-api/models"
)

// Config holds the project config values
type Config struct {
	URL            string
	DatabaseName   string
	DBDriver       string
	SQLDSN         string
	DBTransactions bool
	BaseURL        string
	Port           string
	Env            string

	AuthEnabled        bool
	JWTSecret          string
	TokenTTL           time.Duration
	PolicePasswordHash string
	LawyerPasswordHash string

	UploadDir           string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	RedisURL       string
	SendGridAPIKey string
	AlertEmail     string
	FromEmail      string

	ResyncSchedule    string
	IntegritySchedule string
}

// New sets up all config related services
func New() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "local")
	v.SetDefault("DB_DRIVER", "mongo")
	v.SetDefault("DB_NAME", "custody")
	v.SetDefault("DB_TRANSACTIONS", true)
	v.SetDefault("SQL_DSN", "file:custody.db?_foreign_keys=on")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("FROM_EMAIL", "alerts@custody-ledger.org")
	v.SetDefault("RESYNC_SCHEDULE", "@every 5m")
	v.SetDefault("INTEGRITY_SCHEDULE", "@hourly")

	//setup zap logger and replace default logger
	logger, err := setLogger(v.GetString("ENV"))
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:            v.GetString("DB_URI"),
		DatabaseName:   v.GetString("DB_NAME"),
		DBDriver:       strings.ToLower(v.GetString("DB_DRIVER")),
		SQLDSN:         v.GetString("SQL_DSN"),
		DBTransactions: v.GetBool("DB_TRANSACTIONS"),
		BaseURL:        strings.TrimRight(v.GetString("BASE_URL"), "/"),
		Port:           v.GetString("PORT"),
		Env:            v.GetString("ENV"),

		AuthEnabled:        v.GetBool("AUTH_ENABLED"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		TokenTTL:           v.GetDuration("TOKEN_TTL"),
		PolicePasswordHash: v.GetString("POLICE_PASSWORD_HASH"),
		LawyerPasswordHash: v.GetString("LAWYER_PASSWORD_HASH"),

		UploadDir:           v.GetString("UPLOAD_DIR"),
		CloudinaryCloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    v.GetString("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: v.GetString("CLOUDINARY_API_SECRET"),

		RedisURL:       v.GetString("REDIS_URL"),
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		AlertEmail:     v.GetString("ALERT_EMAIL"),
		FromEmail:      v.GetString("FROM_EMAIL"),

		ResyncSchedule:    v.GetString("RESYNC_SCHEDULE"),
		IntegritySchedule: v.GetString("INTEGRITY_SCHEDULE"),
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().Errorw(message,
		"status", httpStatusCode,
		"error", err,
	)
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_ = json.NewEncoder(w).Encode(models.ErrorMessageResponse{
		Response: models.MessageError{
			Message: message,
			Error:   detail,
		},
	})
}
