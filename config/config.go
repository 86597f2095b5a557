package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/models"
)

// Store drivers
const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
)

// Config holds the project config values
type Config struct {
	Env          string
	Port         string
	BaseURL      string
	URL          string
	DatabaseName string
	StoreDriver  string
	RedisURL     string

	CaseFlagThreshold    int
	CommentHideThreshold int
	CaseNumberPrefix     string
	CaseNumberYear       int

	FallbackLat     float64
	FallbackLng     float64
	DefaultRadiusKm float64
	MaxRadiusKm     float64

	AuthoritySeedFile        string
	AuthorityRefreshSchedule string
	GeoIPDBPath              string

	JWTSecret         string
	AdminUser         string
	AdminPasswordHash string

	SendGridAPIKey string
	MailFrom       string
	MailFromName   string

	CloudinaryURL          string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadPreset string

	TrustedProxies []string

	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	RateLimitTTL   time.Duration
}

// New loads .env when present, sets up the global zap logger and reads
// every setting from the environment
func New() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		// logger isn't configured yet, fall through to the example logger below
		zap.S().Warnw(".env load warning", "error", err)
	}

	env := getEnv("ENV", "local")
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		Env:          env,
		Port:         getEnv("PORT", "8080"),
		BaseURL:      os.Getenv("BASE_URL"),
		URL:          os.Getenv("DB_URI"),
		DatabaseName: getEnv("DB_NAME", "missing_persons"),
		StoreDriver:  strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		RedisURL:     os.Getenv("REDIS_URL"),

		CaseFlagThreshold:    getEnvInt("CASE_FLAG_THRESHOLD", 3),
		CommentHideThreshold: getEnvInt("COMMENT_HIDE_THRESHOLD", 2),
		CaseNumberPrefix:     getEnv("CASE_NUMBER_PREFIX", "MISS"),
		CaseNumberYear:       getEnvInt("CASE_NUMBER_YEAR", 0),

		FallbackLat:     getEnvFloat("FALLBACK_LAT", 4.0511),
		FallbackLng:     getEnvFloat("FALLBACK_LNG", 9.7679),
		DefaultRadiusKm: getEnvFloat("DEFAULT_RADIUS_KM", 10),
		MaxRadiusKm:     getEnvFloat("MAX_RADIUS_KM", 100),

		AuthoritySeedFile:        os.Getenv("AUTHORITY_SEED_FILE"),
		AuthorityRefreshSchedule: getEnv("AUTHORITY_REFRESH_SCHEDULE", "@every 15m"),
		GeoIPDBPath:              os.Getenv("GEOIP_DB_PATH"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminUser:         os.Getenv("ADMIN_USER"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@missing-persons.cm"),
		MailFromName:   getEnv("MAIL_FROM_NAME", "Missing Persons Cameroon"),

		CloudinaryURL:          os.Getenv("CLOUDINARY_URL"),
		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadPreset: os.Getenv("CLOUDINARY_UPLOAD_PRESET"),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		RateLimitTTL:   getEnvDuration("RATE_LIMIT_TTL", 3*time.Minute),
	}
}

// setLogger picks a zap config for the given environment
func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	default:
		return zap.NewExample(), nil
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With("error", err).Error(message)
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: errText}})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	w.Write(b)
}

// WriteError is ErrorStatus with the status code derived from the error kind
func WriteError(message string, w http.ResponseWriter, err error) {
	ErrorStatus(message, apperr.HTTPStatus(err), w, err)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
