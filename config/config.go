package config

import (
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds the project config values
type Config struct {
	URL             string
	DatabaseName    string
	Port            string
	JWTSecret       string
	SendgridAPIKey  string
	EmailFrom       string
	EmailFromName   string
	RecaptchaSecret string
	RedisAddr       string
	RedisPassword   string
	UploadDir       string
}

// New sets up all config related services
func New() *Config {
	// load a local .env if one exists, env vars win otherwise
	_ = godotenv.Load()

	//setup zap logger and replace default logger
	logger := zap.NewExample()
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	c := &Config{
		URL:             os.Getenv("DB_URI"),
		DatabaseName:    os.Getenv("DB_NAME"),
		Port:            os.Getenv("PORT"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		SendgridAPIKey:  os.Getenv("SENDGRID_API_KEY"),
		EmailFrom:       os.Getenv("EMAIL_FROM"),
		EmailFromName:   os.Getenv("EMAIL_FROM_NAME"),
		RecaptchaSecret: os.Getenv("RECAPTCHA_SECRET"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		UploadDir:       os.Getenv("UPLOAD_DIR"),
	}
	if c.Port == "" {
		c.Port = "4900"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.EmailFromName == "" {
		c.EmailFromName = "CivicHero Notifications"
	}
	return c
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.WriteHeader(httpStatusCode)
	w.Write([]byte(fmt.Sprintf(`{"response": "%s, %v"}`, message, err)))
}
