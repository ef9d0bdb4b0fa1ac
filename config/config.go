package config

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cleanstreet/clean-street-api/models"
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string
	Env          string

	JWTSecret string

	// AdminEmailDomain grants the admin role at registration when the
	// email ends with this suffix. Deliberately a config value, never a
	// hardcoded string.
	AdminEmailDomain string

	SendgridAPIKey string
	EmailFrom      string
	EmailFromName  string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadPreset string
	CloudinaryFolder       string
	UploadsDir             string
}

// New sets up all config related services
func New() *Config {

	// .env is optional; deployed environments set these directly
	if err := godotenv.Load(); err != nil {
		zap.S().Debugw("no .env file loaded", "error", err)
	}

	//setup zap logger and replace default logger
	logger := zap.NewExample()
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:          os.Getenv("DB_URI"),
		DatabaseName: os.Getenv("DB_NAME"),
		BaseURL:      os.Getenv("BASE_URL"),
		Port:         os.Getenv("PORT"),
		Env:          os.Getenv("APP_ENV"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AdminEmailDomain: os.Getenv("ADMIN_EMAIL_DOMAIN"),

		SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		EmailFrom:      os.Getenv("EMAIL_FROM"),
		EmailFromName:  os.Getenv("EMAIL_FROM_NAME"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadPreset: os.Getenv("CLOUDINARY_UPLOAD_PRESET"),
		CloudinaryFolder:       os.Getenv("CLOUDINARY_FOLDER"),
		UploadsDir:             os.Getenv("UPLOADS_DIR"),
	}

}

// IsProduction reports whether the app runs with production behavior,
// e.g. never echoing OTPs back to the caller.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// given message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.WriteHeader(httpStatusCode)
	resp := models.ErrorResponse{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	b, _ := json.Marshal(resp)
	w.Write(b)
}
