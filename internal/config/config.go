package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	Environment string
	BunDebug    bool

	// CORS
	AllowedOrigins []string

	// Earth Engine
	EEProject           string
	EEBaseURL           string
	EEServiceAccountKey string // path to service-account JSON key
	EEAccessToken       string // static token, used when no key file is set
	EETimeout           time.Duration

	// Turbidity pipeline
	TurbidityStartDate    string
	TurbidityEndDate      string
	TurbidityCloudCeiling float64

	// Map defaults
	MapCenterLat float64
	MapCenterLon float64
	MapZoom      int

	// Potability classifier
	PotabilityDataset  string
	PotabilityEndpoint string
	PotabilityModel    string

	// Detector
	DetectorEndpoint    string
	DetectorWeights     string
	DetectionResultsDir string
	MaxUploadBytes      int64

	// Operators / JWT
	AuthEnabled       bool
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	AccessTokenTTL    time.Duration

	// LDAP
	LDAPServer string
	LDAPBaseDN string
	LDAPDomain string

	// Analytics
	PostHogKey  string
	PostHogHost string
}

// Load loads environment variables and returns a Config struct
func Load() *Config {
	_ = godotenv.Load()

	accessTTLMin, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "60"))
	eeTimeoutSec, _ := strconv.Atoi(getEnv("EE_TIMEOUT_SECONDS", "0"))
	maxUploadMB, _ := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "20"))

	allowedOrigins := strings.Split(
		getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		",",
	)

	return &Config{
		Port:           getEnv("APP_PORT", "8780"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		Environment:    getEnv("ENVIRONMENT", "development"),
		BunDebug:       getEnvAsBool("BUNDEBUG", false),
		AllowedOrigins: allowedOrigins,

		EEProject:           getEnv("EE_PROJECT", ""),
		EEBaseURL:           getEnv("EE_BASE_URL", "https://earthengine.googleapis.com"),
		EEServiceAccountKey: getEnv("EE_SERVICE_ACCOUNT_KEY", ""),
		EEAccessToken:       getEnv("EE_ACCESS_TOKEN", ""),
		EETimeout:           time.Duration(eeTimeoutSec) * time.Second, // 0 = no timeout

		TurbidityStartDate:    getEnv("TURBIDITY_START_DATE", "2023-01-01"),
		TurbidityEndDate:      getEnv("TURBIDITY_END_DATE", "2024-01-01"),
		TurbidityCloudCeiling: getEnvAsFloat("TURBIDITY_CLOUD_CEILING", 10),

		MapCenterLat: getEnvAsFloat("MAP_CENTER_LAT", 20.5937),
		MapCenterLon: getEnvAsFloat("MAP_CENTER_LON", 78.9629),
		MapZoom:      int(getEnvAsFloat("MAP_ZOOM", 5)),

		PotabilityDataset:  getEnv("POTABILITY_DATASET", "data/water_potability.csv"),
		PotabilityEndpoint: getEnv("POTABILITY_ENDPOINT", "http://localhost:8501"),
		PotabilityModel:    getEnv("POTABILITY_MODEL", "potability-rf"),

		DetectorEndpoint:    getEnv("DETECTOR_ENDPOINT", "http://localhost:8502"),
		DetectorWeights:     getEnv("DETECTOR_WEIGHTS", "models/plastic/best.pt"),
		DetectionResultsDir: getEnv("DETECTION_RESULTS_DIR", "result_images"),
		MaxUploadBytes:      int64(maxUploadMB) << 20,

		AuthEnabled:       getEnvAsBool("AUTH_ENABLED", false),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "keys/jwt_private.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "keys/jwt_public.pem"),
		AccessTokenTTL:    time.Duration(accessTTLMin) * time.Minute,

		LDAPServer: getEnv("LDAP_SERVER", "ldap://localhost:10389"),
		LDAPBaseDN: getEnv("LDAP_BASE_DN", ""),
		LDAPDomain: getEnv("LDAP_DOMAIN", ""),

		PostHogKey:  getEnv("POSTHOG_KEY", ""),
		PostHogHost: getEnv("POSTHOG_HOST", "https://eu.i.posthog.com"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("invalid bool for %s, defaulting to %v\n", key, fallback)
		return fallback
	}
	return val
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		log.Printf("invalid number for %s, defaulting to %v\n", key, fallback)
		return fallback
	}
	return val
}
