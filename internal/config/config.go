package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	ClinicName  string

	// Storage
	UseMemoryStore bool
	DBDialect      string
	DatabaseURL    string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPass         string
	DBName         string
	// DBTLS is the MySQL tls parameter ("true", "skip-verify", "preferred"); empty leaves TLS off.
	// A full DB_DSN overrides it.
	DBTLS string

	// Redis (OTP store)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RabbitMQ (notification queue)
	RabbitMQURL string

	// Twilio (SMS channel)
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	TwilioStatusURL   string

	// OTP gate
	OTPTTL           time.Duration
	OTPCountryPrefix string
	OTPBypassCode    string

	// Auth
	AdminSecret     string
	AdminSecretHash string
	JWTSecret       string
	JWTTTL          time.Duration

	// Notifications
	NotifyMode          string
	NotifyMaxAttempts   int
	NotifySweepInterval time.Duration
	NotifyStaleAfter    time.Duration
	NotifyQueueSize     int

	OTELEndpoint string
	OTELInsecure bool
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	return Config{
		Port:        port,
		Environment: readString("ENVIRONMENT", "development"),
		ClinicName:  readString("CLINIC_NAME", "Amrutha Dental Clinic"),

		UseMemoryStore: readBool("USE_MEMORY_STORE", false),
		DBDialect:      strings.ToLower(readString("DB_DIALECT", "postgres")),
		DatabaseURL:    os.Getenv("DB_DSN"),
		DBHost:         readString("DB_HOST", "localhost"),
		DBPort:         os.Getenv("DB_PORT"),
		DBUser:         readString("DB_USER", "postgres"),
		DBPass:         os.Getenv("DB_PASS"),
		DBName:         readString("DB_NAME", "clinic"),
		DBTLS:          os.Getenv("DB_TLS"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       readInt("REDIS_DB", 0),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
		TwilioStatusURL:   os.Getenv("TWILIO_STATUS_CALLBACK_URL"),

		OTPTTL:           readDuration("OTP_TTL", 10*time.Minute),
		OTPCountryPrefix: readString("OTP_COUNTRY_PREFIX", "+91"),
		OTPBypassCode:    readStringAllowEmpty("OTP_BYPASS_CODE", "123456"),

		AdminSecret:     os.Getenv("ADMIN_SECRET"),
		AdminSecretHash: os.Getenv("ADMIN_SECRET_HASH"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTTTL:          readDuration("JWT_TTL", 24*time.Hour),

		NotifyMode:          strings.ToLower(readString("NOTIFY_MODE", "queue")),
		NotifyMaxAttempts:   readInt("NOTIFY_MAX_ATTEMPTS", 3),
		NotifySweepInterval: readDuration("NOTIFY_SWEEP_INTERVAL", time.Minute),
		NotifyStaleAfter:    readDuration("NOTIFY_STALE_AFTER", 5*time.Minute),
		NotifyQueueSize:     readInt("NOTIFY_QUEUE_SIZE", 256),

		OTELEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTELInsecure: readBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}
}

// TwilioConfigured reports whether SMS can actually be sent
func (c Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}

func readString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// readStringAllowEmpty lets an explicitly empty variable override the fallback
func readStringAllowEmpty(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return value
}

func readDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
