package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"presence.service/internal/core/geo"
	"presence.service/internal/core/workday"
)

// The service runs as a container; every setting arrives as an environment
// variable. A .env file in the working directory is honoured for local runs.

type Config struct {
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	ServerPort string `mapstructure:"SERVER_PORT"`
	IsLocalDev bool   `mapstructure:"IS_LOCAL_DEV"`

	// StoreDriver selects the attendance store: "postgres" or "memory".
	StoreDriver string `mapstructure:"STORE_DRIVER"`

	AWSRegion               string `mapstructure:"AWS_REGION"`
	AWSEndpoint             string `mapstructure:"AWS_ENDPOINT"`
	ReportingSQSQueueURL    string `mapstructure:"REPORTING_SQS_QUEUE_URL"`
	NotificationSQSQueueURL string `mapstructure:"NOTIFICATION_SQS_QUEUE_URL"`
	ReportingAPIURL         string `mapstructure:"REPORTING_API_URL"`
	NotificationSender      string `mapstructure:"NOTIFICATION_SENDER"`
	OTelExporterEndpoint    string `mapstructure:"OTEL_EXPORTER_ENDPOINT"`
	WorkerConcurrency       int    `mapstructure:"WORKER_CONCURRENCY"`
	WorkerMetricsPort       string `mapstructure:"WORKER_METRICS_PORT"`

	RedisURL              string        `mapstructure:"REDIS_URL"`
	DirectoryCacheTTL     time.Duration `mapstructure:"DIRECTORY_CACHE_TTL"`
	NotificationDedupeTTL time.Duration `mapstructure:"NOTIFICATION_DEDUPE_TTL"`
	JWTSecret             string        `mapstructure:"JWT_SECRET"`

	OfficeLat            float64 `mapstructure:"OFFICE_LAT"`
	OfficeLng            float64 `mapstructure:"OFFICE_LNG"`
	GeofenceRadiusMeters float64 `mapstructure:"GEOFENCE_RADIUS_METERS"`
	LateCutoff           string  `mapstructure:"LATE_CUTOFF"`
	HardCutoff           string  `mapstructure:"HARD_CUTOFF"`
	Timezone             string  `mapstructure:"TIMEZONE"`
}

// Attendance is the validated subset the attendance service is built from.
type Attendance struct {
	Fence  geo.Fence
	Policy workday.Policy
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (config Config, err error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("DB_HOST", "db")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "presence_db")
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("IS_LOCAL_DEV", false)
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	v.SetDefault("REPORTING_SQS_QUEUE_URL", "http://localstack:4566/000000000000/attendance-reporting-queue")
	v.SetDefault("NOTIFICATION_SQS_QUEUE_URL", "http://localstack:4566/000000000000/attendance-notification-queue")
	v.SetDefault("REPORTING_API_URL", "http://localhost:8081/")
	v.SetDefault("NOTIFICATION_SENDER", "attendance@presence-service.com")
	v.SetDefault("OTEL_EXPORTER_ENDPOINT", "jaeger:4317")
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("WORKER_METRICS_PORT", "9090")
	v.SetDefault("NOTIFICATION_DEDUPE_TTL", "72h")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("DIRECTORY_CACHE_TTL", "5m")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("OFFICE_LAT", 18.432941)
	v.SetDefault("OFFICE_LNG", 73.886954)
	v.SetDefault("GEOFENCE_RADIUS_METERS", 6000)
	v.SetDefault("LATE_CUTOFF", "10:00")
	v.SetDefault("HARD_CUTOFF", "13:00")
	v.SetDefault("TIMEZONE", "Asia/Kolkata")

	// Read in environment variables that match the keys.
	v.AutomaticEnv()

	err = v.Unmarshal(&config)
	return
}

// AttendanceSettings converts the geofence and cutoff keys into core types
// and validates them.
func (c Config) AttendanceSettings() (Attendance, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return Attendance{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	// Unset cutoffs keep the 10:00/13:00 defaults.
	policy := workday.DefaultPolicy(loc)
	if c.LateCutoff != "" {
		if policy.LateCutoff, err = workday.ParseClock(c.LateCutoff); err != nil {
			return Attendance{}, fmt.Errorf("LATE_CUTOFF: %w", err)
		}
	}
	if c.HardCutoff != "" {
		if policy.HardCutoff, err = workday.ParseClock(c.HardCutoff); err != nil {
			return Attendance{}, fmt.Errorf("HARD_CUTOFF: %w", err)
		}
	}

	settings := Attendance{
		Fence: geo.Fence{
			Center:       geo.Point{Lat: c.OfficeLat, Lng: c.OfficeLng},
			RadiusMeters: c.GeofenceRadiusMeters,
		},
		Policy: policy,
	}
	if err := settings.Fence.Validate(); err != nil {
		return Attendance{}, fmt.Errorf("geofence: %w", err)
	}
	if err := settings.Policy.Validate(); err != nil {
		return Attendance{}, fmt.Errorf("cutoffs: %w", err)
	}
	return settings, nil
}
