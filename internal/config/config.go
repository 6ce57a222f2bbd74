package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Video input
	CameraURL   string
	FrameWidth  int
	FrameHeight int
	TargetFPS   int

	// Zone persistence
	ZoneConfigPath string

	// Motion gate
	MotionThreshold int
	WarmupFrames    int
	DebounceFrames  int

	// Background subtraction (MOG2)
	MOG2History      int
	MOG2VarThreshold float64
	MorphKernelSize  int

	// Detector
	DetectorModelPath  string
	DetectorConfigPath string
	DetectorNamesPath  string
	DetectorInputSize  int
	DetectorConfidence float64
	DetectorNMS        float64
	DetectorClasses    []int

	// Snapshots
	SnapshotsEnabled       bool
	SnapshotDir            string
	SnapshotCooldownFrames int

	// Sound alert
	SoundCooldown time.Duration

	// Intrusion audit log
	AuditLogEnabled bool
	AuditLogPath    string

	// NATS (for alert publishing)
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	AlertsSubject      string

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "fence-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Video input ("0" opens the default webcam, otherwise RTSP URL or file path)
		CameraURL:   getEnv("CAMERA_URL", "0"),
		FrameWidth:  getEnvInt("FRAME_WIDTH", 640),
		FrameHeight: getEnvInt("FRAME_HEIGHT", 360),
		TargetFPS:   getEnvInt("TARGET_FPS", 30),

		// Zone persistence
		ZoneConfigPath: getEnv("ZONE_CONFIG_PATH", "configs/zone_config.json"),

		// Motion gate
		MotionThreshold: getEnvInt("MOTION_THRESHOLD", 500),
		WarmupFrames:    getEnvInt("WARMUP_FRAMES", 30),
		DebounceFrames:  getEnvInt("DEBOUNCE_FRAMES", 10),

		// Background subtraction
		MOG2History:      getEnvInt("MOG2_HISTORY", 500),
		MOG2VarThreshold: getEnvFloat("MOG2_VAR_THRESHOLD", 16),
		MorphKernelSize:  getEnvInt("MORPH_KERNEL_SIZE", 5),

		// Detector
		DetectorModelPath:  getEnv("DETECTOR_MODEL_PATH", "models/yolov4-tiny.weights"),
		DetectorConfigPath: getEnv("DETECTOR_CONFIG_PATH", "models/yolov4-tiny.cfg"),
		DetectorNamesPath:  getEnv("DETECTOR_NAMES_PATH", "models/coco.names"),
		DetectorInputSize:  getEnvInt("DETECTOR_INPUT_SIZE", 416),
		DetectorConfidence: getEnvFloat("DETECTOR_CONFIDENCE", 0.5),
		DetectorNMS:        getEnvFloat("DETECTOR_NMS", 0.4),
		DetectorClasses:    getEnvIntList("DETECTOR_CLASSES", []int{0}), // 0 = person in COCO

		// Snapshots
		SnapshotsEnabled:       getEnvBool("SNAPSHOTS_ENABLED", true),
		SnapshotDir:            getEnv("SNAPSHOT_DIR", "snapshots"),
		SnapshotCooldownFrames: getEnvInt("SNAPSHOT_COOLDOWN_FRAMES", 30),

		// Sound alert
		SoundCooldown: getEnvDuration("SOUND_COOLDOWN", 5*time.Second),

		// Intrusion audit log
		AuditLogEnabled: getEnvBool("AUDIT_LOG_ENABLED", true),
		AuditLogPath:    getEnv("AUDIT_LOG_PATH", "logs/intrusions.log"),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", true),
		NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		AlertsSubject:      getEnv("ALERTS_SUBJECT", "alerts.intrusion"),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvIntList(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		parsed, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer list, using default")
			return defaultValue
		}
		out = append(out, parsed)
	}
	return out
}
