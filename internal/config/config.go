package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/driftline/tidecall/internal/flow"
)

// Config holds all configuration for a session participant.
type Config struct {
	// ParticipantID identifies this process on the shared bus.
	ParticipantID string
	// CallTimeout bounds how long relay calls wait for a response.
	CallTimeout time.Duration
	// DamageScriptPath optionally points at a tengo damage script for the
	// manual combat fallback. Empty means the built-in flat math.
	DamageScriptPath string

	Flow flow.Options
}

// New loads configuration from environment variables, falling back to the
// shipped defaults for anything unset.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		ParticipantID:    getEnv("TIDECALL_PARTICIPANT_ID", "coordinator"),
		CallTimeout:      getDuration("TIDECALL_CALL_TIMEOUT", 10*time.Second),
		DamageScriptPath: os.Getenv("TIDECALL_DAMAGE_SCRIPT"),
		Flow:             flowOptions(),
	}

	if err := cfg.Flow.Validate(); err != nil {
		log.Fatalf("Invalid flow configuration: %v", err)
	}

	return cfg
}

func flowOptions() flow.Options {
	opts := flow.DefaultOptions()
	if v := os.Getenv("TIDECALL_TEMPLATE_NAME"); v != "" {
		opts.TemplateName = v
	}
	if v := os.Getenv("TIDECALL_ACTION_NAME"); v != "" {
		opts.ActionName = v
	}
	if v := os.Getenv("TIDECALL_MAX_DISTANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts.MaxDistance = f
		}
	}
	if v := os.Getenv("TIDECALL_REQUIRE_SIGHT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.RequireSight = b
		}
	}
	if v := os.Getenv("TIDECALL_SPAWN_DISPOSITION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.SpawnDisposition = n
		}
	}
	if v := os.Getenv("TIDECALL_SPAWN_LINKED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.SpawnLinked = b
		}
	}
	return opts
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
