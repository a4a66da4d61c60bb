package config

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const DATABASE_TYPE = "GSTATE_DATABASE_TYPE"
const DATABASE_URL = "GSTATE_DATABASE_URL"
const DATABASE_SQLLITE_FILE_NAME = "GSTATE_DATABASE_SQLLITE_FILE_NAME"
const SNAPSHOT_FILE_NAME = "GSTATE_SNAPSHOT_FILE_NAME" //json file the in-memory store is persisted to, empty disables it
const ENGINE_SERVER_WEB_PORT = "GSTATE_ENGINE_SERVER_WEB_PORT"
const DEFINITION_CACHE_TTL = "GSTATE_DEFINITION_CACHE_TTL" //how long definitions loaded from the database stay cached
const LOG_LEVEL = "GSTATE_LOG_LEVEL"
const TRACING_ENABLED = "GSTATE_TRACING_ENABLED" //export spans to stdout

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"
const DATABASE_TYPE_MEMORY = "MEMORY"

var (
	settings     *viper.Viper
	settingsOnce sync.Once
)

func defaults(v *viper.Viper) {
	v.SetDefault(DATABASE_TYPE, DATABASE_TYPE_MEMORY)
	v.SetDefault(DATABASE_SQLLITE_FILE_NAME, "./gstate.db")
	v.SetDefault(SNAPSHOT_FILE_NAME, "workflows.json")
	v.SetDefault(ENGINE_SERVER_WEB_PORT, "8080")
	v.SetDefault(DEFINITION_CACHE_TTL, "5m")
	v.SetDefault(LOG_LEVEL, "info")
	v.SetDefault(TRACING_ENABLED, "false")
}

// Settings returns the process wide settings. Values resolve from flags bound by the CLI,
// then GSTATE_* environment variables, then an optional gopherstate.yaml, then defaults.
func Settings() *viper.Viper {
	settingsOnce.Do(func() {
		v := viper.New()
		defaults(v)
		v.SetConfigName("gopherstate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AutomaticEnv()
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				slog.Warn("Unable to read config file", "error", err)
			}
		}
		settings = v
	})
	return settings
}

// LoadConfigFile merges an explicit config file over the defaults.
func LoadConfigFile(path string) error {
	v := Settings()
	v.SetConfigFile(path)
	return v.MergeInConfig()
}

func GetSystemSettingInteger(settingKey string) int {
	return Settings().GetInt(settingKey)
}

func GetSystemSettingBool(settingKey string) bool {
	return Settings().GetBool(settingKey)
}

func GetSystemSettingDuration(settingKey string) time.Duration {
	return Settings().GetDuration(settingKey)
}

func GetSystemSettingString(settingKey string) string {
	return strings.TrimSpace(Settings().GetString(settingKey))
}
