// Package conf holds build metadata and the runtime configuration shared by
// the server and worker commands.
package conf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Set with -ldflags "-X github.com/gadget-bot/amedos/conf.GitVersion=..."
var (
	Executable = "amedos"
	GitVersion = "development"
)

type Config struct {
	SlackBotToken      string
	SlackSigningSecret string

	MapClientID string
	MapMode     string
	MapEndpoint string

	SlashCommandName string
	// Inline runs the backend in-process instead of enqueueing it
	Inline  bool
	Service string
	Stage   string

	ListenPort string

	RedisURL          string
	RedisTLSInsecure  bool
	Queue             string
	WorkerConcurrency int

	LogLevel  string
	LogFormat string
}

var ErrMissingConfig = errors.New("missing required configuration")

// keys maps each viper key to the environment variables it is read from, in
// order of preference.
var keys = map[string][]string{
	"slack_bot_token":      {"SLACK_BOT_TOKEN", "SLACK_OAUTH_TOKEN"},
	"slack_signing_secret": {"SLACK_SIGNING_SECRET"},
	"map_client_id":        {"YAHOO_JAPAN_API_CLIENT_ID"},
	"map_mode":             {"YAHOO_JAPAN_API_MAP_MODE"},
	"map_endpoint":         {"YAHOO_JAPAN_API_MAP_URL"},
	"slash_command_name":   {"SLASH_COMMAND_NAME"},
	"is_offline":           {"IS_OFFLINE"},
	"service":              {"SERVERLESS_SERVICE"},
	"stage":                {"SERVERLESS_STAGE"},
	"listen_port":          {"AMEDOS_LISTEN_PORT"},
	"redis_url":            {"AMEDOS_REDIS_URL"},
	"redis_tls_insecure":   {"AMEDOS_REDIS_TLS_INSECURE"},
	"queue":                {"AMEDOS_QUEUE"},
	"worker_concurrency":   {"AMEDOS_WORKER_CONCURRENCY"},
	"log_level":            {"AMEDOS_LOG_LEVEL"},
	"log_format":           {"AMEDOS_LOG_FORMAT"},
}

var defaults = map[string]interface{}{
	"map_mode":           "map",
	"map_endpoint":       "https://map.yahooapis.jp/map/V1/static",
	"slash_command_name": "amedos",
	"is_offline":         false,
	"service":            "amedos",
	"stage":              "dev",
	"listen_port":        "3000",
	"redis_url":          "redis://localhost:6379/0",
	"redis_tls_insecure": false,
	"queue":              "default",
	"worker_concurrency": 10,
	"log_level":          "info",
	"log_format":         "json",
}

// Bind registers defaults and environment bindings on v. Values from a config
// file read into v take precedence over defaults but not over the environment.
func Bind(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, envs := range keys {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
}

// Load binds v and reads the configuration out of it.
func Load(v *viper.Viper) Config {
	Bind(v)
	return Config{
		SlackBotToken:      v.GetString("slack_bot_token"),
		SlackSigningSecret: v.GetString("slack_signing_secret"),
		MapClientID:        v.GetString("map_client_id"),
		MapMode:            v.GetString("map_mode"),
		MapEndpoint:        v.GetString("map_endpoint"),
		SlashCommandName:   strings.TrimLeft(v.GetString("slash_command_name"), "/"),
		Inline:             v.GetBool("is_offline"),
		Service:            v.GetString("service"),
		Stage:              v.GetString("stage"),
		ListenPort:         v.GetString("listen_port"),
		RedisURL:           v.GetString("redis_url"),
		RedisTLSInsecure:   v.GetBool("redis_tls_insecure"),
		Queue:              v.GetString("queue"),
		WorkerConcurrency:  v.GetInt("worker_concurrency"),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
	}
}

// ValidateServer checks what the HTTP frontend needs.
func (c Config) ValidateServer() error {
	var missing []string
	if c.SlackBotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	if c.SlackSigningSecret == "" {
		missing = append(missing, "SLACK_SIGNING_SECRET")
	}
	if c.MapClientID == "" {
		missing = append(missing, "YAHOO_JAPAN_API_CLIENT_ID")
	}
	if !c.Inline && c.RedisURL == "" {
		missing = append(missing, "AMEDOS_REDIS_URL")
	}
	return missingError(missing)
}

// ValidateWorker checks what the remote backend needs. The token travels in
// each task, so only the queue connection is required.
func (c Config) ValidateWorker() error {
	var missing []string
	if c.RedisURL == "" {
		missing = append(missing, "AMEDOS_REDIS_URL")
	}
	return missingError(missing)
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
}
