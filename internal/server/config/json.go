package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/hronboard/internal/flagx"
	"github.com/dmitrijs2005/hronboard/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted. Pointer
// and zero-valued fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddrGRPC        string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP        string         `json:"endpoint_addr_http"`
	DatabaseDSN             string         `json:"database_dsn"`
	SecretKey               string         `json:"secret_key"`
	S3RootUser              string         `json:"s3_root_user"`
	S3RootPassword          string         `json:"s3_root_password"`
	S3Bucket                string         `json:"s3_bucket"`
	S3Region                string         `json:"s3_region"`
	S3BaseEndpoint          string         `json:"s3_base_endpoint"`
	PresignValidityDuration timex.Duration `json:"presign_validity_duration"`
	TelegramToken           string         `json:"telegram_token"`
	TelegramRatePerSecond   int            `json:"telegram_rate_per_second"`
	RedisAddr               string         `json:"redis_addr"`
	SessionTTL              timex.Duration `json:"session_ttl"`
	KafkaBrokers            []string       `json:"kafka_brokers"`
	KafkaTopic              string         `json:"kafka_topic"`
	SupportEmail            string         `json:"support_email"`
	LogLevel                string         `json:"log_level"`
}

// parseJson overlays values from the file named by -c/-config onto config.
// Nothing happens when no file is given. An unreadable file or invalid JSON
// panics, as a misconfigured server must not start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.TelegramToken, c.TelegramToken)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.KafkaTopic, c.KafkaTopic)
	setString(&config.SupportEmail, c.SupportEmail)
	setString(&config.LogLevel, c.LogLevel)

	if c.PresignValidityDuration.Duration > 0 {
		config.PresignValidityDuration = c.PresignValidityDuration.Duration
	}
	if c.SessionTTL.Duration > 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.TelegramRatePerSecond > 0 {
		config.TelegramRatePerSecond = c.TelegramRatePerSecond
	}
	if len(c.KafkaBrokers) > 0 {
		config.KafkaBrokers = c.KafkaBrokers
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
