package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays Config fields from environment variables. Missing or
// malformed values leave the current value untouched.
func parseEnv(c *Config) {
	setString(&c.AppEnv, "APP_ENV")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setBool(&c.UsePostgres, "USE_POSTGRES")
	setString(&c.SecretKey, "SECRET_KEY")
	setDuration(&c.AccessTokenValidityDuration, "ACCESS_TOKEN_VALIDITY")
	setDuration(&c.SessionValidityDuration, "SESSION_VALIDITY")
	setString(&c.DocstoreBaseURL, "DOCSTORE_BASE_URL")
	setString(&c.DocstoreAPIKey, "DOCSTORE_API_KEY")
	setString(&c.DatabaseDSN, "DATABASE_DSN")
	setString(&c.S3RootUser, "S3_ROOT_USER")
	setString(&c.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&c.S3Bucket, "S3_BUCKET")
	setString(&c.S3Region, "S3_REGION")
	setString(&c.S3BaseEndpoint, "S3_BASE_ENDPOINT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
