package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/acme/imagestore/internal/flagx"
)

// JsonConfig is the intermediate DTO used only for reading JSON
// configuration files. Duration-valued settings are expressed in minutes so
// the file stays plain JSON. After unmarshalling, its fields are copied into
// the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP  string `json:"endpoint_addr_http"`
	DatabaseDSN       string `json:"database_dsn"`
	S3RootUser        string `json:"s3_root_user"`
	S3RootPassword    string `json:"s3_root_password"`
	S3Bucket          string `json:"s3_bucket"`
	S3Region          string `json:"s3_region"`
	S3BaseEndpoint    string `json:"s3_base_endpoint"`
	PresignTTLMinutes int    `json:"presign_ttl_minutes"`
	DefaultPageLimit  int    `json:"default_page_limit"`
	MaxPageLimit      int    `json:"max_page_limit"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c/-config command-line
// flags; when absent, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics. Empty/zero fields in the file
// leave the corresponding Config values untouched.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.PresignTTLMinutes > 0 {
		config.PresignTTL = time.Duration(c.PresignTTLMinutes) * time.Minute
	}
	if c.DefaultPageLimit > 0 {
		config.DefaultPageLimit = c.DefaultPageLimit
	}
	if c.MaxPageLimit > 0 {
		config.MaxPageLimit = c.MaxPageLimit
	}
}
