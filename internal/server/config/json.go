package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avorobjovs/keyguard/internal/flagx"
	"github.com/avorobjovs/keyguard/internal/timex"
)

// JsonConfig is the DTO used only for reading JSON configuration files.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "30m" and integer nanoseconds. After unmarshalling,
// its fields are copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	MasterSecret                 string         `json:"master_secret"`
	JWTSecret                    string         `json:"jwt_secret"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flags into the provided Config. When neither flag is set, nothing
// is loaded. An unreadable or invalid file panics: a server started with a
// broken config file should not come up.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

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

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.MasterSecret = c.MasterSecret
	config.JWTSecret = c.JWTSecret
	config.SessionTokenValidityDuration = time.Duration(c.SessionTokenValidityDuration.Duration)
}
