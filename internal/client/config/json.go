package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avorobjovs/keyguard/internal/flagx"
	"github.com/avorobjovs/keyguard/internal/timex"
)

// JsonConfig is the DTO used only for reading JSON configuration files.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flags into the provided Config. When neither flag is set, nothing
// is loaded.
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

	config.ServerEndpointAddr = c.ServerEndpointAddr
	config.RequestTimeout = time.Duration(c.RequestTimeout.Duration)
}
