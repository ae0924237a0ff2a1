package utils

import (
	"time"

	"github.com/zslim1101/location-relay/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	Server struct {
		Address          string        `yaml:"address"`            // HTTP listen address, e.g. ":8080"
		WebSocketPath    string        `yaml:"websocket_path"`     // Path serving the subscriber websocket
		ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`   // Grace period for in-flight requests on shutdown
		WriteQueueLength int           `yaml:"write_queue_length"` // Per-connection outbound queue before the connection is dropped
	} `yaml:"server"`

	EventLog struct {
		Retention time.Duration `yaml:"retention"` // Event retention window; zero keeps the log unbounded
	} `yaml:"event_log"`

	Ingest struct {
		Workers int `yaml:"workers"` // Concurrent ingest workers for the MQTT source
	} `yaml:"ingest"`

	MQTT struct {
		Enabled       bool   `yaml:"enabled"`        // Enable/disable the MQTT ingestion source
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		TopicPrefix   string `yaml:"topic_prefix"`   // Topic prefix; the level after it is the entity ID
		QOS           int    `yaml:"qos"`            // MQTT QoS level for the ingest subscription
		CACertificate string `yaml:"ca_certificate"` // Optional path to the CA certificate for TLS
	} `yaml:"mqtt"`

	Log struct {
		Level string `yaml:"level"` // zerolog level: trace, debug, info, warn, error
	} `yaml:"log"`
}

// LoadConfig loads the YAML configuration from the specified file.
// It returns a pointer to the Config struct and an error if loading fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	err := fileClient.ReadYamlFile(filename, &config)
	if err != nil {
		return nil, err
	}

	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}
	if config.Server.WebSocketPath == "" {
		config.Server.WebSocketPath = "/ws"
	}
	if config.Server.WriteQueueLength <= 0 {
		config.Server.WriteQueueLength = 64
	}
	if config.Ingest.Workers <= 0 {
		config.Ingest.Workers = 4
	}

	return &config, nil
}
