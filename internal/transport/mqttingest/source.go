// Package mqttingest is an optional second producer boundary: trackers that
// publish over MQTT instead of HTTP are consumed from a broker and fed into
// the same core ingest path.
package mqttingest

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/zslim1101/location-relay/internal/models"
	"github.com/zslim1101/location-relay/internal/utils"
	"github.com/zslim1101/location-relay/pkg/file"
)

// Ingestor is the slice of the core the MQTT source needs.
type Ingestor interface {
	Ingest(entityID string, event models.LocationEvent) error
}

// mqttEvent is the JSON payload trackers publish.
type mqttEvent struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// Source subscribes to <topicPrefix>/+ where the last topic level is the
// entity ID, and forwards each valid payload to the ingestor on a bounded
// worker pool so a slow store never backs up the paho router.
type Source struct {
	broker        string
	clientID      string
	topicPrefix   string
	qos           int
	caCertificate string

	ingestor   Ingestor
	pool       *utils.WorkerPool
	fileClient file.FileOperations
	logger     zerolog.Logger

	client  mqtt.Client
	running bool
}

// NewSource creates an MQTT ingestion source. The CA certificate path is
// optional; without it the connection is plain TCP.
func NewSource(broker, clientID, topicPrefix string, qos int, caCertificate string,
	ingestor Ingestor, pool *utils.WorkerPool, fileClient file.FileOperations, logger zerolog.Logger) *Source {
	return &Source{
		broker:        broker,
		clientID:      clientID,
		topicPrefix:   strings.TrimSuffix(topicPrefix, "/"),
		qos:           qos,
		caCertificate: caCertificate,
		ingestor:      ingestor,
		pool:          pool,
		fileClient:    fileClient,
		logger:        logger,
	}
}

// Start connects to the broker and subscribes to the ingest topic.
func (s *Source) Start() error {
	if s.running {
		s.logger.Warn().Msg("MQTT source is already running")
		return errors.New("mqtt source is already running")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.broker)
	opts.SetClientID(s.clientID)
	opts.SetAutoReconnect(true)

	if s.caCertificate != "" {
		caCert, err := s.fileClient.ReadFileRaw(s.caCertificate)
		if err != nil {
			return fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return errors.New("failed to append CA certificate")
		}
		opts.SetTLSConfig(&tls.Config{RootCAs: caCertPool})
	}

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	topic := s.topicPrefix + "/+"
	if token := s.client.Subscribe(topic, byte(s.qos), s.handleMessage); token.Wait() && token.Error() != nil {
		s.client.Disconnect(250)
		return token.Error()
	}

	s.running = true
	s.logger.Info().
		Str("broker", s.broker).
		Str("topic", topic).
		Int("qos", s.qos).
		Msg("MQTT source started")
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (s *Source) Stop() error {
	if !s.running {
		s.logger.Warn().Msg("MQTT source is not running")
		return errors.New("mqtt source is not running")
	}

	s.client.Unsubscribe(s.topicPrefix + "/+")
	s.client.Disconnect(250)
	s.running = false
	s.logger.Info().Msg("MQTT source stopped")
	return nil
}

// handleMessage validates one published payload and hands it to the core.
// Malformed messages are logged and skipped; MQTT producers get no reply
// channel for validation errors.
func (s *Source) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	entityID := msg.Topic()[strings.LastIndex(msg.Topic(), "/")+1:]
	if entityID == "" {
		s.logger.Warn().Str("topic", msg.Topic()).Msg("Message topic carries no entity ID")
		return
	}

	var body mqttEvent
	if err := json.Unmarshal(msg.Payload(), &body); err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("Malformed MQTT payload")
		return
	}
	event, err := models.NewLocationEvent(body.Latitude, body.Longitude, body.Timestamp)
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("Invalid location event")
		return
	}

	s.pool.Submit(func() {
		if err := s.ingestor.Ingest(entityID, event); err != nil {
			s.logger.Error().Err(err).Str("entity_id", entityID).Msg("MQTT ingest failed")
		}
	})
}
