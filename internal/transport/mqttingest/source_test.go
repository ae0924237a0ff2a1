package mqttingest

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zslim1101/location-relay/internal/models"
	"github.com/zslim1101/location-relay/internal/utils"
	"github.com/zslim1101/location-relay/pkg/file"
)

// fakeMessage implements the paho mqtt.Message interface for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// recordingIngestor captures ingested events.
type recordingIngestor struct {
	mu     sync.Mutex
	calls  int
	entity string
	event  models.LocationEvent
}

func (r *recordingIngestor) Ingest(entityID string, event models.LocationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.entity = entityID
	r.event = event
	return nil
}

func newTestSource(ingestor Ingestor, pool *utils.WorkerPool) *Source {
	return NewSource("tcp://localhost:1883", "test", "relay/location", 1, "",
		ingestor, pool, file.NewFileService(), zerolog.Nop())
}

// TestSource_HandleMessage_ValidPayload verifies the topic's last level is
// the entity ID and the payload reaches the core.
func TestSource_HandleMessage_ValidPayload(t *testing.T) {
	ingestor := &recordingIngestor{}
	pool := utils.NewWorkerPool(2)
	source := newTestSource(ingestor, pool)

	source.handleMessage(nil, &fakeMessage{
		topic:   "relay/location/d1",
		payload: []byte(`{"latitude":52.0,"longitude":-0.1,"timestamp":1000}`),
	})
	pool.Shutdown() // drain the queue

	require.Equal(t, 1, ingestor.calls)
	assert.Equal(t, "d1", ingestor.entity)
	assert.Equal(t, models.LocationEvent{Latitude: 52.0, Longitude: -0.1, Timestamp: 1000}, ingestor.event)
}

// TestSource_HandleMessage_MalformedPayloadSkipped verifies bad payloads are
// dropped before the core is involved.
func TestSource_HandleMessage_MalformedPayloadSkipped(t *testing.T) {
	ingestor := &recordingIngestor{}
	pool := utils.NewWorkerPool(2)
	source := newTestSource(ingestor, pool)

	source.handleMessage(nil, &fakeMessage{
		topic:   "relay/location/d1",
		payload: []byte(`not json`),
	})
	source.handleMessage(nil, &fakeMessage{
		topic:   "relay/location/d1",
		payload: []byte(`{"latitude":99.0,"longitude":-0.1,"timestamp":1000}`),
	})
	pool.Shutdown()

	assert.Zero(t, ingestor.calls)
}

// TestSource_Stop_NotRunning verifies the lifecycle guard.
func TestSource_Stop_NotRunning(t *testing.T) {
	pool := utils.NewWorkerPool(1)
	defer pool.Shutdown()
	source := newTestSource(&recordingIngestor{}, pool)

	err := source.Stop()
	require.Error(t, err)
	assert.Equal(t, "mqtt source is not running", err.Error())
}
