package core

import (
	"github.com/stretchr/testify/mock"

	"github.com/zslim1101/location-relay/internal/models"
)

// MockPushSink is a testify mock for the outbound push boundary.
type MockPushSink struct {
	mock.Mock
}

func (m *MockPushSink) PushEvent(connectionID string, push models.LivePush) error {
	args := m.Called(connectionID, push)
	return args.Error(0)
}

func (m *MockPushSink) PushBackfill(connectionID string, push models.BackfillPush) error {
	args := m.Called(connectionID, push)
	return args.Error(0)
}
