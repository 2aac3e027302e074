package mocks

import (
	"github.com/stretchr/testify/mock"

	"presence-relay/internal/models"
)

type HistoryMock struct {
	mock.Mock
}

func (m *HistoryMock) AppendMessage(draft models.MessageDraft) models.Message {
	args := m.Called(draft)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg
}

func (m *HistoryMock) GetMessages(a, b string) []models.Message {
	args := m.Called(a, b)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs
}

func (m *HistoryMock) DeleteConversationsContaining(id string) int {
	args := m.Called(id)
	return args.Int(0)
}

type PresenceMock struct {
	mock.Mock
}

func (m *PresenceMock) AddUser(id string, profile models.Profile) {
	m.Called(id, profile)
}

func (m *PresenceMock) RemoveUser(id string) {
	m.Called(id)
}

func (m *PresenceMock) GetUsers() []models.UserRecord {
	args := m.Called()
	var users []models.UserRecord
	if val := args.Get(0); val != nil {
		users = val.([]models.UserRecord)
	}
	return users
}

func (m *PresenceMock) SetOnline(id string, online bool) {
	m.Called(id, online)
}

func (m *PresenceMock) SetUnread(id string, unread bool) {
	m.Called(id, unread)
}
