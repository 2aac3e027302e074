package cleanup

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"presence-relay/internal/conversations"
	"presence-relay/internal/mocks"
	"presence-relay/internal/models"
	"presence-relay/internal/presence"
)

type auditCall struct {
	text   string
	fields map[string]any
}

type fakeAuditor struct {
	calls []auditCall
}

func (f *fakeAuditor) Emit(_ context.Context, _, text, _ string, _ *string, fields map[string]any) {
	f.calls = append(f.calls, auditCall{text: text, fields: fields})
}

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

func TestSweepRemovesOfflineUserAndSharedConversation(t *testing.T) {
	reg := presence.NewRegistry()
	store := conversations.NewStore()
	reg.AddUser("a", models.Profile{DisplayName: "A"})
	reg.AddUser("b", models.Profile{DisplayName: "B"})
	reg.SetOnline("b", false)
	store.AppendMessage(models.MessageDraft{SenderID: "a", ReceiverID: "b", Body: "hi"})
	auditor := &fakeAuditor{}

	res := NewScheduler(reg, store, auditor, time.Hour, testLogger()).Sweep(context.Background())

	assert.Equal(t, Result{UsersRemoved: 1, ConversationsRemoved: 1}, res)
	_, ok := reg.GetUser("b")
	assert.False(t, ok)
	user, ok := reg.GetUser("a")
	require.True(t, ok)
	assert.True(t, user.IsOnline)
	// The online participant loses the shared history as well.
	assert.Empty(t, store.GetMessages("a", "b"))

	require.Len(t, auditor.calls, 1)
	assert.Equal(t, 1, auditor.calls[0].fields["users_removed"])
}

func TestSweepLeavesOnlineUsersAndTheirConversations(t *testing.T) {
	reg := presence.NewRegistry()
	store := conversations.NewStore()
	reg.AddUser("a", models.Profile{})
	reg.AddUser("c", models.Profile{})
	store.AppendMessage(models.MessageDraft{SenderID: "a", ReceiverID: "c"})

	res := NewScheduler(reg, store, nil, time.Hour, testLogger()).Sweep(context.Background())

	assert.Equal(t, Result{}, res)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 1, store.Len())
}

func TestSweepContinuesAfterPerUserFailure(t *testing.T) {
	pres := new(mocks.PresenceMock)
	hist := new(mocks.HistoryMock)
	pres.On("GetUsers").Return([]models.UserRecord{
		{ID: "bad", IsOnline: false},
		{ID: "good", IsOnline: false},
		{ID: "online", IsOnline: true},
	}).Once()
	hist.On("DeleteConversationsContaining", "bad").Panic("corrupt record").Once()
	hist.On("DeleteConversationsContaining", "good").Return(2).Once()
	pres.On("RemoveUser", "good").Once()

	res := NewScheduler(pres, hist, nil, time.Hour, testLogger()).Sweep(context.Background())

	assert.Equal(t, Result{UsersRemoved: 1, ConversationsRemoved: 2, Failures: 1}, res)
	pres.AssertExpectations(t)
	hist.AssertExpectations(t)
	pres.AssertNotCalled(t, "RemoveUser", "bad")
}

func TestSweepSkipsWhilePassRunning(t *testing.T) {
	pres := new(mocks.PresenceMock)
	s := NewScheduler(pres, new(mocks.HistoryMock), nil, time.Hour, testLogger())

	s.pass.Lock()
	res := s.Sweep(context.Background())
	s.pass.Unlock()

	assert.True(t, res.Skipped)
	pres.AssertNotCalled(t, "GetUsers")
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	pres := new(mocks.PresenceMock)
	pres.On("GetUsers").Return([]models.UserRecord{{ID: "x"}}).Once()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewScheduler(pres, new(mocks.HistoryMock), nil, time.Hour, testLogger()).Sweep(ctx)

	assert.Equal(t, 0, res.UsersRemoved)
	pres.AssertNotCalled(t, "RemoveUser", mock.Anything)
}

func TestRunSweepsPeriodicallyAndStopsOnCancel(t *testing.T) {
	reg := presence.NewRegistry()
	store := conversations.NewStore()
	reg.AddUser("b", models.Profile{})
	reg.SetOnline("b", false)
	s := NewScheduler(reg, store, nil, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestNewSchedulerDefaultsInterval(t *testing.T) {
	s := NewScheduler(presence.NewRegistry(), conversations.NewStore(), nil, 0, testLogger())
	assert.Equal(t, DefaultInterval, s.interval)
}
