package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chats/internal/common"
	"chats/internal/models"
)

// --- Mock MessageStore ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindOrCreateUser(ctx context.Context, username string) (*models.User, bool, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *mockStore) FindUserByUsername(ctx context.Context, username string, activeAt time.Time) (*models.User, error) {
	args := m.Called(ctx, username, activeAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockStore) FindMessageByID(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *mockStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockStore) SetExpiration(ctx context.Context, ids []string, at time.Time) (int64, error) {
	args := m.Called(ctx, ids, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

func TestCreateMessage_InvalidInputNeverReachesStore(t *testing.T) {
	store := new(mockStore)
	svc := NewMessageService(store, nil, WithClock(newClock()))

	_, err := svc.CreateMessage(context.Background(), CreateMessageInput{Text: "hi"})
	assert.Error(t, err)
	_, err = svc.CreateMessage(context.Background(), CreateMessageInput{Username: "bob"})
	assert.Error(t, err)

	store.AssertNotCalled(t, "FindOrCreateUser", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestCreateMessage_PersistsComputedExpiry(t *testing.T) {
	clock := newClock()
	store := new(mockStore)
	svc := NewMessageService(store, nil, WithClock(clock), WithDefaultTimeout(90*time.Second))
	ctx := context.Background()

	store.On("FindOrCreateUser", ctx, "bob").Return(&models.User{ID: 7, Username: "bob"}, false, nil)
	store.On("CreateMessage", ctx, mock.MatchedBy(func(msg *models.Message) bool {
		return msg.UserID == 7 &&
			msg.Text == "hello" &&
			msg.ExpirationDate.Equal(clock.Now().Add(90*time.Second)) &&
			msg.CreatedAt.Equal(clock.Now())
	})).Return(nil)

	id, err := svc.CreateMessage(ctx, CreateMessageInput{Username: "bob", Text: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	store.AssertExpectations(t)
}

func TestListMessages_ConsumesExactlyWhatWasReturned(t *testing.T) {
	clock := newClock()
	store := new(mockStore)
	svc := NewMessageService(store, nil, WithClock(clock))
	ctx := context.Background()

	user := &models.User{ID: 1, Username: "bob", Messages: []models.Message{
		{ID: "a", Text: "first", UserID: 1},
		{ID: "b", Text: "second", UserID: 1},
	}}
	store.On("FindUserByUsername", ctx, "bob", clock.Now()).Return(user, nil)
	store.On("SetExpiration", ctx, []string{"a", "b"}, clock.Now()).Return(int64(2), nil)

	list, err := svc.ListMessagesForUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []models.MessageSummary{{ID: "a", Text: "first"}, {ID: "b", Text: "second"}}, list)
	store.AssertExpectations(t)
}

func TestListMessages_ConsumesAtMillisecondPrecision(t *testing.T) {
	clock := newClock()
	clock.now = clock.now.Add(1500 * time.Microsecond)
	readAt := clock.now.Truncate(time.Millisecond)
	store := new(mockStore)
	svc := NewMessageService(store, nil, WithClock(clock))
	ctx := context.Background()

	user := &models.User{ID: 1, Username: "bob", Messages: []models.Message{{ID: "a", Text: "first", UserID: 1}}}
	store.On("FindUserByUsername", ctx, "bob", readAt).Return(user, nil)
	store.On("SetExpiration", ctx, []string{"a"}, readAt).Return(int64(1), nil)

	_, err := svc.ListMessagesForUsername(ctx, "bob")
	require.NoError(t, err)
	store.AssertExpectations(t)
	assert.False(t, readAt.After(clock.Now()))
}

func TestListMessages_NothingToConsume(t *testing.T) {
	clock := newClock()
	store := new(mockStore)
	svc := NewMessageService(store, nil, WithClock(clock))
	ctx := context.Background()

	store.On("FindUserByUsername", ctx, "bob", clock.Now()).Return(&models.User{ID: 1, Username: "bob"}, nil)

	list, err := svc.ListMessagesForUsername(ctx, "bob")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	store.AssertNotCalled(t, "SetExpiration", mock.Anything, mock.Anything, mock.Anything)
}

func TestListMessages_ConsumeFailureIsServerError(t *testing.T) {
	clock := newClock()
	store := new(mockStore)
	svc := NewMessageService(store, nil, WithClock(clock))
	ctx := context.Background()

	user := &models.User{ID: 1, Username: "bob", Messages: []models.Message{{ID: "a", Text: "first", UserID: 1}}}
	store.On("FindUserByUsername", ctx, "bob", clock.Now()).Return(user, nil)
	store.On("SetExpiration", ctx, []string{"a"}, clock.Now()).Return(int64(0), errors.New("deadlock detected"))

	_, err := svc.ListMessagesForUsername(ctx, "bob")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, common.StatusCode(err))
	assert.Contains(t, err.Error(), "deadlock detected")
}

func TestHealth_ReportsStoreFailure(t *testing.T) {
	store := new(mockStore)
	svc := NewMessageService(store, nil)
	ctx := context.Background()

	store.On("Ping", ctx).Return(errors.New("connection refused")).Once()
	store.On("Ping", ctx).Return(nil).Once()

	assert.ErrorContains(t, svc.Health(ctx), "store: connection refused")
	assert.NoError(t, svc.Health(ctx))
}
