package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chats/internal/common"
	"chats/internal/logger"
	"chats/internal/metrics"
	"chats/internal/models"
)

const DefaultTimeout = 60 * time.Second

// MaxTimeoutSeconds is the longest timeout a time.Duration can hold.
const MaxTimeoutSeconds = float64(math.MaxInt64 / int64(time.Second))

// MessageStore is the persistence contract. Lookups return a nil record, not
// an error, when nothing matches.
type MessageStore interface {
	FindOrCreateUser(ctx context.Context, username string) (*models.User, bool, error)
	// FindUserByUsername loads the user with the messages whose expiration
	// date is at or after activeAt, in insertion order.
	FindUserByUsername(ctx context.Context, username string, activeAt time.Time) (*models.User, error)
	FindMessageByID(ctx context.Context, id string) (*models.Message, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	SetExpiration(ctx context.Context, ids []string, at time.Time) (int64, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// MessageCache keeps by-id snapshots. Failures are logged and never fail a request.
type MessageCache interface {
	StoreMessage(ctx context.Context, id string, detail models.MessageDetail) error
	LoadMessage(ctx context.Context, id string) (*models.MessageDetail, error)
	Evict(ctx context.Context, ids ...string) error
	Ping(ctx context.Context) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type CreateMessageInput struct {
	Username string
	Text     string
	// Timeout in seconds; nil or zero selects the default.
	Timeout *float64
}

type MessageService struct {
	repo           MessageStore
	cache          MessageCache
	clock          Clock
	defaultTimeout time.Duration
	newID          func() string
}

type Option func(*MessageService)

func WithClock(c Clock) Option {
	return func(s *MessageService) { s.clock = c }
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(s *MessageService) {
		if d > 0 {
			s.defaultTimeout = d
		}
	}
}

// NewMessageService wires the lifecycle operations. cache may be nil.
func NewMessageService(repo MessageStore, cache MessageCache, opts ...Option) *MessageService {
	s := &MessageService{
		repo:           repo,
		cache:          cache,
		clock:          SystemClock{},
		defaultTimeout: DefaultTimeout,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateMessage stores text for username, creating the user on first use,
// and returns the new message id.
func (s *MessageService) CreateMessage(ctx context.Context, in CreateMessageInput) (string, error) {
	if in.Username == "" {
		return "", common.Validation(`Missing required field: "username"`)
	}
	if in.Text == "" {
		return "", common.Validation(`Missing required field: "text"`)
	}
	timeout, err := s.resolveTimeout(in.Timeout)
	if err != nil {
		return "", err
	}

	user, created, err := s.repo.FindOrCreateUser(ctx, in.Username)
	if err != nil {
		return "", fmt.Errorf("find or create user: %w", err)
	}
	if created {
		metrics.UsersCreated.Inc()
		logger.Debug("user created", zap.String("username", user.Username))
	}

	now := s.clock.Now()
	msg := &models.Message{
		ID:             s.newID(),
		Text:           in.Text,
		UserID:         user.ID,
		ExpirationDate: now.Add(timeout),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}
	metrics.MessagesCreated.Inc()

	if s.cache != nil {
		detail := models.MessageDetail{Username: user.Username, Text: msg.Text, ExpirationDate: msg.ExpirationDate}
		if err := s.cache.StoreMessage(ctx, msg.ID, detail); err != nil {
			logger.Warn("failed to cache message", zap.String("id", msg.ID), zap.Error(err))
		}
	}
	return msg.ID, nil
}

func (s *MessageService) resolveTimeout(seconds *float64) (time.Duration, error) {
	if seconds == nil || *seconds == 0 {
		return s.defaultTimeout, nil
	}
	if *seconds < 0 || math.IsNaN(*seconds) {
		return 0, common.Validation(`"timeout" must be a positive number`)
	}
	if *seconds > MaxTimeoutSeconds {
		return 0, common.Validation(fmt.Sprintf(`"timeout" must be at most %.0f seconds`, MaxTimeoutSeconds))
	}
	return time.Duration(*seconds * float64(time.Second)), nil
}

// GetMessageByID returns a message regardless of whether it has expired.
func (s *MessageService) GetMessageByID(ctx context.Context, id string) (*models.MessageDetail, error) {
	if id == "" {
		return nil, common.Validation(`"id" must be string`)
	}

	if s.cache != nil {
		cached, err := s.cache.LoadMessage(ctx, id)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			logger.Warn("failed to read cached message", zap.String("id", id), zap.Error(err))
		case cached != nil:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	msg, err := s.repo.FindMessageByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find message: %w", err)
	}
	if msg == nil {
		return nil, common.NotFound("No chat found for chat id")
	}

	detail := &models.MessageDetail{Text: msg.Text, ExpirationDate: msg.ExpirationDate}
	if msg.Owner != nil {
		detail.Username = msg.Owner.Username
	}
	if s.cache != nil {
		if err := s.cache.StoreMessage(ctx, id, *detail); err != nil {
			logger.Warn("failed to cache message", zap.String("id", id), zap.Error(err))
		}
	}
	return detail, nil
}

// ListMessagesForUsername returns the unexpired messages of username and
// marks every one of them expired, so a repeated call does not return them
// again. The read and the update are not atomic.
func (s *MessageService) ListMessagesForUsername(ctx context.Context, username string) ([]models.MessageSummary, error) {
	if username == "" {
		return nil, common.Validation(`"username" must be string`)
	}

	// mysql DATETIME(3) rounds to the millisecond; a consumed expiry must not
	// be stored after the instant it was read at.
	now := s.clock.Now().Truncate(time.Millisecond)
	user, err := s.repo.FindUserByUsername(ctx, username, now)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, common.NotFound("No user found for username")
	}

	summaries := make([]models.MessageSummary, 0, len(user.Messages))
	ids := make([]string, 0, len(user.Messages))
	for _, m := range user.Messages {
		summaries = append(summaries, models.MessageSummary{ID: m.ID, Text: m.Text})
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		return summaries, nil
	}

	affected, err := s.repo.SetExpiration(ctx, ids, now)
	if err != nil {
		return nil, fmt.Errorf("consume messages: %w", err)
	}
	metrics.MessagesConsumed.Add(float64(affected))

	if s.cache != nil {
		if err := s.cache.Evict(ctx, ids...); err != nil {
			logger.Warn("failed to evict consumed messages", zap.Strings("ids", ids), zap.Error(err))
		}
	}
	return summaries, nil
}

// PurgeExpired deletes messages that expired more than retention ago.
func (s *MessageService) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-retention)
	n, err := s.repo.PurgeExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expired messages: %w", err)
	}
	metrics.MessagesPurged.Add(float64(n))
	return n, nil
}

// Health pings the store and, when configured, the cache.
func (s *MessageService) Health(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}
