package app_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"role_mention_bot/internal/domain/departure"
	"role_mention_bot/internal/domain/discord"
	"role_mention_bot/internal/domain/mention"
	"role_mention_bot/internal/domain/server"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
)

func newTestLogger(t *testing.T) (*logrus.Entry, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

func day(s string) time.Time {
	d, err := time.ParseInLocation(mention.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

// memMentionRepo is an in-memory mention.Repository.
type memMentionRepo struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[int64]*mention.PendingMention
	listErr   error
	markErr   error
	deleteErr error
	marked    []int64
}

func newMemMentionRepo() *memMentionRepo {
	return &memMentionRepo{rows: make(map[int64]*mention.PendingMention)}
}

func (r *memMentionRepo) seed(guildID, roleID, date string, delivered *bool) *mention.PendingMention {
	m := &mention.PendingMention{GuildID: guildID, RoleID: roleID, Date: day(date)}
	if delivered != nil {
		m.Delivered.Valid = true
		m.Delivered.Bool = *delivered
	}
	_ = r.Create(context.Background(), m)
	return m
}

func (r *memMentionRepo) get(id int64) *mention.PendingMention {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

func (r *memMentionRepo) Create(_ context.Context, m *mention.PendingMention) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = time.Now()
	cp := *m
	r.rows[m.ID] = &cp
	return nil
}

func (r *memMentionRepo) ListByDate(_ context.Context, date time.Time) ([]*mention.PendingMention, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	key := date.Format(mention.DateLayout)
	out := make([]*mention.PendingMention, 0)
	for _, m := range r.rows {
		if m.DateKey() == key {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memMentionRepo) MarkDelivered(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markErr != nil {
		return r.markErr
	}
	m, ok := r.rows[id]
	if !ok {
		return mention.ErrNotFound
	}
	m.Delivered.Valid = true
	m.Delivered.Bool = true
	r.marked = append(r.marked, id)
	return nil
}

func (r *memMentionRepo) DeleteByDate(_ context.Context, date time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	key := date.Format(mention.DateLayout)
	var n int64
	for id, m := range r.rows {
		if m.DateKey() == key {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

// memServerRepo is an in-memory server.Repository.
type memServerRepo struct {
	configs map[string]*server.Config
}

func newMemServerRepo() *memServerRepo {
	return &memServerRepo{configs: make(map[string]*server.Config)}
}

func (r *memServerRepo) withChannel(guildID, channelID string) *memServerRepo {
	cfg := &server.Config{GuildID: guildID}
	if channelID != "" {
		cfg.DiscoveryChannelID.String = channelID
		cfg.DiscoveryChannelID.Valid = true
	}
	r.configs[guildID] = cfg
	return r
}

func (r *memServerRepo) GetByGuildID(_ context.Context, guildID string) (*server.Config, error) {
	cfg, ok := r.configs[guildID]
	if !ok {
		return nil, server.ErrNotFound
	}
	return cfg, nil
}

func (r *memServerRepo) Upsert(_ context.Context, cfg *server.Config) error {
	r.configs[cfg.GuildID] = cfg
	return nil
}

// memDepartureRepo is an in-memory departure.Repository.
type memDepartureRepo struct {
	mu        sync.Mutex
	nextID    int64
	rows      []*departure.Departure
	deleteErr error
	takeErr   error
	threshold time.Time
}

func (r *memDepartureRepo) Create(_ context.Context, d *departure.Departure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	d.ID = r.nextID
	cp := *d
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *memDepartureRepo) TakeLatest(_ context.Context, userID, guildID string) (*departure.Departure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.takeErr != nil {
		return nil, r.takeErr
	}
	idx := -1
	for i, d := range r.rows {
		if d.UserID == userID && d.GuildID == guildID && (idx < 0 || d.DepartedAt.After(r.rows[idx].DepartedAt)) {
			idx = i
		}
	}
	if idx < 0 {
		return nil, departure.ErrNotFound
	}
	d := r.rows[idx]
	r.rows = append(r.rows[:idx], r.rows[idx+1:]...)
	return d, nil
}

func (r *memDepartureRepo) DeleteOlderThan(_ context.Context, threshold time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threshold = threshold
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	kept := r.rows[:0]
	var n int64
	for _, d := range r.rows {
		if d.DepartedAt.Before(threshold) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	r.rows = kept
	return n, nil
}

// mockDiscord is a testify mock of discord.Client.
type mockDiscord struct {
	mock.Mock
}

func (m *mockDiscord) WaitReady(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockDiscord) Guild(ctx context.Context, guildID string) (*discord.Guild, error) {
	args := m.Called(ctx, guildID)
	g, _ := args.Get(0).(*discord.Guild)
	return g, args.Error(1)
}

func (m *mockDiscord) GuildChannel(ctx context.Context, guildID, channelID string) (*discord.Channel, error) {
	args := m.Called(ctx, guildID, channelID)
	c, _ := args.Get(0).(*discord.Channel)
	return c, args.Error(1)
}

func (m *mockDiscord) GuildRole(guildID, roleID string) (*discord.Role, bool) {
	args := m.Called(guildID, roleID)
	r, _ := args.Get(0).(*discord.Role)
	return r, args.Bool(1)
}

func (m *mockDiscord) SendMessage(ctx context.Context, channelID, content string, mentionRoleIDs []string) (*discord.Message, error) {
	args := m.Called(ctx, channelID, content, mentionRoleIDs)
	msg, _ := args.Get(0).(*discord.Message)
	return msg, args.Error(1)
}

func (m *mockDiscord) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return m.Called(ctx, channelID, messageID).Error(0)
}

func (m *mockDiscord) DeleteRole(ctx context.Context, guildID, roleID, reason string) error {
	return m.Called(ctx, guildID, roleID, reason).Error(0)
}

func (m *mockDiscord) SendDirectMessage(ctx context.Context, userID, content string) error {
	return m.Called(ctx, userID, content).Error(0)
}
