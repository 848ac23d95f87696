package app_test

import (
	"testing"
	"time"

	"role_mention_bot/internal/app"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_SetDiscoveryChannel(t *testing.T) {
	t.Parallel()

	sr := newMemServerRepo()
	svc := app.NewAdminService(sr, newMemMentionRepo(), time.UTC, 8, 9)

	_, err := svc.SetDiscoveryChannel(t.Context(), "g1", "c1")
	require.NoError(t, err)
	_, err = svc.SetDiscoveryChannel(t.Context(), "g1", "c2")
	require.NoError(t, err)

	cfg, err := sr.GetByGuildID(t.Context(), "g1")
	require.NoError(t, err)
	channelID, ok := cfg.ChannelID()
	assert.True(t, ok)
	assert.Equal(t, "c2", channelID)

	_, err = svc.SetDiscoveryChannel(t.Context(), "g1", "")
	assert.ErrorIs(t, err, app.ErrMissingInput)
}

func TestAdminService_ScheduleMention(t *testing.T) {
	t.Parallel()

	mr := newMemMentionRepo()
	svc := app.NewAdminService(newMemServerRepo(), mr, time.UTC, 8, 9)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	m, dueOn, err := svc.ScheduleMention(t.Context(), "111", "222", yesterday)
	require.NoError(t, err)
	assert.Equal(t, yesterday, m.DateKey())
	assert.Equal(t, time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02"), dueOn.Format("2006-01-02"))

	due, err := mr.ListByDate(t.Context(), day(yesterday))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.False(t, due[0].IsDelivered())
}

func TestAdminService_ScheduleMentionValidation(t *testing.T) {
	t.Parallel()

	svc := app.NewAdminService(newMemServerRepo(), newMemMentionRepo(), time.UTC, 8, 9)

	_, _, err := svc.ScheduleMention(t.Context(), "111", "222", "03/02/2024")
	assert.ErrorIs(t, err, app.ErrInvalidDate)

	_, _, err = svc.ScheduleMention(t.Context(), "111", "", "")
	assert.ErrorIs(t, err, app.ErrMissingInput)

	old := time.Now().UTC().AddDate(0, 0, -9).Format("2006-01-02")
	_, _, err = svc.ScheduleMention(t.Context(), "111", "222", old)
	assert.ErrorIs(t, err, app.ErrDateTooOld)

	m, _, err := svc.ScheduleMention(t.Context(), "111", "222", "")
	require.NoError(t, err)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), m.DateKey())
}
