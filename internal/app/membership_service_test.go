package app_test

import (
	"testing"
	"time"

	"role_mention_bot/internal/app"
	"role_mention_bot/internal/domain/departure"
	"role_mention_bot/internal/domain/discord"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMembershipService(t *testing.T, dr *memDepartureRepo, dc *mockDiscord, welcome string) *app.MembershipService {
	t.Helper()
	logger, _ := newTestLogger(t)
	return app.NewMembershipService(dr, dc, logger, welcome)
}

func TestHandleLeave_RecordsDeparture(t *testing.T) {
	t.Parallel()

	dr := &memDepartureRepo{}
	svc := newMembershipService(t, dr, &mockDiscord{}, "")

	before := time.Now()
	err := svc.HandleLeave(t.Context(), discord.Member{UserID: "u1", GuildID: "g1"})

	require.NoError(t, err)
	require.Len(t, dr.rows, 1)
	assert.Equal(t, "u1", dr.rows[0].UserID)
	assert.Equal(t, "g1", dr.rows[0].GuildID)
	assert.False(t, dr.rows[0].DepartedAt.Before(before))
}

func TestHandleLeave_IgnoresBots(t *testing.T) {
	t.Parallel()

	dr := &memDepartureRepo{}
	svc := newMembershipService(t, dr, &mockDiscord{}, "")

	require.NoError(t, svc.HandleLeave(t.Context(), discord.Member{UserID: "b1", GuildID: "g1", Bot: true}))
	assert.Empty(t, dr.rows)
}

func TestHandleJoin_ReturningMemberConsumesDeparture(t *testing.T) {
	t.Parallel()

	dr := &memDepartureRepo{}
	now := time.Now()
	require.NoError(t, dr.Create(t.Context(), &departure.Departure{UserID: "u1", GuildID: "g1", DepartedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, dr.Create(t.Context(), &departure.Departure{UserID: "u1", GuildID: "g1", DepartedAt: now.Add(-time.Hour)}))
	require.NoError(t, dr.Create(t.Context(), &departure.Departure{UserID: "u1", GuildID: "g2", DepartedAt: now}))

	svc := newMembershipService(t, dr, &mockDiscord{}, "")
	returning, err := svc.HandleJoin(t.Context(), discord.Member{UserID: "u1", GuildID: "g1"})

	require.NoError(t, err)
	assert.True(t, returning)
	require.Len(t, dr.rows, 2)
	assert.Equal(t, now.Add(-48*time.Hour), dr.rows[0].DepartedAt)
	assert.Equal(t, "g2", dr.rows[1].GuildID)
}

func TestHandleJoin_NewMember(t *testing.T) {
	t.Parallel()

	svc := newMembershipService(t, &memDepartureRepo{}, &mockDiscord{}, "")
	returning, err := svc.HandleJoin(t.Context(), discord.Member{UserID: "u1", GuildID: "g1"})

	require.NoError(t, err)
	assert.False(t, returning)
}

func TestHandleJoin_SendsWelcomeMessage(t *testing.T) {
	t.Parallel()

	dc := &mockDiscord{}
	dc.On("SendDirectMessage", mock.Anything, "u1", "Welcome <@u1>!").Return(nil).Once()

	svc := newMembershipService(t, &memDepartureRepo{}, dc, "Welcome {mention}!")
	_, err := svc.HandleJoin(t.Context(), discord.Member{UserID: "u1", GuildID: "g1"})

	require.NoError(t, err)
	dc.AssertExpectations(t)
}

func TestHandleJoin_WelcomeFailures(t *testing.T) {
	t.Parallel()

	t.Run("dms disabled", func(t *testing.T) {
		t.Parallel()

		dc := &mockDiscord{}
		dc.On("SendDirectMessage", mock.Anything, "u1", "hi").Return(discord.ErrForbidden)

		svc := newMembershipService(t, &memDepartureRepo{}, dc, "hi")
		_, err := svc.HandleJoin(t.Context(), discord.Member{UserID: "u1", GuildID: "g1"})
		assert.NoError(t, err)
	})

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()

		dc := &mockDiscord{}
		dc.On("SendDirectMessage", mock.Anything, "u1", "hi").Return(errNetwork)

		svc := newMembershipService(t, &memDepartureRepo{}, dc, "hi")
		_, err := svc.HandleJoin(t.Context(), discord.Member{UserID: "u1", GuildID: "g1"})
		assert.ErrorIs(t, err, errNetwork)
	})

	t.Run("lookup error still welcomes", func(t *testing.T) {
		t.Parallel()

		dc := &mockDiscord{}
		dc.On("SendDirectMessage", mock.Anything, "u1", "hi").Return(nil).Once()

		svc := newMembershipService(t, &memDepartureRepo{takeErr: errNetwork}, dc, "hi")
		returning, err := svc.HandleJoin(t.Context(), discord.Member{UserID: "u1", GuildID: "g1"})
		require.NoError(t, err)
		assert.False(t, returning)
		dc.AssertExpectations(t)
	})
}

func TestHandleJoin_IgnoresBots(t *testing.T) {
	t.Parallel()

	dr := &memDepartureRepo{}
	require.NoError(t, dr.Create(t.Context(), &departure.Departure{UserID: "b1", GuildID: "g1", DepartedAt: time.Now()}))
	dc := &mockDiscord{}

	svc := newMembershipService(t, dr, dc, "hi")
	returning, err := svc.HandleJoin(t.Context(), discord.Member{UserID: "b1", GuildID: "g1", Bot: true})

	require.NoError(t, err)
	assert.False(t, returning)
	assert.Len(t, dr.rows, 1)
	dc.AssertNotCalled(t, "SendDirectMessage", mock.Anything, mock.Anything, mock.Anything)
}
