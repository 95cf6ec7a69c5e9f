package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

func TestStorage_Membership(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(s)

	u := factory.CreateUser(t, "member")
	g := factory.CreateGroup(t, "hiking", false)

	ok, err := s.HasMembership(ctx, u.ID, g.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	created, err := s.AddMembership(ctx, u.ID, g.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.AddMembership(ctx, u.ID, g.ID)
	require.NoError(t, err)
	assert.False(t, created, "second join must not create a duplicate")

	members, err := s.ListMembersForGroup(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "member", members[0].Username)

	memberships, err := s.ListMembershipsForUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, g.ID, memberships[0].GroupID)

	removed, err := s.RemoveMembership(ctx, u.ID, g.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveMembership(ctx, u.ID, g.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.AddMembership(ctx, u.ID, 424242)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_ConcurrentJoin(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(s)

	u := factory.CreateUser(t, "racer")
	g := factory.CreateGroup(t, "runners", false)

	var wg sync.WaitGroup
	var wins atomic.Int32
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := s.AddMembership(ctx, u.ID, g.ID)
			assert.NoError(t, err)
			if created {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	members, err := s.ListMembersForGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestStorage_GroupsQueries(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(s)

	u := factory.CreateUser(t, "explorer")
	free := factory.CreateGroup(t, "free", false)
	premium := factory.CreateGroup(t, "premium", true)
	joined := factory.CreateGroup(t, "joined", false)
	_, err := s.AddMembership(ctx, u.ID, joined.ID)
	require.NoError(t, err)

	list, err := s.ListGroups(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, premium.ID, list[0].ID)

	mine, err := s.ListGroupsForUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, joined.ID, mine[0].ID)

	suggested, err := s.ListSuggestedGroups(ctx, u.ID, false, 5)
	require.NoError(t, err)
	require.Len(t, suggested, 1)
	assert.Equal(t, free.ID, suggested[0].ID)

	suggested, err = s.ListSuggestedGroups(ctx, u.ID, true, 5)
	require.NoError(t, err)
	assert.Len(t, suggested, 2)

	makePremium := true
	updated, err := s.UpdateGroup(ctx, free.ID, models.GroupPatch{IsPremium: &makePremium})
	require.NoError(t, err)
	assert.True(t, updated.IsPremium)
	assert.Equal(t, "free", updated.Name)

	require.NoError(t, s.DeleteGroup(ctx, free.ID))
	_, err = s.GetGroup(ctx, free.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteGroup(ctx, free.ID), storage.ErrNotFound)
}

func TestStorage_ForumsAndPosts(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(s)

	u := factory.CreateUser(t, "writer")
	f := factory.CreateForum(t, "general", false)

	post, err := s.CreatePost(ctx, models.ForumPost{ForumID: f.ID, UserID: u.ID, Title: "hello", Content: "world"})
	require.NoError(t, err)
	_, err = s.CreateReply(ctx, models.ForumReply{PostID: post.ID, UserID: u.ID, Content: "first"})
	require.NoError(t, err)
	_, err = s.CreateReply(ctx, models.ForumReply{PostID: post.ID, UserID: u.ID, Content: "second"})
	require.NoError(t, err)

	posts, err := s.ListPostViews(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, 2, posts[0].ReplyCount)
	require.NotNil(t, posts[0].User)
	assert.Equal(t, "writer", posts[0].User.Username)

	replies, err := s.ListReplyViews(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "first", replies[0].Content)

	_, err = s.CreatePost(ctx, models.ForumPost{ForumID: 9999, UserID: u.ID, Title: "x", Content: "y"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_Calls(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(s)

	u := factory.CreateUser(t, "caller")
	free := factory.CreateGroup(t, "free", false)
	premium := factory.CreateGroup(t, "premium", true)
	for _, g := range []*models.Group{free, premium} {
		_, err := s.AddMembership(ctx, u.ID, g.ID)
		require.NoError(t, err)
	}

	now := time.Now()
	for _, g := range []*models.Group{free, premium} {
		_, err := s.CreateCall(ctx, models.ZoomCall{
			GroupID:   g.ID,
			Title:     g.Name + " call",
			StartTime: now.Add(time.Hour),
			EndTime:   now.Add(2 * time.Hour),
			ZoomLink:  "https://zoom.us/j/1",
		})
		require.NoError(t, err)
	}

	upcoming, err := s.ListUpcomingCallsForUser(ctx, u.ID, now, false)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, free.ID, upcoming[0].GroupID)

	upcoming, err = s.ListUpcomingCallsForUser(ctx, u.ID, now, true)
	require.NoError(t, err)
	assert.Len(t, upcoming, 2)

	calls, err := s.ListCallsForGroup(ctx, free.ID)
	require.NoError(t, err)
	require.Len(t, calls, 1)

	added, err := s.AddCallParticipant(ctx, calls[0].ID, u.ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.AddCallParticipant(ctx, calls[0].ID, u.ID)
	require.NoError(t, err)
	assert.False(t, added)

	calls, err = s.ListCallsForGroup(ctx, free.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, calls[0].ParticipantCount)
}
