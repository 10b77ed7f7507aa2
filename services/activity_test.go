package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/teyvattales/models"
)

func TestRecent_ResolvesTitlesByKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	bobsPost := f.post(t, bob, "Bob journey", "tag", "body")
	mine := f.post(t, alice, "Alice tale", "tag", "body")
	_, err := f.comments.Add(ctx, alice.ID, bobsPost.ID, "great")
	require.NoError(t, err)
	require.NoError(t, f.posts.Delete(ctx, alice.ID, mine.ID))
	require.NoError(t, f.activity.Append(ctx, alice.ID, models.ActionKind("Like post"), mine.ID, false))

	views, err := f.activity.Recent(ctx, alice.ID, RecentActivityLimit)
	require.NoError(t, err)
	require.Len(t, views, 4)

	byKind := map[models.ActionKind]string{}
	for _, v := range views {
		byKind[v.Kind] = v.PostTitle
	}
	assert.Equal(t, "Alice tale", byKind[models.ActionCreatePost])
	// Soft-deleted posts still resolve
	assert.Equal(t, "Alice tale", byKind[models.ActionDeletePost])
	assert.Equal(t, "Bob journey", byKind[models.ActionComment])
	assert.Equal(t, models.UnknownTitle, byKind[models.ActionKind("Like post")])
}

func TestRecent_LimitAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	p := f.post(t, alice, "Post", "tag", "body")

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		require.NoError(t, f.db.Create(&models.ActivityEvent{
			UserID:      alice.ID,
			ActionType:  models.ActionUpdatePost,
			ReferenceID: p.ID,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	views, err := f.activity.Recent(ctx, alice.ID, 50)
	require.NoError(t, err)
	require.Len(t, views, RecentActivityLimit)
	for i := 1; i < len(views); i++ {
		assert.True(t, views[i-1].Timestamp.After(views[i].Timestamp), "entry %d not older than %d", i, i-1)
	}
	assert.Equal(t, "Post", views[1].PostTitle)
}

func TestRecord_FailureDoesNotFailParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	require.NoError(t, f.db.Migrator().DropTable(&models.ActivityEvent{}))

	p, err := f.posts.Create(ctx, CreatePostInput{UserID: alice.ID, Username: "alice", Title: "T", Tag: "t", Content: "c"})
	require.NoError(t, err)
	_, err = f.posts.Get(ctx, p.ID)
	assert.NoError(t, err)

	assert.Error(t, f.activity.Append(ctx, alice.ID, models.ActionCreatePost, p.ID, false))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	assert.Equal(t, KindConflict, KindOf(NewConflictError("x")))
	assert.True(t, IsKind(NewDatabaseError(assert.AnError), KindDatabase))
	assert.ErrorIs(t, NewDatabaseError(assert.AnError), assert.AnError)
	assert.False(t, IsKind(nil, KindInternal))
}
