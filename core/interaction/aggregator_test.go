package interaction

import (
	"context"
	"errors"
	"testing"

	"audiopub/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFollowRepo struct {
	following bool
	err       error
}

func (s *stubFollowRepo) Follow(ctx context.Context, userID int64, audioID string) error {
	return nil
}

func (s *stubFollowRepo) Unfollow(ctx context.Context, userID int64, audioID string) error {
	return nil
}

func (s *stubFollowRepo) ListByAudio(ctx context.Context, audioID string) ([]*model.AudioFollow, error) {
	return nil, nil
}

func (s *stubFollowRepo) IsFollowing(ctx context.Context, userID int64, audioID string) (bool, error) {
	return s.following, s.err
}

type stubFavoriteRepo struct {
	count     int64
	favorited bool
	countErr  error
	favErr    error
}

func (s *stubFavoriteRepo) CreateFavorite(ctx context.Context, userID int64, audioID string) (*model.AudioFavorite, error) {
	return nil, nil
}

func (s *stubFavoriteRepo) RemoveFavorite(ctx context.Context, userID int64, audioID string) error {
	return nil
}

func (s *stubFavoriteRepo) CountByAudio(ctx context.Context, audioID string) (int64, error) {
	return s.count, s.countErr
}

func (s *stubFavoriteRepo) IsFavorited(ctx context.Context, userID int64, audioID string) (bool, error) {
	return s.favorited, s.favErr
}

func TestAggregateJoinsAllLookups(t *testing.T) {
	a := NewAggregator(
		&stubFollowRepo{following: true},
		&stubFavoriteRepo{count: 12, favorited: true},
	)

	viewerID := int64(5)
	state := a.Aggregate(context.Background(), "a1", &viewerID)

	assert.True(t, state.IsFollowing)
	assert.Equal(t, int64(12), state.FavoriteCount)
	assert.True(t, state.IsFavorited)
}

func TestAggregateAnonymousViewerSkipsViewerLookups(t *testing.T) {
	a := NewAggregator(
		&stubFollowRepo{following: true},
		&stubFavoriteRepo{count: 3, favorited: true},
	)

	state := a.Aggregate(context.Background(), "a1", nil)

	assert.False(t, state.IsFollowing)
	assert.Equal(t, int64(3), state.FavoriteCount)
	assert.False(t, state.IsFavorited)
}

func TestAggregateDegradesPerLookup(t *testing.T) {
	a := NewAggregator(
		&stubFollowRepo{err: errors.New("follow lookup down")},
		&stubFavoriteRepo{count: 7, favorited: true},
	)

	viewerID := int64(5)
	state := a.Aggregate(context.Background(), "a1", &viewerID)

	// The failing lookup defaults, the others still land.
	assert.False(t, state.IsFollowing)
	assert.Equal(t, int64(7), state.FavoriteCount)
	assert.True(t, state.IsFavorited)
}

func TestAggregateAllLookupsFailing(t *testing.T) {
	a := NewAggregator(
		&stubFollowRepo{err: errors.New("down")},
		&stubFavoriteRepo{countErr: errors.New("down"), favErr: errors.New("down")},
	)

	viewerID := int64(5)
	require.NotPanics(t, func() {
		state := a.Aggregate(context.Background(), "a1", &viewerID)
		assert.Equal(t, State{}, state)
	})
}
