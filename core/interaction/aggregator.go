// Package interaction computes per-audio interaction metadata for read
// paths. The metadata is supplementary: a failing lookup degrades to its
// default value instead of failing the page.
package interaction

import (
	"context"
	"sync"

	"audiopub/cache"
	"audiopub/logger"
	"audiopub/repository"
)

// State is the interaction metadata of one audio for one viewer.
type State struct {
	IsFollowing   bool  `json:"isFollowing"`
	FavoriteCount int64 `json:"favoriteCount"`
	IsFavorited   bool  `json:"isFavorited"`
}

// Aggregator joins the three interaction lookups for an audio.
type Aggregator struct {
	follows   repository.FollowRepository
	favorites repository.FavoriteRepository
}

// NewAggregator creates an Aggregator.
func NewAggregator(follows repository.FollowRepository, favorites repository.FavoriteRepository) *Aggregator {
	return &Aggregator{follows: follows, favorites: favorites}
}

// Aggregate runs the follow-status, favorite-count, and favorited-status
// lookups concurrently and joins their results after all settle. Lookups
// that error are logged and substituted with their defaults; Aggregate
// itself never fails. Viewer-scoped lookups are skipped when viewerID is
// nil.
func (a *Aggregator) Aggregate(ctx context.Context, audioID string, viewerID *int64) State {
	var state State
	var wg sync.WaitGroup

	if viewerID != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			following, err := a.follows.IsFollowing(ctx, *viewerID, audioID)
			if err != nil {
				logger.Warn("failed to check follow status",
					logger.String("audioId", audioID),
					logger.ErrorField(err))
				return
			}
			state.IsFollowing = following
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		state.FavoriteCount = a.favoriteCount(ctx, audioID)
	}()

	if viewerID != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			favorited, err := a.favorites.IsFavorited(ctx, *viewerID, audioID)
			if err != nil {
				logger.Warn("failed to check favorite status",
					logger.String("audioId", audioID),
					logger.ErrorField(err))
				return
			}
			state.IsFavorited = favorited
		}()
	}

	wg.Wait()
	return state
}

// favoriteCount reads through the Redis cache, falling back to the store on
// a miss or cache error. All failures degrade to zero.
func (a *Aggregator) favoriteCount(ctx context.Context, audioID string) int64 {
	if count, err := cache.GetFavoriteCount(ctx, audioID); err == nil {
		return count
	}

	count, err := a.favorites.CountByAudio(ctx, audioID)
	if err != nil {
		logger.Warn("failed to count favorites",
			logger.String("audioId", audioID),
			logger.ErrorField(err))
		return 0
	}

	if err := cache.SetFavoriteCount(ctx, audioID, count); err != nil {
		logger.Debug("failed to cache favorite count",
			logger.String("audioId", audioID),
			logger.ErrorField(err))
	}
	return count
}
