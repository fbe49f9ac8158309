package server

import (
	"audiopub/config"
	"audiopub/core/interaction"
	"audiopub/core/media"
	"audiopub/core/notify"
	"audiopub/repository"
)

// APIHandler handles all API requests.
type APIHandler struct {
	users         repository.UserRepository
	audios        repository.AudioRepository
	comments      repository.CommentRepository
	follows       repository.FollowRepository
	favorites     repository.FavoriteRepository
	notifications repository.NotificationRepository

	pipeline   *media.Pipeline
	files      media.FileStore
	mirror     media.Mirror
	notifier   *notify.Engine
	aggregator *interaction.Aggregator
	cfg        *config.Config
}

// APIHandlerDeps bundles the handler's collaborators.
type APIHandlerDeps struct {
	Users         repository.UserRepository
	Audios        repository.AudioRepository
	Comments      repository.CommentRepository
	Follows       repository.FollowRepository
	Favorites     repository.FavoriteRepository
	Notifications repository.NotificationRepository

	Pipeline   *media.Pipeline
	Files      media.FileStore
	Mirror     media.Mirror // optional
	Notifier   *notify.Engine
	Aggregator *interaction.Aggregator
	Cfg        *config.Config
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(deps APIHandlerDeps) *APIHandler {
	return &APIHandler{
		users:         deps.Users,
		audios:        deps.Audios,
		comments:      deps.Comments,
		follows:       deps.Follows,
		favorites:     deps.Favorites,
		notifications: deps.Notifications,
		pipeline:      deps.Pipeline,
		files:         deps.Files,
		mirror:        deps.Mirror,
		notifier:      deps.Notifier,
		aggregator:    deps.Aggregator,
		cfg:           deps.Cfg,
	}
}
