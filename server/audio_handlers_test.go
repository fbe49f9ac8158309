package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"audiopub/config"
	"audiopub/core/interaction"
	"audiopub/core/media"
	"audiopub/core/mention"
	"audiopub/core/notify"
	"audiopub/model"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	users map[int64]*model.User
}

func (f *fakeUserRepo) CreateUser(user *model.User) (int64, error) { return 0, nil }

func (f *fakeUserRepo) GetUserByID(id int64) (*model.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) GetUserByUsername(username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetUserByEmail(email string) (*model.User, error) { return nil, nil }

type fakeAudioRepo struct {
	audios  map[string]*model.Audio
	deleted []string
}

func (f *fakeAudioRepo) CreateAudio(audio *model.Audio) error {
	if f.audios == nil {
		f.audios = make(map[string]*model.Audio)
	}
	f.audios[audio.ID] = audio
	return nil
}

func (f *fakeAudioRepo) GetAudioByID(id string) (*model.Audio, error) {
	return f.audios[id], nil
}

func (f *fakeAudioRepo) CountByUserID(userID int64) (int64, error) {
	var n int64
	for _, a := range f.audios {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeAudioRepo) UpdateDescription(id string, description string) error {
	if a, ok := f.audios[id]; ok {
		a.Description = description
	}
	return nil
}

func (f *fakeAudioRepo) UpdateMimeType(id string, mimeType string) error {
	if a, ok := f.audios[id]; ok {
		a.MimeType = mimeType
	}
	return nil
}

func (f *fakeAudioRepo) DeleteAudio(id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.audios, id)
	return nil
}

func (f *fakeAudioRepo) ListRecent(limit int) ([]*model.Audio, error) { return nil, nil }

type fakeCommentRepo struct {
	comments []*model.Comment
}

func (f *fakeCommentRepo) CreateComment(comment *model.Comment) error {
	f.comments = append(f.comments, comment)
	return nil
}

func (f *fakeCommentRepo) GetCommentByID(id string) (*model.Comment, error) {
	for _, c := range f.comments {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCommentRepo) ListByAudio(audioID string) ([]*model.Comment, error) {
	out := make([]*model.Comment, 0)
	for _, c := range f.comments {
		if c.AudioID == audioID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCommentRepo) UpdateContent(id string, content string) error { return nil }
func (f *fakeCommentRepo) DeleteComment(id string) error                 { return nil }

type fakeFollowRepo struct{}

func (f *fakeFollowRepo) Follow(ctx context.Context, userID int64, audioID string) error   { return nil }
func (f *fakeFollowRepo) Unfollow(ctx context.Context, userID int64, audioID string) error { return nil }
func (f *fakeFollowRepo) ListByAudio(ctx context.Context, audioID string) ([]*model.AudioFollow, error) {
	return nil, nil
}
func (f *fakeFollowRepo) IsFollowing(ctx context.Context, userID int64, audioID string) (bool, error) {
	return false, nil
}

type fakeFavoriteRepo struct {
	count int64
}

func (f *fakeFavoriteRepo) CreateFavorite(ctx context.Context, userID int64, audioID string) (*model.AudioFavorite, error) {
	return nil, nil
}
func (f *fakeFavoriteRepo) RemoveFavorite(ctx context.Context, userID int64, audioID string) error {
	return nil
}
func (f *fakeFavoriteRepo) CountByAudio(ctx context.Context, audioID string) (int64, error) {
	return f.count, nil
}
func (f *fakeFavoriteRepo) IsFavorited(ctx context.Context, userID int64, audioID string) (bool, error) {
	return false, nil
}

type markReadCall struct {
	userID     int64
	audioID    string
	commentIDs []string
}

type fakeNotificationRepo struct {
	created   []*model.Notification
	markCalls []markReadCall
}

func (f *fakeNotificationRepo) BulkCreate(ctx context.Context, notifications []*model.Notification) error {
	f.created = append(f.created, notifications...)
	return nil
}

func (f *fakeNotificationRepo) MarkReadForAudio(ctx context.Context, userID int64, audioID string, commentIDs []string) error {
	f.markCalls = append(f.markCalls, markReadCall{userID, audioID, commentIDs})
	return nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Notification, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

type noopFileStore struct{}

func (noopFileStore) Save(path string, r io.Reader) error     { return nil }
func (noopFileStore) Remove(path string) error                { return nil }
func (noopFileStore) DetectMime(path string) (string, error)  { return "audio/mpeg", nil }

type stubTranscoder struct{ err error }

func (s *stubTranscoder) Transcode(ctx context.Context, inputPath string) error { return s.err }

type handlerFixture struct {
	handler       *APIHandler
	users         *fakeUserRepo
	audios        *fakeAudioRepo
	comments      *fakeCommentRepo
	notifications *fakeNotificationRepo
	transcoder    *stubTranscoder
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		users:         &fakeUserRepo{users: make(map[int64]*model.User)},
		audios:        &fakeAudioRepo{audios: make(map[string]*model.Audio)},
		comments:      &fakeCommentRepo{},
		notifications: &fakeNotificationRepo{},
		transcoder:    &stubTranscoder{},
	}

	follows := &fakeFollowRepo{}
	favorites := &fakeFavoriteRepo{count: 2}
	notifier := notify.NewEngine(f.notifications, follows, mention.NewExtractor(f.users))

	cfg := &config.Config{
		JWTSecret:      "test-secret",
		MaxUploadSize:  500 << 20,
		AudioUploadDir: "/tmp/audiopub-test",
	}

	pipeline := media.NewPipeline(media.PipelineConfig{
		Audios:        f.audios,
		Files:         noopFileStore{},
		Transcoder:    f.transcoder,
		Notifier:      notifier,
		AudioDir:      cfg.AudioUploadDir,
		MaxUploadSize: cfg.MaxUploadSize,
	})

	f.handler = NewAPIHandler(APIHandlerDeps{
		Users:         f.users,
		Audios:        f.audios,
		Comments:      f.comments,
		Follows:       follows,
		Favorites:     favorites,
		Notifications: f.notifications,
		Pipeline:      pipeline,
		Files:         noopFileStore{},
		Notifier:      notifier,
		Aggregator:    interaction.NewAggregator(follows, favorites),
		Cfg:           cfg,
	})
	return f
}

func authed(r *http.Request, userID int64) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

func multipartUpload(t *testing.T, fields map[string]string, fileName string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte("riff data"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestGetAudioHandlerNotFound(t *testing.T) {
	f := newHandlerFixture()

	r := httptest.NewRequest(http.MethodGet, "/api/audios/missing", nil)
	r = mux.SetURLVars(r, map[string]string{"id": "missing"})
	w := httptest.NewRecorder()

	f.handler.GetAudioHandler(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAudioHandlerFiltersUntrustedComments(t *testing.T) {
	f := newHandlerFixture()
	f.audios.audios["a1"] = &model.Audio{ID: "a1", UserID: 1, Title: "demo"}
	f.comments.comments = []*model.Comment{
		{ID: "c1", AudioID: "a1", UserID: 2, Content: "nice", User: &model.User{ID: 2, IsTrusted: true}},
		{ID: "c2", AudioID: "a1", UserID: 3, Content: "spam", User: &model.User{ID: 3, IsTrusted: false}},
	}

	r := httptest.NewRequest(http.MethodGet, "/api/audios/a1", nil)
	r = mux.SetURLVars(r, map[string]string{"id": "a1"})
	w := httptest.NewRecorder()

	f.handler.GetAudioHandler(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp listenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Comments, 1)
	assert.Equal(t, "c1", resp.Comments[0].ID)
	assert.Equal(t, int64(2), resp.FavoriteCount)
}

func TestGetAudioHandlerAdminSeesAllComments(t *testing.T) {
	f := newHandlerFixture()
	f.users.users[9] = &model.User{ID: 9, Username: "admin", IsAdmin: true}
	f.audios.audios["a1"] = &model.Audio{ID: "a1", UserID: 1}
	f.comments.comments = []*model.Comment{
		{ID: "c2", AudioID: "a1", UserID: 3, Content: "spam", User: &model.User{ID: 3, IsTrusted: false}},
	}

	r := httptest.NewRequest(http.MethodGet, "/api/audios/a1", nil)
	r = mux.SetURLVars(authed(r, 9), map[string]string{"id": "a1"})
	w := httptest.NewRecorder()

	f.handler.GetAudioHandler(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp listenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Comments, 1)
}

func TestGetAudioHandlerMarksNotificationsRead(t *testing.T) {
	f := newHandlerFixture()
	f.users.users[5] = &model.User{ID: 5, Username: "viewer"}
	f.audios.audios["a1"] = &model.Audio{ID: "a1", UserID: 1}
	f.comments.comments = []*model.Comment{
		{ID: "c1", AudioID: "a1", UserID: 2, User: &model.User{ID: 2, IsTrusted: true}},
	}

	r := httptest.NewRequest(http.MethodGet, "/api/audios/a1", nil)
	r = mux.SetURLVars(authed(r, 5), map[string]string{"id": "a1"})
	w := httptest.NewRecorder()

	f.handler.GetAudioHandler(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, f.notifications.markCalls, 1)
	call := f.notifications.markCalls[0]
	assert.Equal(t, int64(5), call.userID)
	assert.Equal(t, "a1", call.audioID)
	assert.Equal(t, []string{"c1"}, call.commentIDs)
}

func TestUploadAudioHandlerValidationError(t *testing.T) {
	f := newHandlerFixture()
	f.users.users[1] = &model.User{ID: 1, IsVerified: true, IsTrusted: true}

	body, contentType := multipartUpload(t, map[string]string{
		"title":    "ab", // too short
		"language": "en",
	}, "take.wav")

	r := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	f.handler.UploadAudioHandler(w, authed(r, 1))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp uploadErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "upload.error.invalid_title", resp.ErrorKey)
	assert.Equal(t, "ab", resp.Form.Title, "the submitted form must be echoed back")
	assert.Empty(t, f.audios.audios)
}

func TestUploadAudioHandlerTranscoderUnavailable(t *testing.T) {
	f := newHandlerFixture()
	f.users.users[1] = &model.User{ID: 1, IsVerified: true, IsTrusted: true}
	f.transcoder.err = errors.New(`exec: "ffmpeg": executable file not found in $PATH`)

	body, contentType := multipartUpload(t, map[string]string{
		"title":    "A Valid Title",
		"language": "en",
	}, "take.wav")

	r := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	f.handler.UploadAudioHandler(w, authed(r, 1))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, f.audios.audios, "the record must be rolled back")
}

func TestUploadAudioHandlerBadInputIsUnprocessable(t *testing.T) {
	f := newHandlerFixture()
	f.users.users[1] = &model.User{ID: 1, IsVerified: true, IsTrusted: true}
	f.transcoder.err = errors.New("Invalid data found when processing input")

	body, contentType := multipartUpload(t, map[string]string{
		"title":    "A Valid Title",
		"language": "en",
	}, "take.wav")

	r := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	f.handler.UploadAudioHandler(w, authed(r, 1))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUploadAudioHandlerUnverifiedUserRejected(t *testing.T) {
	f := newHandlerFixture()
	f.users.users[1] = &model.User{ID: 1, IsVerified: false}

	r := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	w := httptest.NewRecorder()

	f.handler.UploadAudioHandler(w, authed(r, 1))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUploadAudioHandlerUntrustedUserLimitedToOne(t *testing.T) {
	f := newHandlerFixture()
	f.users.users[1] = &model.User{ID: 1, IsVerified: true}
	f.audios.audios["existing"] = &model.Audio{ID: "existing", UserID: 1}

	r := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	w := httptest.NewRecorder()

	f.handler.UploadAudioHandler(w, authed(r, 1))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUploadAudioHandlerSuccess(t *testing.T) {
	f := newHandlerFixture()
	f.users.users[1] = &model.User{ID: 1, IsVerified: true, IsTrusted: true}
	f.users.users[7] = &model.User{ID: 7, Username: "alice"}

	body, contentType := multipartUpload(t, map[string]string{
		"title":       "A Valid Title",
		"description": "shoutout @alice",
		"language":    "en",
	}, "take.wav")

	r := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	f.handler.UploadAudioHandler(w, authed(r, 1))
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, f.audios.audios, 1)
	require.Len(t, f.notifications.created, 1)
	assert.Equal(t, int64(7), f.notifications.created[0].UserID)
	assert.Equal(t, model.NotificationMention, f.notifications.created[0].Type)
}

func TestCreateCommentHandlerNotifiesOwner(t *testing.T) {
	f := newHandlerFixture()
	f.users.users[2] = &model.User{ID: 2, Username: "fan", IsVerified: true}
	f.audios.audios["a1"] = &model.Audio{ID: "a1", UserID: 1}

	body := bytes.NewBufferString(`{"content":"really enjoyed this"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/audios/a1/comments", body)
	r = mux.SetURLVars(authed(r, 2), map[string]string{"id": "a1"})
	w := httptest.NewRecorder()

	f.handler.CreateCommentHandler(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, f.comments.comments, 1)
	require.Len(t, f.notifications.created, 1)
	n := f.notifications.created[0]
	assert.Equal(t, int64(1), n.UserID)
	assert.Equal(t, model.NotificationComment, n.Type)
	assert.Equal(t, model.TargetComment, n.TargetType)
	assert.Equal(t, f.comments.comments[0].ID, n.TargetID)
}

func TestCreateCommentHandlerTooShort(t *testing.T) {
	f := newHandlerFixture()
	f.users.users[2] = &model.User{ID: 2, IsVerified: true}
	f.audios.audios["a1"] = &model.Audio{ID: "a1", UserID: 1}

	body := bytes.NewBufferString(`{"content":"ok"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/audios/a1/comments", body)
	r = mux.SetURLVars(authed(r, 2), map[string]string{"id": "a1"})
	w := httptest.NewRecorder()

	f.handler.CreateCommentHandler(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.comments.comments)
}

func TestUpdateAudioHandlerDiffsMentions(t *testing.T) {
	f := newHandlerFixture()
	f.users.users[1] = &model.User{ID: 1, Username: "owner", IsVerified: true}
	f.users.users[7] = &model.User{ID: 7, Username: "alice"}
	f.users.users[8] = &model.User{ID: 8, Username: "bob"}
	f.audios.audios["a1"] = &model.Audio{ID: "a1", UserID: 1, Description: "hi @alice"}

	body := bytes.NewBufferString(`{"description":"hi @alice and @bob"}`)
	r := httptest.NewRequest(http.MethodPut, "/api/audios/a1", body)
	r = mux.SetURLVars(authed(r, 1), map[string]string{"id": "a1"})
	w := httptest.NewRecorder()

	f.handler.UpdateAudioHandler(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "hi @alice and @bob", f.audios.audios["a1"].Description)
	require.Len(t, f.notifications.created, 1, "only the newly added mention is notified")
	assert.Equal(t, int64(8), f.notifications.created[0].UserID)
}

func TestDeleteAudioHandlerForbiddenForStranger(t *testing.T) {
	f := newHandlerFixture()
	f.users.users[2] = &model.User{ID: 2}
	f.audios.audios["a1"] = &model.Audio{ID: "a1", UserID: 1}

	r := httptest.NewRequest(http.MethodDelete, "/api/audios/a1", nil)
	r = mux.SetURLVars(authed(r, 2), map[string]string{"id": "a1"})
	w := httptest.NewRecorder()

	f.handler.DeleteAudioHandler(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.audios.deleted)
}
