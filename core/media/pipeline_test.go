package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"audiopub/core/notify"
	"audiopub/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyAudioStore struct {
	created   []*model.Audio
	deleted   []string
	mimes     map[string]string
	createErr error
}

func (s *spyAudioStore) CreateAudio(audio *model.Audio) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, audio)
	return nil
}

func (s *spyAudioStore) DeleteAudio(id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *spyAudioStore) UpdateMimeType(id string, mimeType string) error {
	if s.mimes == nil {
		s.mimes = make(map[string]string)
	}
	s.mimes[id] = mimeType
	return nil
}

type spyFileStore struct {
	saved   []string
	removed []string
	mime    string
	saveErr error
}

func (s *spyFileStore) Save(path string, r io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, path)
	return nil
}

func (s *spyFileStore) Remove(path string) error {
	s.removed = append(s.removed, path)
	return nil
}

func (s *spyFileStore) DetectMime(path string) (string, error) {
	if s.mime == "" {
		return "audio/mpeg", nil
	}
	return s.mime, nil
}

type stubTranscoder struct {
	err   error
	calls int
}

func (s *stubTranscoder) Transcode(ctx context.Context, inputPath string) error {
	s.calls++
	return s.err
}

type spyMailer struct {
	sent []string
}

func (s *spyMailer) SendEmail(to, subject, htmlBody string) error {
	s.sent = append(s.sent, to)
	return nil
}

type spyNotifier struct {
	dispatched []string
	opts       []notify.MentionOpts
}

func (s *spyNotifier) DispatchMentions(ctx context.Context, actorID int64, targetType model.TargetType, targetID, text string, opts notify.MentionOpts) error {
	s.dispatched = append(s.dispatched, text)
	s.opts = append(s.opts, opts)
	return nil
}

type testPipeline struct {
	pipeline   *Pipeline
	audios     *spyAudioStore
	files      *spyFileStore
	transcoder *stubTranscoder
	mailer     *spyMailer
	notifier   *spyNotifier
}

func newTestPipeline() *testPipeline {
	tp := &testPipeline{
		audios:     &spyAudioStore{},
		files:      &spyFileStore{},
		transcoder: &stubTranscoder{},
		mailer:     &spyMailer{},
		notifier:   &spyNotifier{},
	}
	tp.pipeline = NewPipeline(PipelineConfig{
		Audios:        tp.audios,
		Files:         tp.files,
		Transcoder:    tp.transcoder,
		Notifier:      tp.notifier,
		Mailer:        tp.mailer,
		AudioDir:      "/tmp/audio",
		MaxUploadSize: 500 << 20,
		AdminEmail:    "ops@example.com",
	})
	return tp
}

func validRequest() *UploadRequest {
	return &UploadRequest{
		UserID:   1,
		Title:    "My First Recording",
		Language: "en",
		FileName: "take1.wav",
		FileSize: 1024,
		File:     bytes.NewReader([]byte("riff")),
	}
}

func TestIngestSuccess(t *testing.T) {
	tp := newTestPipeline()
	req := validRequest()
	req.Description = "first take, feedback welcome @alice"

	audio, err := tp.pipeline.Ingest(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, audio)

	assert.NotEmpty(t, audio.ID)
	assert.Equal(t, "My First Recording", audio.Title)
	assert.Equal(t, ".wav", audio.Extension)
	assert.Equal(t, "en", audio.Language)
	assert.True(t, audio.HasFile)
	assert.Equal(t, "audio/mpeg", audio.MimeType)

	require.Len(t, tp.audios.created, 1)
	require.Len(t, tp.files.saved, 1)
	assert.Equal(t, 1, tp.transcoder.calls)
	assert.Empty(t, tp.audios.deleted)
	assert.Empty(t, tp.files.removed)
	assert.Empty(t, tp.mailer.sent)

	require.Len(t, tp.notifier.dispatched, 1)
	assert.Equal(t, req.Description, tp.notifier.dispatched[0])
	assert.Nil(t, tp.notifier.opts[0].PrevText)
	assert.Equal(t, audio.ID, tp.notifier.opts[0].AudioID)
}

func TestIngestEmptyDescriptionSkipsMentionDispatch(t *testing.T) {
	tp := newTestPipeline()

	_, err := tp.pipeline.Ingest(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Empty(t, tp.notifier.dispatched)
}

func TestIngestValidationOrder(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*UploadRequest)
		field  string
	}{
		{"missing file", func(r *UploadRequest) { r.File = nil }, "file"},
		{"empty title", func(r *UploadRequest) { r.Title = "   " }, "title"},
		{"title too short", func(r *UploadRequest) { r.Title = "ab" }, "title"},
		{"title too long", func(r *UploadRequest) { r.Title = strings.Repeat("x", 121) }, "title"},
		{"description too long", func(r *UploadRequest) { r.Description = strings.Repeat("x", 5001) }, "description"},
		{"file too large", func(r *UploadRequest) { r.FileSize = (500 << 20) + 1 }, "file"},
		{"unknown language", func(r *UploadRequest) { r.Language = "xx" }, "language"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tp := newTestPipeline()
			req := validRequest()
			tc.mutate(req)

			audio, err := tp.pipeline.Ingest(context.Background(), req)
			assert.Nil(t, audio)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)

			// A rejected upload must leave no trace.
			assert.Empty(t, tp.audios.created)
			assert.Empty(t, tp.files.saved)
			assert.Zero(t, tp.transcoder.calls)
		})
	}
}

func TestIngestTitleLengthCountsRunes(t *testing.T) {
	tp := newTestPipeline()
	req := validRequest()
	req.Title = "日本語"

	_, err := tp.pipeline.Ingest(context.Background(), req)
	assert.NoError(t, err, "a three-rune title is long enough")
}

func TestIngestFileWriteFailureDeletesRecord(t *testing.T) {
	tp := newTestPipeline()
	tp.files.saveErr = errors.New("disk full")

	audio, err := tp.pipeline.Ingest(context.Background(), validRequest())
	assert.Nil(t, audio)
	assert.Error(t, err)

	require.Len(t, tp.audios.created, 1)
	require.Len(t, tp.audios.deleted, 1)
	assert.Equal(t, tp.audios.created[0].ID, tp.audios.deleted[0])
	assert.Zero(t, tp.transcoder.calls)
}

func TestIngestTranscodeFailureRollsBack(t *testing.T) {
	tp := newTestPipeline()
	tp.transcoder.err = errors.New("Invalid data found when processing input")

	audio, err := tp.pipeline.Ingest(context.Background(), validRequest())
	assert.Nil(t, audio)

	var terr *TranscodeError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, TranscodeFailed, terr.Kind)
	assert.Contains(t, terr.Output, "Invalid data")

	// Rollback is all-or-nothing: the file and the record are both gone and
	// the operator is alerted exactly once.
	require.Len(t, tp.audios.created, 1)
	assert.Equal(t, []string{tp.audios.created[0].ID}, tp.audios.deleted)
	assert.Equal(t, tp.files.saved, tp.files.removed)
	assert.Equal(t, []string{"ops@example.com"}, tp.mailer.sent)
	assert.Empty(t, tp.notifier.dispatched)
}

func TestIngestMissingTranscoderIsUnavailable(t *testing.T) {
	cases := []string{
		`exec: "ffmpeg": executable file not found in $PATH`,
		`'ffmpeg' is not recognized as an internal or external command`,
		`The system cannot find the file specified`,
	}

	for _, msg := range cases {
		t.Run(msg, func(t *testing.T) {
			tp := newTestPipeline()
			tp.transcoder.err = errors.New(msg)

			_, err := tp.pipeline.Ingest(context.Background(), validRequest())

			var terr *TranscodeError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, TranscodeUnavailable, terr.Kind)
		})
	}
}

func TestIngestLanguageIsNormalized(t *testing.T) {
	tp := newTestPipeline()
	req := validRequest()
	req.Language = " EN "

	audio, err := tp.pipeline.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "en", audio.Language)
}

func TestIngestUndeterminedLanguageAccepted(t *testing.T) {
	tp := newTestPipeline()
	req := validRequest()
	req.Language = "und"

	_, err := tp.pipeline.Ingest(context.Background(), req)
	assert.NoError(t, err)
}
