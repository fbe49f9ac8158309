package mention

import (
	"errors"
	"strings"
	"testing"

	"audiopub/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserFinder resolves usernames from a fixed map, case-insensitively.
type fakeUserFinder struct {
	users   map[string]int64
	lookups int
	err     error
}

func (f *fakeUserFinder) GetUserByUsername(username string) (*model.User, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.users[strings.ToLower(username)]
	if !ok {
		return nil, nil
	}
	return &model.User{ID: id, Username: username}, nil
}

func TestExtractResolvesMentions(t *testing.T) {
	finder := &fakeUserFinder{users: map[string]int64{"alice": 1, "bob": 2}}
	x := NewExtractor(finder)

	ids := x.Extract("thanks @alice and @bob for the feedback")
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestExtractDropsUnknownUsers(t *testing.T) {
	finder := &fakeUserFinder{users: map[string]int64{"alice": 1}}
	x := NewExtractor(finder)

	ids := x.Extract("cc @alice @nobody @ghost")
	assert.Equal(t, []int64{1}, ids)
}

func TestExtractDeduplicates(t *testing.T) {
	finder := &fakeUserFinder{users: map[string]int64{"alice": 1}}
	x := NewExtractor(finder)

	ids := x.Extract("@alice @alice @alice")
	assert.Equal(t, []int64{1}, ids)
	assert.Equal(t, 1, finder.lookups, "duplicate tokens should be looked up once")
}

func TestExtractCaseInsensitiveDistinctTokens(t *testing.T) {
	// @Alice and @alice are distinct tokens but resolve to the same user;
	// the result still carries the id once.
	finder := &fakeUserFinder{users: map[string]int64{"alice": 1}}
	x := NewExtractor(finder)

	ids := x.Extract("@Alice said hi, @alice replied")
	assert.Equal(t, []int64{1}, ids)
}

func TestExtractSortsAscending(t *testing.T) {
	finder := &fakeUserFinder{users: map[string]int64{"zoe": 9, "amy": 3, "mid": 5}}
	x := NewExtractor(finder)

	ids := x.Extract("@zoe @mid @amy")
	assert.Equal(t, []int64{3, 5, 9}, ids)
}

func TestExtractEmptyAndPlainText(t *testing.T) {
	finder := &fakeUserFinder{users: map[string]int64{"alice": 1}}
	x := NewExtractor(finder)

	assert.Nil(t, x.Extract(""))
	assert.Nil(t, x.Extract("no mentions here"))
	assert.Zero(t, finder.lookups)
}

func TestExtractTokenBounds(t *testing.T) {
	finder := &fakeUserFinder{users: map[string]int64{"ab": 1}}
	x := NewExtractor(finder)

	// Single-character candidates never match the token pattern.
	assert.Nil(t, x.Extract("mail @a please"))
	assert.Equal(t, []int64{1}, x.Extract("mail @ab please"))
}

func TestExtractLookupFailureIsDropped(t *testing.T) {
	finder := &fakeUserFinder{err: errors.New("db down")}
	x := NewExtractor(finder)

	require.NotPanics(t, func() {
		assert.Nil(t, x.Extract("hey @alice"))
	})
}

func TestExtractNewlyOnlyNotifiesAddedMentions(t *testing.T) {
	finder := &fakeUserFinder{users: map[string]int64{"alice": 1, "bob": 2}}
	x := NewExtractor(finder)

	ids := x.ExtractNewly("hi @alice", "hi @alice and @bob")
	assert.Equal(t, []int64{2}, ids)
}

func TestExtractNewlyUnchangedText(t *testing.T) {
	finder := &fakeUserFinder{users: map[string]int64{"alice": 1}}
	x := NewExtractor(finder)

	assert.Nil(t, x.ExtractNewly("hi @alice", "hi @alice"))
}

func TestExtractNewlyRemovedMention(t *testing.T) {
	finder := &fakeUserFinder{users: map[string]int64{"alice": 1, "bob": 2}}
	x := NewExtractor(finder)

	// Removing a mention notifies nobody.
	assert.Nil(t, x.ExtractNewly("hi @alice and @bob", "hi @alice"))
}
