// Package mention resolves @username tokens in free text to user identities.
package mention

import (
	"regexp"
	"sort"

	"audiopub/logger"
	"audiopub/model"
)

// UserFinder is the subset of the user repository the extractor needs.
// Lookups must match usernames case-insensitively.
type UserFinder interface {
	GetUserByUsername(username string) (*model.User, error)
}

// tokenPattern matches a mention marker followed by a username candidate.
// Free text produces false positives (email addresses, code snippets); those
// simply fail to resolve and are dropped.
var tokenPattern = regexp.MustCompile(`@([A-Za-z0-9_.\-]{2,32})`)

// Extractor scans text for mention tokens and resolves them against the
// user store.
type Extractor struct {
	users UserFinder
}

// NewExtractor creates an Extractor backed by the given user store.
func NewExtractor(users UserFinder) *Extractor {
	return &Extractor{users: users}
}

// Extract returns the identities of all users mentioned in text, each at
// most once, in ascending id order. Tokens that resolve to no user are
// silently dropped; lookup failures are logged and treated the same, since
// a mention is never load-bearing for the text it appears in.
func (x *Extractor) Extract(text string) []int64 {
	if text == "" {
		return nil
	}

	seen := make(map[string]struct{})
	ids := make(map[int64]struct{})
	for _, match := range tokenPattern.FindAllStringSubmatch(text, -1) {
		candidate := match[1]
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}

		user, err := x.users.GetUserByUsername(candidate)
		if err != nil {
			logger.Warn("mention lookup failed",
				logger.String("username", candidate),
				logger.ErrorField(err))
			continue
		}
		if user == nil {
			continue
		}
		ids[user.ID] = struct{}{}
	}

	return sortedIDs(ids)
}

// ExtractNewly returns the identities mentioned in nextText but not in
// prevText. Editing text never re-notifies someone already mentioned.
func (x *Extractor) ExtractNewly(prevText, nextText string) []int64 {
	next := x.Extract(nextText)
	if len(next) == 0 {
		return nil
	}

	prev := make(map[int64]struct{})
	for _, id := range x.Extract(prevText) {
		prev[id] = struct{}{}
	}

	newly := make(map[int64]struct{})
	for _, id := range next {
		if _, ok := prev[id]; !ok {
			newly[id] = struct{}{}
		}
	}
	return sortedIDs(newly)
}

func sortedIDs(set map[int64]struct{}) []int64 {
	if len(set) == 0 {
		return nil
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
