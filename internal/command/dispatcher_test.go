package command

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/keshon/server-warden/internal/moderation"
	"github.com/keshon/server-warden/internal/storage"
)

type fakeStore struct {
	whitelist    map[string]bool
	settings     map[string]string
	logs         []storage.CommandLog
	whitelistErr error
	logErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{whitelist: map[string]bool{}, settings: map[string]string{}}
}

func (f *fakeStore) IsWhitelisted(userID string) (bool, error) {
	if f.whitelistErr != nil {
		return false, f.whitelistErr
	}
	return f.whitelist[userID], nil
}

func (f *fakeStore) GetSetting(name string) (string, bool, error) {
	v, ok := f.settings[name]
	return v, ok, nil
}

func (f *fakeStore) SetSetting(name, value string) error {
	f.settings[name] = value
	return nil
}

func (f *fakeStore) AppendCommandLog(rec storage.CommandLog) error {
	f.logs = append(f.logs, rec)
	return f.logErr
}

type fakeModerator struct {
	calls   []moderation.Action
	summary moderation.Summary
	err     error
}

func (f *fakeModerator) Execute(act moderation.Action) (*moderation.Summary, error) {
	f.calls = append(f.calls, act)
	if f.err != nil {
		return nil, f.err
	}
	sum := f.summary
	sum.Action = act
	return &sum, nil
}

type fakeMessenger struct {
	replies []string
	err     error
}

func (f *fakeMessenger) DirectMessage(userID, content string) error {
	f.replies = append(f.replies, content)
	return f.err
}

func newTestDispatcher() (*Dispatcher, *fakeStore, *fakeModerator, *fakeMessenger) {
	store := newFakeStore()
	mod := &fakeModerator{
		summary: moderation.Summary{
			Target:     moderation.Target{ID: "u9", DisplayName: "alice#1234"},
			GuildCount: 1,
			Outcomes:   []moderation.Outcome{{GuildID: "g1", GuildName: "Alpha"}},
		},
	}
	msg := &fakeMessenger{}
	return NewDispatcher(store, mod, msg, zerolog.Nop()), store, mod, msg
}

func TestDispatchDeniesUnauthorized(t *testing.T) {
	d, store, mod, msg := newTestDispatcher()

	d.Dispatch("u1", "bob", "/kick alice spamming")

	require.Equal(t, []string{deniedMessage}, msg.replies)
	require.Empty(t, mod.calls)
	require.Len(t, store.logs, 1)
	require.Equal(t, "kick", store.logs[0].Verb)
	require.False(t, store.logs[0].Success)
}

func TestDispatchAuthorizedKick(t *testing.T) {
	d, store, mod, msg := newTestDispatcher()
	store.whitelist["admin"] = true

	d.Dispatch("admin", "admin", "/kick alice being rude")

	require.Len(t, mod.calls, 1)
	require.Equal(t, moderation.KindKick, mod.calls[0].Kind)
	require.Equal(t, "alice", mod.calls[0].Handle)
	require.Equal(t, "being rude", mod.calls[0].Reason)

	require.Len(t, msg.replies, 1)
	require.Contains(t, msg.replies[0], "Kicked alice#1234 in 1 guild(s): Alpha")
	require.True(t, store.logs[0].Success)
}

func TestDispatchUnknownCommandSuggests(t *testing.T) {
	d, store, _, msg := newTestDispatcher()

	d.Dispatch("u1", "bob", "/kik alice")

	require.Len(t, msg.replies, 1)
	require.Contains(t, msg.replies[0], "Unknown command")
	require.Contains(t, msg.replies[0], "`/kick`")
	require.Equal(t, "unknown", store.logs[0].Verb)
}

func TestDispatchNonSlashIsUnknown(t *testing.T) {
	d, _, mod, msg := newTestDispatcher()

	d.Dispatch("u1", "bob", "hello")

	require.Len(t, msg.replies, 1)
	require.Contains(t, msg.replies[0], "Unknown command")
	require.Contains(t, msg.replies[0], "`/help`")
	require.Empty(t, mod.calls)
}

func TestDispatchEmptyContentShowsHelp(t *testing.T) {
	d, store, _, msg := newTestDispatcher()

	d.Dispatch("u1", "bob", "   ")

	require.Len(t, msg.replies, 1)
	require.Contains(t, msg.replies[0], "/kick <handle>")
	require.Equal(t, "help", store.logs[0].Verb)
	require.True(t, store.logs[0].Success)
}

func TestDispatchTimeoutBounds(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		wantCall bool
		wantText string
	}{
		{"zero", "/timeout alice 0", false, "at least 1 minute"},
		{"negative", "/timeout alice -5", false, "at least 1 minute"},
		{"over max", "/timeout alice 40321", false, "maximum is 40320 minutes"},
		{"at max", "/timeout alice 40320", true, ""},
		{"not a number", "/timeout alice soon", false, "not a whole number"},
		{"missing duration", "/timeout alice", false, "Missing duration"},
		{"missing target", "/timeout", false, "Missing target"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, store, mod, msg := newTestDispatcher()
			store.whitelist["admin"] = true

			d.Dispatch("admin", "admin", tc.content)

			require.Len(t, msg.replies, 1)
			if tc.wantCall {
				require.Len(t, mod.calls, 1)
				require.Equal(t, moderation.KindTimeout, mod.calls[0].Kind)
				require.Equal(t, time.Duration(MaxTimeoutMinutes)*time.Minute, mod.calls[0].Duration)
				return
			}
			require.Empty(t, mod.calls)
			require.Contains(t, msg.replies[0], tc.wantText)
		})
	}
}

func TestDispatchTargetNotFound(t *testing.T) {
	d, _, mod, msg := newTestDispatcher()
	mod.err = fmt.Errorf("%w: %q", moderation.ErrTargetNotFound, "ghost")

	store := d.store.(*fakeStore)
	store.whitelist["admin"] = true

	d.Dispatch("admin", "admin", "/ban ghost")

	require.Len(t, msg.replies, 1)
	require.Contains(t, msg.replies[0], `No member matching "ghost" was found`)
	require.False(t, store.logs[0].Success)
}

func TestDispatchCacheToggle(t *testing.T) {
	d, store, _, msg := newTestDispatcher()
	store.whitelist["admin"] = true

	d.Dispatch("admin", "admin", "/cache")
	require.Equal(t, "Image caching is on.", msg.replies[0])

	d.Dispatch("admin", "admin", "/cache off")
	require.Equal(t, "Image caching turned off.", msg.replies[1])
	require.Equal(t, "off", store.settings[settingCacheImages])

	d.Dispatch("admin", "admin", "/cache")
	require.Equal(t, "Image caching is off.", msg.replies[2])

	d.Dispatch("admin", "admin", "/cache banana")
	require.Contains(t, msg.replies[3], "Usage:")
}

func TestDispatchAuthorizationLookupError(t *testing.T) {
	d, store, mod, msg := newTestDispatcher()
	store.whitelistErr = errors.New("disk gone")

	d.Dispatch("admin", "admin", "/kick alice")

	require.Len(t, msg.replies, 1)
	require.Contains(t, msg.replies[0], "Authorization check failed")
	require.Empty(t, mod.calls)
}

func TestDispatchAlwaysRepliesAndLogsOnce(t *testing.T) {
	d, store, _, msg := newTestDispatcher()
	store.whitelist["admin"] = true
	store.logErr = errors.New("log table full")
	msg.err = errors.New("dm closed")

	for _, content := range []string{"/help", "/kick alice", "garbage", "/cache on"} {
		d.Dispatch("admin", "admin", content)
	}

	require.Len(t, msg.replies, 4)
	require.Len(t, store.logs, 4)
}

func TestSuggest(t *testing.T) {
	cases := map[string]string{
		"kik":     "kick",
		"/kik":    "kick",
		"bna":     "ban",
		"tiemout": "timeout",
		"ki":      "kick",
		"time":    "timeout",
		"hel":     "help",
		"xyzzy":   "help",
		"":        "help",
	}
	for input, want := range cases {
		require.Equal(t, want, Suggest(input), "input %q", input)
	}
}
