package moderation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	guilds    []*discordgo.Guild
	members   map[string][]*discordgo.Member
	memberErr map[string]error
	kickErr   map[string]error
	banErr    map[string]error

	kicks    []string
	bans     []string
	timeouts map[string]time.Time
}

func newFakeClient(guilds ...*discordgo.Guild) *fakeClient {
	return &fakeClient{
		guilds:    guilds,
		members:   map[string][]*discordgo.Member{},
		memberErr: map[string]error{},
		kickErr:   map[string]error{},
		banErr:    map[string]error{},
		timeouts:  map[string]time.Time{},
	}
}

func (c *fakeClient) Guilds() []*discordgo.Guild { return c.guilds }

func (c *fakeClient) Members(guildID string) ([]*discordgo.Member, error) {
	if err := c.memberErr[guildID]; err != nil {
		return nil, err
	}
	return c.members[guildID], nil
}

func (c *fakeClient) Kick(guildID, userID, reason string) error {
	if err := c.kickErr[guildID]; err != nil {
		return err
	}
	c.kicks = append(c.kicks, guildID+"/"+userID)
	return nil
}

func (c *fakeClient) Ban(guildID, userID, reason string) error {
	if err := c.banErr[guildID]; err != nil {
		return err
	}
	c.bans = append(c.bans, guildID+"/"+userID)
	return nil
}

func (c *fakeClient) TimeoutUntil(guildID, userID string, until time.Time) error {
	c.timeouts[guildID+"/"+userID] = until
	return nil
}

func guild(id, name string) *discordgo.Guild {
	return &discordgo.Guild{ID: id, Name: name}
}

func member(id, username, discriminator, nick string) *discordgo.Member {
	return &discordgo.Member{
		Nick: nick,
		User: &discordgo.User{ID: id, Username: username, Discriminator: discriminator},
	}
}

func TestExecuteKickSkipsNonMemberGuilds(t *testing.T) {
	c := newFakeClient(guild("a", "Alpha"), guild("b", "Beta"), guild("c", "Gamma"))
	c.members["a"] = []*discordgo.Member{member("u1", "alice", "0", "")}
	c.members["b"] = []*discordgo.Member{member("u1", "alice", "0", "")}
	c.members["c"] = []*discordgo.Member{member("u2", "bob", "0", "")}

	exec := NewExecutor(c, zerolog.Nop())
	sum, err := exec.Execute(Action{Kind: KindKick, Handle: "alice", Reason: "spam"})

	require.NoError(t, err)
	require.Equal(t, 3, sum.GuildCount)
	require.Len(t, sum.Outcomes, 2)
	require.Equal(t, []string{"a/u1", "b/u1"}, c.kicks)
	require.Equal(t, "Kicked alice in 2 guild(s): Alpha, Beta", sum.Report())
}

func TestExecuteBanIsUnconditional(t *testing.T) {
	c := newFakeClient(guild("a", "Alpha"), guild("b", "Beta"), guild("c", "Gamma"))
	c.members["a"] = []*discordgo.Member{member("u1", "alice", "0", "")}
	c.banErr["b"] = errors.New("missing permission")
	c.banErr["c"] = errors.New("missing permission")

	exec := NewExecutor(c, zerolog.Nop())
	sum, err := exec.Execute(Action{Kind: KindBan, Handle: "alice"})

	require.NoError(t, err)
	require.Len(t, sum.Outcomes, 3)
	require.Len(t, sum.Successes(), 1)
	require.Len(t, sum.Failures(), 2)

	report := sum.Report()
	require.Contains(t, report, "Banned alice in 1 guild(s): Alpha")
	require.Contains(t, report, "Failed in 2 guild(s):")
	require.Contains(t, report, "- Beta: missing permission")
}

func TestExecuteNoGuilds(t *testing.T) {
	exec := NewExecutor(newFakeClient(), zerolog.Nop())

	sum, err := exec.Execute(Action{Kind: KindKick, Handle: "alice"})

	require.NoError(t, err)
	require.Equal(t, "No guilds found.", sum.Report())
}

func TestExecuteTargetNotFound(t *testing.T) {
	c := newFakeClient(guild("a", "Alpha"))
	c.members["a"] = []*discordgo.Member{member("u2", "bob", "0", "")}

	exec := NewExecutor(c, zerolog.Nop())
	_, err := exec.Execute(Action{Kind: KindKick, Handle: "ghost"})

	require.ErrorIs(t, err, ErrTargetNotFound)
}

func TestExecuteMemberFetchFailureIsolated(t *testing.T) {
	c := newFakeClient(guild("a", "Alpha"), guild("b", "Beta"))
	c.memberErr["a"] = errors.New("timed out")
	c.members["b"] = []*discordgo.Member{member("u1", "alice", "0", "")}

	exec := NewExecutor(c, zerolog.Nop())
	sum, err := exec.Execute(Action{Kind: KindKick, Handle: "alice"})

	require.NoError(t, err)
	require.Len(t, sum.Outcomes, 1)
	require.Equal(t, "b", sum.Outcomes[0].GuildID)
	require.Equal(t, []string{"b/u1"}, c.kicks)
}

func TestExecutePerGuildKickFailureCaptured(t *testing.T) {
	c := newFakeClient(guild("a", "Alpha"), guild("b", "Beta"))
	c.members["a"] = []*discordgo.Member{member("u1", "alice", "0", "")}
	c.members["b"] = []*discordgo.Member{member("u1", "alice", "0", "")}
	c.kickErr["a"] = errors.New("role hierarchy")

	exec := NewExecutor(c, zerolog.Nop())
	sum, err := exec.Execute(Action{Kind: KindKick, Handle: "alice"})

	require.NoError(t, err)
	require.Len(t, sum.Outcomes, 2)
	require.Equal(t, "role hierarchy", sum.Outcomes[0].Failure)
	require.Empty(t, sum.Outcomes[1].Failure)
}

func TestExecuteTimeoutUntil(t *testing.T) {
	c := newFakeClient(guild("a", "Alpha"))
	c.members["a"] = []*discordgo.Member{member("u1", "alice", "0", "")}

	exec := NewExecutor(c, zerolog.Nop())
	sum, err := exec.Execute(Action{Kind: KindTimeout, Handle: "alice", Duration: 10 * time.Minute})

	require.NoError(t, err)
	require.Len(t, sum.Outcomes, 1)
	require.WithinDuration(t, time.Now().Add(10*time.Minute), c.timeouts["a/u1"], 5*time.Second)
	require.Contains(t, sum.Report(), "Timed out alice in 1 guild(s): Alpha")
}

func TestReportAbsentEverywhere(t *testing.T) {
	sum := &Summary{
		Action:     Action{Kind: KindKick},
		Target:     Target{ID: "u1", DisplayName: "bob"},
		GuildCount: 2,
	}
	require.Equal(t, "bob is not a member of any guild, nothing to do.", sum.Report())
}

func TestFindTargetPredicates(t *testing.T) {
	guilds := []*discordgo.Guild{guild("a", "Alpha"), guild("b", "Beta")}
	members := map[string][]*discordgo.Member{
		"a": {
			member("u1", "alice", "1234", ""),
			member("u2", "Bob", "0", "bobby"),
		},
		"b": {
			member("u3", "alice", "5678", ""),
		},
	}

	cases := []struct {
		handle string
		wantID string
		wantOK bool
	}{
		{"alice", "u1", true},        // exact username, first guild wins
		{"@alice", "u1", true},       // leading @ stripped
		{"alice#5678", "u3", true},   // full tag disambiguates
		{"bob", "u2", true},          // case-insensitive for discriminator-less accounts
		{"bobby", "u2", true},        // guild nickname
		{"Alice", "", false},         // case mismatch needs a discriminator-less account
		{"ghost", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := findTarget(guilds, members, tc.handle)
		require.Equal(t, tc.wantOK, ok, "handle %q", tc.handle)
		if tc.wantOK {
			require.Equal(t, tc.wantID, got.ID, "handle %q", tc.handle)
		}
	}
}

func TestDisplayTag(t *testing.T) {
	require.Equal(t, "alice#1234", displayTag(&discordgo.User{Username: "alice", Discriminator: "1234"}))
	require.Equal(t, "alice", displayTag(&discordgo.User{Username: "alice", Discriminator: "0"}))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "kick", KindKick.String())
	require.Equal(t, "ban", KindBan.String())
	require.Equal(t, "timeout", KindTimeout.String())
	require.Equal(t, "unknown", fmt.Sprint(Kind(99)))
}
