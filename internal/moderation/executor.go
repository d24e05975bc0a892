// Package moderation applies one logical moderation action across every guild
// the bot knows, collecting per-guild outcomes instead of short-circuiting on
// the first failure.
package moderation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Kind is the moderation action to fan out.
type Kind int

const (
	KindKick Kind = iota
	KindBan
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindKick:
		return "kick"
	case KindBan:
		return "ban"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

// Action is one logical request, built once and replayed against every guild.
type Action struct {
	Kind     Kind
	Handle   string
	Duration time.Duration // timeout only
	Reason   string
}

// Client is the remote capability surface the executor needs.
type Client interface {
	Guilds() []*discordgo.Guild
	Members(guildID string) ([]*discordgo.Member, error)
	Kick(guildID, userID, reason string) error
	Ban(guildID, userID, reason string) error
	TimeoutUntil(guildID, userID string, until time.Time) error
}

// ErrTargetNotFound means the handle matched no member of any known guild.
var ErrTargetNotFound = errors.New("no matching member found")

// Outcome is the result of one per-guild attempt. Failure is the raw error
// text, empty on success. Guilds where the action was skipped get no Outcome.
type Outcome struct {
	GuildID   string
	GuildName string
	Failure   string
}

// Summary aggregates the outcomes of one fan-out.
type Summary struct {
	Action     Action
	Target     Target
	GuildCount int
	Outcomes   []Outcome
}

// Executor fans a single Action out across all known guilds, sequentially in
// guild enumeration order. It never retries a failed per-guild attempt.
type Executor struct {
	client Client
	log    zerolog.Logger
}

func NewExecutor(client Client, log zerolog.Logger) *Executor {
	return &Executor{client: client, log: log.With().Str("comp", "moderation").Logger()}
}

// Execute resolves the action's handle and applies the action to every guild.
// Kick and timeout skip guilds where the target is not a member; ban is
// attempted unconditionally and remote rejections become per-guild failures.
// Returns ErrTargetNotFound (wrapped) when the handle resolves to nobody.
func (e *Executor) Execute(act Action) (*Summary, error) {
	guilds := e.client.Guilds()
	sum := &Summary{Action: act, GuildCount: len(guilds)}
	if len(guilds) == 0 {
		return sum, nil
	}

	members := make(map[string][]*discordgo.Member, len(guilds))
	for _, g := range guilds {
		ms, err := e.client.Members(g.ID)
		if err != nil {
			e.log.Warn().Err(err).Str("guild", g.ID).Msg("member list fetch failed")
			continue
		}
		members[g.ID] = ms
	}

	target, ok := findTarget(guilds, members, act.Handle)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTargetNotFound, act.Handle)
	}
	sum.Target = target

	for _, g := range guilds {
		if act.Kind != KindBan && !isMember(members[g.ID], target.ID) {
			continue
		}

		oc := Outcome{GuildID: g.ID, GuildName: g.Name}
		if err := e.apply(act, g.ID, target.ID); err != nil {
			oc.Failure = err.Error()
			e.log.Warn().Err(err).Str("guild", g.ID).Stringer("action", act.Kind).Msg("action failed")
		}
		sum.Outcomes = append(sum.Outcomes, oc)
	}
	return sum, nil
}

func (e *Executor) apply(act Action, guildID, userID string) error {
	switch act.Kind {
	case KindKick:
		return e.client.Kick(guildID, userID, act.Reason)
	case KindBan:
		return e.client.Ban(guildID, userID, act.Reason)
	case KindTimeout:
		return e.client.TimeoutUntil(guildID, userID, time.Now().Add(act.Duration))
	}
	return fmt.Errorf("unknown action kind %d", act.Kind)
}

func isMember(members []*discordgo.Member, userID string) bool {
	for _, m := range members {
		if m.User != nil && m.User.ID == userID {
			return true
		}
	}
	return false
}

// Successes returns the outcomes without a failure message.
func (s *Summary) Successes() []Outcome {
	var out []Outcome
	for _, oc := range s.Outcomes {
		if oc.Failure == "" {
			out = append(out, oc)
		}
	}
	return out
}

// Failures returns the outcomes that carry a failure message.
func (s *Summary) Failures() []Outcome {
	var out []Outcome
	for _, oc := range s.Outcomes {
		if oc.Failure != "" {
			out = append(out, oc)
		}
	}
	return out
}

// Report renders the human-readable summary delivered back to the caller.
func (s *Summary) Report() string {
	if s.GuildCount == 0 {
		return "No guilds found."
	}

	succ, fail := s.Successes(), s.Failures()
	if len(succ) == 0 && len(fail) == 0 {
		return fmt.Sprintf("%s is not a member of any guild, nothing to do.", s.Target.DisplayName)
	}

	var b strings.Builder
	if len(succ) > 0 {
		names := make([]string, 0, len(succ))
		for _, oc := range succ {
			names = append(names, oc.GuildName)
		}
		fmt.Fprintf(&b, "%s %s in %d guild(s): %s",
			pastTense(s.Action.Kind), s.Target.DisplayName, len(succ), strings.Join(names, ", "))
	}
	if len(fail) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Failed in %d guild(s):", len(fail))
		for _, oc := range fail {
			fmt.Fprintf(&b, "\n- %s: %s", oc.GuildName, oc.Failure)
		}
	}
	return b.String()
}

func pastTense(k Kind) string {
	switch k {
	case KindKick:
		return "Kicked"
	case KindBan:
		return "Banned"
	case KindTimeout:
		return "Timed out"
	}
	return "Processed"
}
