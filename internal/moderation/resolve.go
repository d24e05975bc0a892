package moderation

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Target is a resolved moderation target.
type Target struct {
	ID          string
	DisplayName string
}

// findTarget resolves a user-supplied handle against the member snapshots, in
// guild enumeration order. First match wins.
func findTarget(guilds []*discordgo.Guild, members map[string][]*discordgo.Member, handle string) (Target, bool) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return Target{}, false
	}

	for _, g := range guilds {
		for _, m := range members[g.ID] {
			if matchesHandle(m, handle) {
				return Target{ID: m.User.ID, DisplayName: displayTag(m.User)}, true
			}
		}
	}
	return Target{}, false
}

// matchesHandle applies the match predicates in priority order: exact
// username, exact name#discriminator tag, handle of a discriminator-less
// account, guild nickname.
func matchesHandle(m *discordgo.Member, handle string) bool {
	u := m.User
	if u == nil {
		return false
	}
	switch {
	case u.Username == handle:
		return true
	case strings.Contains(handle, "#") && u.Username+"#"+u.Discriminator == handle:
		return true
	case noDiscriminator(u) && strings.EqualFold(u.Username, handle):
		return true
	case m.Nick != "" && m.Nick == handle:
		return true
	}
	return false
}

func noDiscriminator(u *discordgo.User) bool {
	return u.Discriminator == "" || u.Discriminator == "0"
}

func displayTag(u *discordgo.User) string {
	if noDiscriminator(u) {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}
