package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

const memberPageSize = 1000

// Session adapts a discordgo session to the narrow capability surfaces the
// core packages consume: guild directory, history reads, moderation calls
// and direct messages.
type Session struct {
	dg *discordgo.Session
}

func NewSession(dg *discordgo.Session) *Session {
	return &Session{dg: dg}
}

// Guilds returns the in-memory guild snapshot. Treated as read-only;
// staleness is tolerated.
func (s *Session) Guilds() []*discordgo.Guild {
	return s.dg.State.Guilds
}

// Members enumerates a guild's full member list, paging through the REST API.
func (s *Session) Members(guildID string) ([]*discordgo.Member, error) {
	var out []*discordgo.Member
	after := ""
	for {
		page, err := s.dg.GuildMembers(guildID, after, memberPageSize)
		if err != nil {
			return nil, fmt.Errorf("list members of guild %s: %w", guildID, err)
		}
		out = append(out, page...)
		if len(page) < memberPageSize {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// TextChannels returns the text-capable channels of a guild.
func (s *Session) TextChannels(guildID string) ([]*discordgo.Channel, error) {
	channels, err := s.dg.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("list channels of guild %s: %w", guildID, err)
	}

	var out []*discordgo.Channel
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews {
			out = append(out, ch)
		}
	}
	return out, nil
}

// MessagesBefore fetches one page of history strictly before the given
// message id. An empty beforeID starts from the most recent message.
func (s *Session) MessagesBefore(channelID, beforeID string, limit int) ([]*discordgo.Message, error) {
	return s.dg.ChannelMessages(channelID, limit, beforeID, "", "")
}

func (s *Session) Kick(guildID, userID, reason string) error {
	return s.dg.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (s *Session) Ban(guildID, userID, reason string) error {
	return s.dg.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (s *Session) TimeoutUntil(guildID, userID string, until time.Time) error {
	return s.dg.GuildMemberTimeout(guildID, userID, &until)
}

// DirectMessage opens (or reuses) the DM channel with a user and sends one
// message.
func (s *Session) DirectMessage(userID, content string) error {
	ch, err := s.dg.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("open DM channel with %s: %w", userID, err)
	}
	if _, err := s.dg.ChannelMessageSend(ch.ID, content); err != nil {
		return fmt.Errorf("send DM to %s: %w", userID, err)
	}
	return nil
}
