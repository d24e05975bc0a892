package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-warden/internal/storage"
)

// onVoiceStateUpdate records voice channel joins, leaves and moves.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	action := "join"
	channelID := e.ChannelID
	switch {
	case e.ChannelID == "":
		action = "leave"
		if e.BeforeUpdate != nil {
			channelID = e.BeforeUpdate.ChannelID
		}
	case e.BeforeUpdate != nil && e.BeforeUpdate.ChannelID != "" && e.BeforeUpdate.ChannelID != e.ChannelID:
		action = "move"
	}

	username := ""
	if member, err := s.State.Member(e.GuildID, e.UserID); err == nil && member != nil && member.User != nil {
		username = member.User.Username
	}

	rec := storage.VoiceLog{
		GuildID:   e.GuildID,
		ChannelID: channelID,
		UserID:    e.UserID,
		Username:  username,
		Action:    action,
		Timestamp: time.Now(),
	}
	if err := b.store.AppendVoiceLog(rec); err != nil {
		b.log.Warn().Err(err).Str("user", e.UserID).Msg("voice log write failed")
	}
}

// onThreadCreate records thread creations.
func (b *Bot) onThreadCreate(s *discordgo.Session, t *discordgo.ThreadCreate) {
	rec := storage.ThreadLog{
		ThreadID:  t.ID,
		ParentID:  t.ParentID,
		GuildID:   t.GuildID,
		Name:      t.Name,
		OwnerID:   t.OwnerID,
		Timestamp: time.Now(),
	}
	if err := b.store.AppendThreadLog(rec); err != nil {
		b.log.Warn().Err(err).Str("thread", t.ID).Msg("thread log write failed")
	}
}
