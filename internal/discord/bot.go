package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/server-warden/internal/command"
	"github.com/keshon/server-warden/internal/config"
	"github.com/keshon/server-warden/internal/moderation"
	"github.com/keshon/server-warden/internal/scheduler"
	"github.com/keshon/server-warden/internal/storage"
)

// Bot owns the Discord session and wires the command dispatcher and the job
// scheduler to it.
type Bot struct {
	cfg   *config.Config
	store *storage.Storage
	log   zerolog.Logger

	dg         *discordgo.Session
	session    *Session
	dispatcher *command.Dispatcher
	sched      *scheduler.Scheduler

	runCtx    context.Context
	startOnce sync.Once
}

func NewBot(cfg *config.Config, store *storage.Storage, log zerolog.Logger) *Bot {
	return &Bot{
		cfg:   cfg,
		store: store,
		log:   log.With().Str("comp", "discord").Logger(),
	}
}

// Run opens the session and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	b.dg = dg
	b.runCtx = ctx
	b.session = NewSession(dg)

	exec := moderation.NewExecutor(b.session, b.log)
	b.dispatcher = command.NewDispatcher(b.store, exec, b.session, b.log)
	b.sched = scheduler.New(b.log)

	b.configureIntents()
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onVoiceStateUpdate)
	dg.AddHandler(b.onThreadCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing session")
	return nil
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildVoiceStates |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent
}

// onReady seeds the whitelist and starts the periodic jobs. Jobs start once,
// after the session signals readiness; reconnects do not restart them.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().Int("guilds", len(r.Guilds)).Msg("session ready")

	for _, id := range b.cfg.AdminIDs {
		if err := b.store.AddWhitelisted(id); err != nil {
			b.log.Warn().Err(err).Str("user", id).Msg("whitelist seed failed")
		}
	}
	b.seedCacheSetting()

	b.startOnce.Do(b.startJobs)
}

// seedCacheSetting writes the configured image-caching default, unless an
// operator already toggled it at runtime.
func (b *Bot) seedCacheSetting() {
	_, found, err := b.store.GetSetting(storage.SettingCacheImages)
	if err != nil {
		b.log.Warn().Err(err).Msg("cache setting read failed")
		return
	}
	if found {
		return
	}
	mode := "on"
	if !b.cfg.CacheImages {
		mode = "off"
	}
	if err := b.store.SetSetting(storage.SettingCacheImages, mode); err != nil {
		b.log.Warn().Err(err).Msg("cache setting seed failed")
	}
}

func (b *Bot) imageCachingEnabled() bool {
	v, found, err := b.store.GetSetting(storage.SettingCacheImages)
	if err != nil || !found {
		return true
	}
	return v != "off"
}

// onMessageCreate routes DMs to the command dispatcher and archives guild
// traffic into the same message log the history scanner backfills.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}

	if m.GuildID == "" {
		b.dispatcher.Dispatch(m.Author.ID, m.Author.Username, m.Content)
		return
	}

	rec := storage.MessageLog{
		MessageID:  m.ID,
		ChannelID:  m.ChannelID,
		GuildID:    m.GuildID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Content:    m.Content,
		Timestamp:  m.Timestamp,
	}
	if ch, err := s.State.Channel(m.ChannelID); err == nil && ch != nil {
		rec.ChannelName = ch.Name
	}
	if err := b.store.AppendMessageLog(rec); err != nil {
		b.log.Warn().Err(err).Str("message", m.ID).Msg("message log write failed")
	}

	if len(m.Attachments) > 0 && !b.imageCachingEnabled() {
		return
	}
	for _, a := range m.Attachments {
		att := storage.AttachmentLog{
			MessageID:   m.ID,
			ChannelID:   m.ChannelID,
			GuildID:     m.GuildID,
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
			Timestamp:   m.Timestamp,
		}
		if err := b.store.AppendAttachmentLog(att); err != nil {
			b.log.Warn().Err(err).Str("message", m.ID).Msg("attachment log write failed")
		}
	}
}
