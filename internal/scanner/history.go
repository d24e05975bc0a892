// Package scanner implements the two resumable history scans: archiving
// channel backlogs and mining archived messages for media recommendations.
// Both follow the same pattern: a bounded unit of work per invocation with a
// durable progress marker, so re-runs never redo completed work.
package scanner

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/keshon/server-warden/internal/storage"
)

// HistoryClient is the remote read surface of the channel scanner.
type HistoryClient interface {
	Guilds() []*discordgo.Guild
	TextChannels(guildID string) ([]*discordgo.Channel, error)
	MessagesBefore(channelID, beforeID string, limit int) ([]*discordgo.Message, error)
}

// HistoryStore is the persistence surface of the channel scanner.
type HistoryStore interface {
	ChannelCheckpoint(channelID string) (*storage.ScanCheckpoint, error)
	SetChannelCheckpoint(cp storage.ScanCheckpoint) error
	AppendMessageLog(rec storage.MessageLog) error
	AppendAttachmentLog(rec storage.AttachmentLog) error
}

// HistoryConfig bounds the work done per invocation.
type HistoryConfig struct {
	MaxChannelsPerRun     int
	MaxMessagesPerChannel int
	BatchSize             int
	BatchDelay            time.Duration
}

// HistoryScanner drains channel backlogs across invocations: at most
// MaxChannelsPerRun not-yet-scanned channels per run, paging backward from
// the newest message in fixed batches.
type HistoryScanner struct {
	client  HistoryClient
	store   HistoryStore
	cfg     HistoryConfig
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewHistoryScanner(client HistoryClient, store HistoryStore, cfg HistoryConfig, log zerolog.Logger) *HistoryScanner {
	if cfg.MaxChannelsPerRun <= 0 {
		cfg.MaxChannelsPerRun = 5
	}
	if cfg.MaxMessagesPerChannel <= 0 {
		cfg.MaxMessagesPerChannel = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = time.Second
	}
	return &HistoryScanner{
		client:  client,
		store:   store,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.BatchDelay), 1),
		log:     log.With().Str("comp", "history-scanner").Logger(),
	}
}

// Run performs one bounded invocation. Channels whose checkpoint is already
// marked scanned are skipped without any remote fetch.
func (sc *HistoryScanner) Run(ctx context.Context) error {
	picked := 0
	for _, g := range sc.client.Guilds() {
		channels, err := sc.client.TextChannels(g.ID)
		if err != nil {
			sc.log.Warn().Err(err).Str("guild", g.ID).Msg("channel list fetch failed")
			continue
		}

		for _, ch := range channels {
			if picked >= sc.cfg.MaxChannelsPerRun {
				sc.log.Info().Int("channels", picked).Msg("per-run channel limit reached")
				return nil
			}

			cp, err := sc.store.ChannelCheckpoint(ch.ID)
			if err != nil {
				sc.log.Warn().Err(err).Str("channel", ch.ID).Msg("checkpoint read failed")
				continue
			}
			if cp != nil && cp.Scanned {
				continue
			}

			picked++
			sc.scanChannel(ctx, g, ch)

			// Pace between channels as well as between batches.
			if err := sc.limiter.Wait(ctx); err != nil {
				return nil
			}
		}
	}
	return nil
}

// scanChannel pages backward through one channel's history and writes its
// checkpoint exactly once, when the scan completes or is abandoned on a
// fetch error. A cancelled context leaves no checkpoint: the channel is
// rescanned from the newest message next run, and message rows are keyed by
// id so the rescan upserts rather than duplicates.
func (sc *HistoryScanner) scanChannel(ctx context.Context, g *discordgo.Guild, ch *discordgo.Channel) {
	log := sc.log.With().Str("guild", g.ID).Str("channel", ch.ID).Logger()

	var before, oldest string
	count := 0

	for count < sc.cfg.MaxMessagesPerChannel {
		limit := sc.cfg.BatchSize
		if remaining := sc.cfg.MaxMessagesPerChannel - count; remaining < limit {
			limit = remaining
		}

		msgs, err := sc.client.MessagesBefore(ch.ID, before, limit)
		if err != nil {
			// Marked scanned anyway: a channel the bot cannot read must not
			// be retried forever. Partial progress is kept.
			log.Warn().Err(err).Msg("history fetch failed, abandoning channel")
			break
		}
		if len(msgs) == 0 {
			break
		}

		for _, m := range msgs {
			if m.Author == nil || m.Author.Bot {
				continue
			}
			sc.persistMessage(g, ch, m, log)
		}

		count += len(msgs)
		// The API returns newest first; the last entry is the oldest seen.
		oldest = msgs[len(msgs)-1].ID
		before = oldest

		if err := sc.limiter.Wait(ctx); err != nil {
			log.Info().Int("messages", count).Msg("scan interrupted by shutdown, channel will be rescanned")
			return
		}
	}
	if ctx.Err() != nil {
		log.Info().Int("messages", count).Msg("scan interrupted by shutdown, channel will be rescanned")
		return
	}

	cp := storage.ScanCheckpoint{
		ChannelID:    ch.ID,
		Scanned:      true,
		OldestSeenID: oldest,
		MessageCount: count,
		UpdatedAt:    time.Now(),
	}
	if err := sc.store.SetChannelCheckpoint(cp); err != nil {
		log.Error().Err(err).Msg("checkpoint write failed")
		return
	}
	log.Info().Int("messages", count).Msg("channel scan complete")
}

func (sc *HistoryScanner) persistMessage(g *discordgo.Guild, ch *discordgo.Channel, m *discordgo.Message, log zerolog.Logger) {
	rec := storage.MessageLog{
		MessageID:   m.ID,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		GuildID:     g.ID,
		AuthorID:    m.Author.ID,
		AuthorName:  m.Author.Username,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
	}
	if err := sc.store.AppendMessageLog(rec); err != nil {
		log.Warn().Err(err).Str("message", m.ID).Msg("message log write failed")
	}

	for _, a := range m.Attachments {
		att := storage.AttachmentLog{
			MessageID:   m.ID,
			ChannelID:   ch.ID,
			GuildID:     g.ID,
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
			Timestamp:   m.Timestamp,
		}
		if err := sc.store.AppendAttachmentLog(att); err != nil {
			log.Warn().Err(err).Str("message", m.ID).Msg("attachment log write failed")
		}
	}
}
