package discord

import (
	"context"
	"time"

	"github.com/keshon/server-warden/internal/extractor"
	"github.com/keshon/server-warden/internal/scanner"
	"github.com/keshon/server-warden/internal/scheduler"
	"github.com/keshon/server-warden/internal/storage"
)

// startJobs registers the fixed job set and starts the scheduler. The set is
// static for the process lifetime.
func (b *Bot) startJobs() {
	hist := scanner.NewHistoryScanner(b.session, b.store, scanner.HistoryConfig{
		MaxChannelsPerRun:     b.cfg.ScanMaxChannelsPerRun,
		MaxMessagesPerChannel: b.cfg.ScanMaxMessagesPerChannel,
		BatchSize:             b.cfg.ScanBatchSize,
		BatchDelay:            b.cfg.ScanBatchDelay,
	}, b.log)
	recommend := scanner.NewRecommendScanner(b.store, extractor.New(), b.cfg.RecommendBatchSize, b.log)

	jobs := []struct {
		name string
		spec string
		task scheduler.Task
	}{
		{"membership-sync", "@every 12h", b.syncMemberships},
		{"stale-media-cleanup", "@daily", b.cleanupStaleMedia},
		{"channel-history-scan", "@hourly", hist.Run},
		{"expired-poll-sweep", "@hourly", b.sweepExpiredPolls},
		{"stale-log-cleanup", "@daily", b.cleanupStaleLogs},
		{"recommendation-scan", "@every 30m", recommend.Run},
	}
	for _, j := range jobs {
		if err := b.sched.Register(j.name, j.spec, j.task); err != nil {
			b.log.Error().Err(err).Str("job", j.name).Msg("job registration failed")
		}
	}

	b.sched.Start(b.runCtx)
}

// syncMemberships refreshes per-guild membership rows from the state snapshot.
func (b *Bot) syncMemberships(ctx context.Context) error {
	synced := 0
	for _, g := range b.session.Guilds() {
		info := storage.GuildInfo{
			GuildID:     g.ID,
			Name:        g.Name,
			MemberCount: g.MemberCount,
			SyncedAt:    time.Now(),
		}
		if err := b.store.SetGuildInfo(info); err != nil {
			b.log.Warn().Err(err).Str("guild", g.ID).Msg("membership sync write failed")
			continue
		}
		synced++
	}
	b.log.Info().Int("guilds", synced).Msg("membership sync complete")
	return nil
}

func (b *Bot) cleanupStaleMedia(ctx context.Context) error {
	deleted, err := b.store.DeleteStaleRecommendations(b.cfg.MediaRetentionDays)
	if err != nil {
		return err
	}
	b.log.Info().Int("deleted", deleted).Msg("stale media cleanup complete")
	return nil
}

func (b *Bot) sweepExpiredPolls(ctx context.Context) error {
	polls, err := b.store.ExpiredPolls(time.Now())
	if err != nil {
		return err
	}
	for _, p := range polls {
		if err := b.store.ClosePoll(p.PollID); err != nil {
			b.log.Warn().Err(err).Str("poll", p.PollID).Msg("poll close failed")
		}
	}
	b.log.Info().Int("closed", len(polls)).Msg("expired poll sweep complete")
	return nil
}

func (b *Bot) cleanupStaleLogs(ctx context.Context) error {
	counts, err := b.store.PurgeOlderThan(b.cfg.LogRetentionDays)
	if err != nil {
		return err
	}
	evt := b.log.Info()
	for table, n := range counts {
		evt = evt.Int(table, n)
	}
	evt.Msg("stale log cleanup complete")
	return nil
}
