package storage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MessageLog is one archived guild message. Keyed by message id, so
// re-scanning a channel upserts rather than duplicates.
type MessageLog struct {
	MessageID   string    `json:"message_id"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	GuildID     string    `json:"guild_id"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}

// AttachmentLog records attachment metadata for an archived message.
type AttachmentLog struct {
	MessageID   string    `json:"message_id"`
	ChannelID   string    `json:"channel_id"`
	GuildID     string    `json:"guild_id"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	Timestamp   time.Time `json:"timestamp"`
}

// VoiceLog records a voice channel join, leave or move.
type VoiceLog struct {
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"` // "join", "leave", "move"
	Timestamp time.Time `json:"timestamp"`
}

// ThreadLog records a thread creation.
type ThreadLog struct {
	ThreadID  string    `json:"thread_id"`
	ParentID  string    `json:"parent_id"`
	GuildID   string    `json:"guild_id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CommandLog records one dispatched command and its outcome.
type CommandLog struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Verb        string    `json:"verb"`
	ChannelKind string    `json:"channel_kind"`
	Content     string    `json:"content"`
	Success     bool      `json:"success"`
	Timestamp   time.Time `json:"timestamp"`
}

func (s *Storage) AppendMessageLog(rec MessageLog) error {
	s.ds.Set(prefixMessageLog+padID(rec.MessageID), rec)
	return nil
}

func (s *Storage) AppendAttachmentLog(rec AttachmentLog) error {
	s.ds.Set(prefixAttachment+padID(rec.MessageID)+":"+rec.Filename, rec)
	return nil
}

func (s *Storage) AppendVoiceLog(rec VoiceLog) error {
	key := fmt.Sprintf("%s%020d:%s", prefixVoiceLog, rec.Timestamp.UnixNano(), rec.UserID)
	s.ds.Set(key, rec)
	return nil
}

func (s *Storage) AppendThreadLog(rec ThreadLog) error {
	s.ds.Set(prefixThreadLog+padID(rec.ThreadID), rec)
	return nil
}

func (s *Storage) AppendCommandLog(rec CommandLog) error {
	key := fmt.Sprintf("%s%020d:%s", prefixCommandLog, rec.Timestamp.UnixNano(), rec.UserID)
	s.ds.Set(key, rec)
	return nil
}

// MessageLogBatchAfter returns up to limit archived messages with numeric id
// strictly greater than after, in ascending id order.
func (s *Storage) MessageLogBatchAfter(after uint64, limit int) ([]MessageLog, error) {
	keys := s.ds.Keys(prefixMessageLog)

	type entry struct {
		id  uint64
		key string
	}
	candidates := make([]entry, 0, len(keys))
	for _, k := range keys {
		id, err := strconv.ParseUint(strings.TrimPrefix(k, prefixMessageLog), 10, 64)
		if err != nil || id <= after {
			continue
		}
		candidates = append(candidates, entry{id: id, key: k})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].id < candidates[j].id })

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]MessageLog, 0, len(candidates))
	for _, c := range candidates {
		raw, ok := s.ds.Get(c.key)
		if !ok {
			continue
		}
		rec, err := decode[MessageLog](raw)
		if err != nil {
			s.log.Warn().Err(err).Str("key", c.key).Msg("skipping undecodable message log row")
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

// PurgeOlderThan bulk-deletes log rows older than the given number of days
// and returns per-table deleted counts.
func (s *Storage) PurgeOlderThan(days int) (map[string]int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	counts := map[string]int{}

	for table, prefix := range map[string]string{
		"messages":    prefixMessageLog,
		"attachments": prefixAttachment,
		"voice":       prefixVoiceLog,
		"threads":     prefixThreadLog,
		"commands":    prefixCommandLog,
	} {
		n, err := s.purgePrefix(prefix, cutoff)
		if err != nil {
			return counts, err
		}
		counts[table] = n
	}
	return counts, nil
}

// purgePrefix deletes rows under prefix whose timestamp predates cutoff.
func (s *Storage) purgePrefix(prefix string, cutoff time.Time) (int, error) {
	type stamped struct {
		Timestamp time.Time `json:"timestamp"`
	}

	deleted := 0
	for _, key := range s.ds.Keys(prefix) {
		raw, ok := s.ds.Get(key)
		if !ok {
			continue
		}
		rec, err := decode[stamped](raw)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("skipping undecodable row during purge")
			continue
		}
		if rec.Timestamp.Before(cutoff) {
			s.ds.Delete(key)
			deleted++
		}
	}
	return deleted, nil
}
