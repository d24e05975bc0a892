package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/server-warden/datastore"
)

// SettingCacheImages is the settings key toggling attachment caching,
// value "on" or "off".
const SettingCacheImages = "cache_images"

// Key prefixes. Snowflake and timestamp ids are zero-padded to 20 digits so
// lexicographic key order matches numeric order.
const (
	keySettings        = "settings"
	keyWhitelist       = "whitelist"
	keyRecommendCursor = "scan:recommend"

	prefixMessageLog  = "msglog:"
	prefixAttachment  = "attlog:"
	prefixVoiceLog    = "voicelog:"
	prefixThreadLog   = "threadlog:"
	prefixCommandLog  = "cmdlog:"
	prefixMediaLog    = "medialog:"
	prefixScanChannel = "scan:channel:"
	prefixPoll        = "poll:"
	prefixGuildInfo   = "guild:"
)

// Storage is the domain persistence layer over the JSON datastore.
type Storage struct {
	ds  *datastore.DataStore
	log zerolog.Logger
}

// New opens (or creates) the datastore file at path.
func New(path string, log zerolog.Logger) (*Storage, error) {
	ds, err := datastore.New(path, log)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds, log: log.With().Str("comp", "storage").Logger()}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// GuildInfo is the per-guild row refreshed by the membership sync job.
type GuildInfo struct {
	GuildID     string    `json:"guild_id"`
	Name        string    `json:"name"`
	MemberCount int       `json:"member_count"`
	SyncedAt    time.Time `json:"synced_at"`
}

// SetGuildInfo upserts the membership row for one guild.
func (s *Storage) SetGuildInfo(info GuildInfo) error {
	s.ds.Set(prefixGuildInfo+info.GuildID, info)
	return nil
}

// GetGuildInfo returns the membership row for one guild, nil if absent.
func (s *Storage) GetGuildInfo(guildID string) (*GuildInfo, error) {
	raw, ok := s.ds.Get(prefixGuildInfo + guildID)
	if !ok {
		return nil, nil
	}
	return decode[GuildInfo](raw)
}

// GetSetting returns a settings value and whether it was present.
func (s *Storage) GetSetting(name string) (string, bool, error) {
	settings, err := s.settings()
	if err != nil {
		return "", false, err
	}
	v, ok := settings[name]
	return v, ok, nil
}

// SetSetting upserts a settings value.
func (s *Storage) SetSetting(name, value string) error {
	settings, err := s.settings()
	if err != nil {
		return err
	}
	settings[name] = value
	s.ds.Set(keySettings, settings)
	return nil
}

func (s *Storage) settings() (map[string]string, error) {
	raw, ok := s.ds.Get(keySettings)
	if !ok {
		return map[string]string{}, nil
	}
	m, err := decode[map[string]string](raw)
	if err != nil {
		return nil, err
	}
	return *m, nil
}

// decode re-marshals a datastore value (map[string]any after a reload) into a
// concrete record type.
func decode[T any](v any) (*T, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal stored value: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal stored value: %w", err)
	}
	return &out, nil
}

// padID renders a numeric id string as a fixed-width key segment.
func padID(id string) string {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		// Non-numeric ids sort after all padded ones, which is fine.
		return id
	}
	return fmt.Sprintf("%020d", n)
}
