package storage

import "time"

// ScanCheckpoint marks how far the history scan got in one channel. Written
// once per channel, when its scan completes or is abandoned on a fetch error.
type ScanCheckpoint struct {
	ChannelID    string    `json:"channel_id"`
	Scanned      bool      `json:"scanned"`
	OldestSeenID string    `json:"oldest_seen_id,omitempty"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChannelCheckpoint returns the checkpoint for a channel, nil if none exists.
func (s *Storage) ChannelCheckpoint(channelID string) (*ScanCheckpoint, error) {
	raw, ok := s.ds.Get(prefixScanChannel + channelID)
	if !ok {
		return nil, nil
	}
	return decode[ScanCheckpoint](raw)
}

// SetChannelCheckpoint upserts a channel checkpoint. The scanned flag is
// sticky: once true it never resets.
func (s *Storage) SetChannelCheckpoint(cp ScanCheckpoint) error {
	existing, err := s.ChannelCheckpoint(cp.ChannelID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Scanned {
		cp.Scanned = true
	}
	s.ds.Set(prefixScanChannel+cp.ChannelID, cp)
	return nil
}
