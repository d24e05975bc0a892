package storage

import "time"

// Poll is a community poll with a deadline, closed by the hourly sweep.
type Poll struct {
	PollID    string    `json:"poll_id"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	Question  string    `json:"question"`
	Options   []string  `json:"options"`
	EndsAt    time.Time `json:"ends_at"`
	Closed    bool      `json:"closed"`
}

// SetPoll upserts a poll row.
func (s *Storage) SetPoll(p Poll) error {
	s.ds.Set(prefixPoll+p.PollID, p)
	return nil
}

// ExpiredPolls returns open polls whose deadline is at or before now.
func (s *Storage) ExpiredPolls(now time.Time) ([]Poll, error) {
	var out []Poll
	for _, key := range s.ds.Keys(prefixPoll) {
		raw, ok := s.ds.Get(key)
		if !ok {
			continue
		}
		p, err := decode[Poll](raw)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("skipping undecodable poll row")
			continue
		}
		if !p.Closed && !p.EndsAt.After(now) {
			out = append(out, *p)
		}
	}
	return out, nil
}

// ClosePoll marks a poll closed. Closing an unknown poll is a no-op.
func (s *Storage) ClosePoll(pollID string) error {
	raw, ok := s.ds.Get(prefixPoll + pollID)
	if !ok {
		return nil
	}
	p, err := decode[Poll](raw)
	if err != nil {
		return err
	}
	p.Closed = true
	s.ds.Set(prefixPoll+pollID, *p)
	return nil
}
