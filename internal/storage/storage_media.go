package storage

import "time"

// Recommendation is one extracted media mention, persisted as a log row.
type Recommendation struct {
	Category   string    `json:"category"`
	Title      string    `json:"title"`
	URL        string    `json:"url,omitempty"`
	Confidence float64   `json:"confidence"`
	MessageID  string    `json:"message_id"`
	ChannelID  string    `json:"channel_id"`
	AuthorID   string    `json:"author_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// RecommendCursor is the singleton resume point of the recommendation scan.
type RecommendCursor struct {
	LastMessageID uint64    `json:"last_message_id"`
	ScannedCount  int64     `json:"scanned_count"`
	FoundCount    int64     `json:"found_count"`
	LastRun       time.Time `json:"last_run"`
}

// AppendRecommendation upserts one recommendation row, keyed by source
// message and title so a re-run does not duplicate.
func (s *Storage) AppendRecommendation(rec Recommendation) error {
	s.ds.Set(prefixMediaLog+padID(rec.MessageID)+":"+rec.Title, rec)
	return nil
}

// RecommendCursor returns the scan cursor, nil if the scan never ran.
func (s *Storage) RecommendCursor() (*RecommendCursor, error) {
	raw, ok := s.ds.Get(keyRecommendCursor)
	if !ok {
		return nil, nil
	}
	return decode[RecommendCursor](raw)
}

// SetRecommendCursor persists the scan cursor. The cursor only moves forward:
// a write that would step the message id backwards keeps the stored id.
func (s *Storage) SetRecommendCursor(cur RecommendCursor) error {
	existing, err := s.RecommendCursor()
	if err != nil {
		return err
	}
	if existing != nil && existing.LastMessageID > cur.LastMessageID {
		cur.LastMessageID = existing.LastMessageID
	}
	s.ds.Set(keyRecommendCursor, cur)
	return nil
}

// DeleteStaleRecommendations removes recommendation rows older than the given
// number of days and returns the deleted count.
func (s *Storage) DeleteStaleRecommendations(days int) (int, error) {
	return s.purgePrefix(prefixMediaLog, time.Now().AddDate(0, 0, -days))
}
