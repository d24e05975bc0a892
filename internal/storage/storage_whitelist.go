package storage

import "slices"

// IsWhitelisted reports whether a user id is on the operator whitelist.
func (s *Storage) IsWhitelisted(userID string) (bool, error) {
	list, err := s.whitelist()
	if err != nil {
		return false, err
	}
	return slices.Contains(list, userID), nil
}

// AddWhitelisted adds a user id to the whitelist. Adding twice is a no-op.
func (s *Storage) AddWhitelisted(userID string) error {
	list, err := s.whitelist()
	if err != nil {
		return err
	}
	if slices.Contains(list, userID) {
		return nil
	}
	s.ds.Set(keyWhitelist, append(list, userID))
	return nil
}

// RemoveWhitelisted removes a user id from the whitelist.
func (s *Storage) RemoveWhitelisted(userID string) error {
	list, err := s.whitelist()
	if err != nil {
		return err
	}
	if i := slices.Index(list, userID); i >= 0 {
		s.ds.Set(keyWhitelist, slices.Delete(list, i, i+1))
	}
	return nil
}

func (s *Storage) whitelist() ([]string, error) {
	raw, ok := s.ds.Get(keyWhitelist)
	if !ok {
		return nil, nil
	}
	list, err := decode[[]string](raw)
	if err != nil {
		return nil, err
	}
	return *list, nil
}
