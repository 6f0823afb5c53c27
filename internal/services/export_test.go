package services

import "time"

// Test hooks for pinning the clock.

func (s *ChatService) SetNowFunc(now func() time.Time) {
	s.now = now
}

func (s *LocationService) SetNowFunc(now func() time.Time) {
	s.now = now
}
