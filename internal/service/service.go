package service

import (
	"sync"

	"calmgr/internal/calendar"
)

// Service serializes access to a calendar.Manager. The web server, the
// publisher and the CLI only reach the manager through it.
type Service struct {
	mu sync.Mutex
	m  *calendar.Manager
}

func New(m *calendar.Manager) *Service {
	if m == nil {
		m = calendar.NewManager()
	}
	return &Service{m: m}
}

// Do runs cmd with exclusive access to the manager.
func (s *Service) Do(cmd calendar.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Run(cmd)
}

// View runs fn with exclusive access to the manager. fn must not keep
// references to calendars after it returns.
func (s *Service) View(fn func(m *calendar.Manager)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.m)
}

// Update is View for callers that report an error.
func (s *Service) Update(fn func(m *calendar.Manager) error) error {
	return s.Do(calendar.RegistryCommand(fn))
}
