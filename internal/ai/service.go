package ai

import (
	"fmt"

	"github.com/adpilot/pkg/logger"
)

// Service routes generation requests to a named provider and parses
// the responses into structured copy and keyword results
type Service struct {
	providers   map[string]Provider
	order       []string
	defaultName string
	log         *logger.Logger
}

// NewService creates a service over the given providers. defaultName
// selects which provider handles requests that don't name one.
func NewService(defaultName string, log *logger.Logger, providers ...Provider) *Service {
	s := &Service{
		providers:   make(map[string]Provider),
		defaultName: defaultName,
		log:         log.WithComponent("ai"),
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
		s.order = append(s.order, p.Name())
	}
	return s
}

// Provider returns the named provider, or the default when name is ""
func (s *Service) Provider(name string) (Provider, error) {
	if name == "" {
		name = s.defaultName
	}
	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

// Providers lists all registered providers with availability flags
func (s *Service) Providers() []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(s.order))
	for _, name := range s.order {
		p := s.providers[name]
		infos = append(infos, ProviderInfo{
			Name:      p.Name(),
			Available: p.Available(),
			Default:   p.Name() == s.defaultName,
		})
	}
	return infos
}
