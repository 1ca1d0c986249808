package plex

import "context"

// Service refreshes the Plex library that holds a path.
type Service interface {
	Refresh(ctx context.Context, path string) error
}

type noopService struct{}

func (noopService) Refresh(context.Context, string) error { return nil }

// NewNoopService returns a Service that does nothing.
func NewNoopService() Service { return noopService{} }
