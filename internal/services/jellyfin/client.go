package jellyfin

import "context"

// Service refreshes the Jellyfin library.
type Service interface {
	Refresh(ctx context.Context, path string) error
}

type noopService struct{}

func (noopService) Refresh(context.Context, string) error { return nil }

// NewNoopService returns a Service that does nothing.
func NewNoopService() Service { return noopService{} }
