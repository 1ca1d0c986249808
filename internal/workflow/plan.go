package workflow

import (
	"context"
	"os"

	"mmt/internal/logging"
	"mmt/internal/services"
	"mmt/internal/transcode"
)

// Plan derives every tier's directive for source without encoding.
// Subtitles downloaded for the plan are deleted before returning and
// listed in each directive's Downloaded field.
func (p *Processor) Plan(ctx context.Context, source string, req Request) ([]transcode.Directive, error) {
	ctx = services.WithSource(ctx, source)
	logger := logging.WithContext(ctx, p.logger)

	desc, err := p.ValidateSource(ctx, source)
	if err != nil {
		return nil, err
	}
	tiers, err := p.Tiers(desc)
	if err != nil {
		return nil, err
	}

	downloaded := p.downloadSubtitles(ctx, logger, desc, req)
	defer func() {
		for _, path := range downloaded {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.Debug("downloaded subtitle not removed", logging.String("path", path), logging.Error(err))
			}
		}
	}()

	policy := transcode.AudioPolicy(p.cfg)
	directives := make([]transcode.Directive, 0, len(tiers))
	for _, tier := range tiers {
		d, err := p.planner.Build(services.WithTier(ctx, int(tier)), desc, tier, policy)
		if err != nil {
			return nil, err
		}
		d.Downloaded = downloaded
		directives = append(directives, d)
	}
	return directives, nil
}
