package workflow

import (
	"context"
	"fmt"
	"strings"

	"mmt/internal/logging"
	"mmt/internal/preflight"
	"mmt/internal/services"
)

// Preflight runs the local readiness checks. Failed checks block
// processing; warnings are logged and ignored.
func (p *Processor) Preflight(ctx context.Context) error {
	logger := logging.WithContext(ctx, p.logger)
	var failures []string
	for _, r := range preflight.Local(ctx, p.cfg) {
		switch {
		case !r.Passed:
			logger.Error("preflight check failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_failed"),
				logging.String(logging.FieldErrorHint, "fix the reported issue and retry"),
			)
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		case r.Warning:
			logging.WarnWithContext(logger, "preflight check warning", "preflight_warning",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldErrorHint, "free space or adjust output.min_free_gib"),
				logging.String(logging.FieldImpact, "encodes may fail when the disk fills"),
			)
		default:
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
			)
		}
	}
	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", "local checks", strings.Join(failures, "; "), nil)
	}
	return nil
}
