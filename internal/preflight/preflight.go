package preflight

import (
	"context"
	"strings"

	"mmt/internal/config"
)

// Result reports the outcome of a single preflight check. Warning results
// pass but deserve attention.
type Result struct {
	Name    string
	Passed  bool
	Warning bool
	Detail  string
}

// Local runs the binary, directory and free-space checks.
func Local(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, tool := range CheckSystemDeps(ctx, cfg) {
		results = append(results, Result{Name: tool.Name, Passed: tool.Found, Detail: tool.Summary()})
	}

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	for _, dir := range outputDirs(cfg) {
		results = append(results, CheckDirectoryAccess(dir.name, dir.path))
		if cfg.Output.MinFreeGiB > 0 {
			results = append(results, CheckFreeSpace(dir.name+" free space", dir.path, cfg.Output.MinFreeGiB))
		}
	}
	return results
}

// Remote checks enabled downstream services.
func Remote(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	if cfg.Plex.Refresh {
		results = append(results, CheckPlex(ctx, cfg.Plex.URL, cfg.Plex.Token))
	}
	if cfg.Jellyfin.Enabled {
		results = append(results, CheckJellyfin(ctx, cfg.Jellyfin.URL, cfg.Jellyfin.APIKey))
	}
	if cfg.Radarr.Rescan {
		results = append(results, CheckRadarr(ctx, cfg.Radarr.URL, cfg.Radarr.APIKey))
	}
	return results
}

// RunAll runs Local and Remote.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return append(Local(ctx, cfg), Remote(ctx, cfg)...)
}

// Failures returns the results that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

type namedDir struct {
	name string
	path string
}

func outputDirs(cfg *config.Config) []namedDir {
	var dirs []namedDir
	if path := strings.TrimSpace(cfg.Paths.OutputDir); path != "" {
		dirs = append(dirs, namedDir{"Output directory", path})
	}
	if path := strings.TrimSpace(cfg.Output.MoveTo); path != "" {
		dirs = append(dirs, namedDir{"Move-to directory", path})
	}
	return dirs
}
