package postprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"mmt/internal/config"
	"mmt/internal/logging"
)

var commandContext = exec.CommandContext

var skippedExtensions = map[string]struct{}{
	".md": {}, ".txt": {}, ".sample": {}, ".ini": {}, ".json": {}, ".log": {},
}

// Env describes the finished source for scripts.
type Env struct {
	Files   []string
	TMDBID  string
	Season  int
	Episode int
}

// Vars renders e as environment assignments.
func (e Env) Vars() []string {
	files := e.Files
	if files == nil {
		files = []string{}
	}
	encoded, _ := json.Marshal(files)
	vars := []string{"MMT_FILES=" + string(encoded)}
	if e.TMDBID != "" {
		vars = append(vars, "MMT_TMDBID="+e.TMDBID)
	}
	if e.Season > 0 {
		vars = append(vars, "MMT_SEASON="+strconv.Itoa(e.Season))
	}
	if e.Episode > 0 {
		vars = append(vars, "MMT_EPISODE="+strconv.Itoa(e.Episode))
	}
	return vars
}

// Runner executes post-process scripts.
type Runner struct {
	entries []string
	wait    bool
	logger  *slog.Logger
}

// New returns a Runner for the [post_process] section.
func New(cfg config.PostProcess, logger *slog.Logger) *Runner {
	return &Runner{
		entries: cfg.Scripts,
		wait:    cfg.Wait,
		logger:  logging.NewComponentLogger(logger, "postprocess"),
	}
}

// Scripts expands configured entries into executables.
func (r *Runner) Scripts() []string {
	var scripts []string
	for _, entry := range r.entries {
		info, err := os.Stat(entry)
		if err != nil {
			logging.WarnWithContext(r.logger, "post-process script missing", "postprocess_missing",
				logging.String("script", entry),
				logging.String(logging.FieldErrorHint, "check post_process.scripts"),
				logging.Error(err),
			)
			continue
		}
		if !info.IsDir() {
			scripts = append(scripts, entry)
			continue
		}
		dirEntries, err := os.ReadDir(entry)
		if err != nil {
			logging.WarnWithContext(r.logger, "post-process directory unreadable", "postprocess_unreadable",
				logging.String("dir", entry),
				logging.Error(err),
			)
			continue
		}
		names := make([]string, 0, len(dirEntries))
		for _, d := range dirEntries {
			if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
				continue
			}
			if _, skip := skippedExtensions[strings.ToLower(filepath.Ext(d.Name()))]; skip {
				continue
			}
			if fi, err := d.Info(); err != nil || fi.Mode().Perm()&0o111 == 0 {
				continue
			}
			names = append(names, d.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			scripts = append(scripts, filepath.Join(entry, name))
		}
	}
	return scripts
}

// Run executes every script with env. It returns the number of scripts
// that failed to start or, when waiting, exited non-zero.
func (r *Runner) Run(ctx context.Context, env Env) int {
	logger := logging.WithContext(ctx, r.logger)
	failures := 0
	vars := append(os.Environ(), env.Vars()...)
	for _, script := range r.Scripts() {
		cmd := commandContext(ctx, script)
		cmd.Env = vars
		var output bytes.Buffer
		cmd.Stdout = &output
		cmd.Stderr = &output

		logger.Info("running post-process script", logging.String("script", script), logging.Bool("wait", r.wait))
		if err := cmd.Start(); err != nil {
			failures++
			logging.WarnWithContext(logger, "post-process script failed to start", "postprocess_failed",
				logging.String("script", script),
				logging.String(logging.FieldErrorHint, "check the script is executable"),
				logging.Error(err),
			)
			continue
		}
		if !r.wait {
			go func() { _ = cmd.Wait() }()
			continue
		}
		if err := cmd.Wait(); err != nil {
			failures++
			logging.WarnWithContext(logger, "post-process script failed", "postprocess_failed",
				logging.String("script", script),
				logging.String("output", strings.TrimSpace(output.String())),
				logging.Error(err),
			)
			continue
		}
		logger.Debug("post-process script finished", logging.String("script", script), logging.String("output", strings.TrimSpace(output.String())))
	}
	return failures
}
