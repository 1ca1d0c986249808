package tagging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"mmt/internal/logging"
	"mmt/internal/services"
)

// Remuxer stream-copies input to output with extra output options.
type Remuxer interface {
	Remux(ctx context.Context, input, output string, extra ...string) error
}

// Metadata is what gets written into an output.
type Metadata struct {
	Title    string
	Year     int
	Comment  string
	TMDBID   string
	Season   int
	Episode  int
	Language string
}

// Args renders m as ffmpeg -metadata options.
func (m Metadata) Args() []string {
	var args []string
	add := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			args = append(args, "-metadata", key+"="+value)
		}
	}
	add("title", m.Title)
	if m.Year > 0 {
		add("date", strconv.Itoa(m.Year))
	}
	comment := m.Comment
	if comment == "" && m.TMDBID != "" {
		comment = "tmdb:" + m.TMDBID
	}
	add("comment", comment)
	if m.Season > 0 {
		add("season_number", strconv.Itoa(m.Season))
	}
	if m.Episode > 0 {
		add("episode_sort", strconv.Itoa(m.Episode))
	}
	add("language", m.Language)
	return args
}

// Tagger applies Metadata to finished files.
type Tagger struct {
	remuxer Remuxer
	logger  *slog.Logger
	verify  func(path string) (string, error)
}

// New returns a Tagger that remuxes through remuxer.
func New(remuxer Remuxer, logger *slog.Logger) *Tagger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tagger{remuxer: remuxer, logger: logger, verify: readTitle}
}

// Tag rewrites path with meta. An empty title is derived from the file
// name.
func (t *Tagger) Tag(ctx context.Context, path string, meta Metadata) error {
	if t == nil || t.remuxer == nil {
		return nil
	}
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title, meta.Year = ParseName(path)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".tagging"+filepath.Ext(path))
	if err := t.remuxer.Remux(ctx, path, tmp, meta.Args()...); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrTagging, "tag", "remux", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrTagging, "tag", "replace output", filepath.Base(path), err)
	}

	if !verifiable(path) {
		t.logger.Debug("tag verification skipped", logging.String("file", filepath.Base(path)))
		return nil
	}
	got, err := t.verify(path)
	if err != nil {
		return services.Wrap(services.ErrTagging, "tag", "read back", filepath.Base(path), err)
	}
	if got != meta.Title {
		return services.Wrap(services.ErrTagging, "tag", "verify", fmt.Sprintf("title %q, expected %q", got, meta.Title), nil)
	}
	t.logger.Info("output tagged",
		logging.String("file", filepath.Base(path)),
		logging.String("title", meta.Title),
		logging.Int("year", meta.Year),
	)
	return nil
}

func verifiable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v", ".mov":
		return true
	}
	return false
}

func readTitle(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(m.Title()), nil
}
