package capabilities

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"mmt/internal/services"
)

// Set records what an ffmpeg build supports.
type Set struct {
	HWAccels []string
	Encoders map[string]struct{}
	Decoders map[string]struct{}
}

// Querier returns the capability set of the configured encoder binary.
type Querier interface {
	Query(ctx context.Context) (Set, error)
}

// Command queries an ffmpeg executable.
type Command struct {
	Binary string
}

// Query implements Querier.
func (c Command) Query(ctx context.Context) (Set, error) {
	return Query(ctx, c.Binary)
}

// Static is a fixed Querier, used when probing is not wanted.
type Static Set

// Query implements Querier.
func (s Static) Query(context.Context) (Set, error) {
	return Set(s), nil
}

// Query runs `-hwaccels`, `-encoders` and `-decoders` concurrently. Any
// failure yields an empty Set and an ErrHWAccelUnavailable error.
func Query(ctx context.Context, binary string) (Set, error) {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	var (
		accelOut, encOut, decOut []byte
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		accelOut, err = run(gctx, binary, "-hwaccels")
		return err
	})
	group.Go(func() (err error) {
		encOut, err = run(gctx, binary, "-encoders")
		return err
	})
	group.Go(func() (err error) {
		decOut, err = run(gctx, binary, "-decoders")
		return err
	})
	if err := group.Wait(); err != nil {
		return Set{}, services.Wrap(services.ErrHWAccelUnavailable, "capabilities", "query", "ffmpeg capability query failed", err)
	}
	return Set{
		HWAccels: ParseHWAccels(accelOut),
		Encoders: ParseCodecList(encOut),
		Decoders: ParseCodecList(decOut),
	}, nil
}

func run(ctx context.Context, binary, flag string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, "-hide_banner", flag) //nolint:gosec
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", binary, flag, err)
	}
	return out, nil
}

// ParseHWAccels reads the output of `ffmpeg -hwaccels`.
func ParseHWAccels(output []byte) []string {
	var accels []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		accels = append(accels, line)
	}
	return accels
}

// ParseCodecList reads the output of `ffmpeg -encoders` or `-decoders`.
// Entries follow the "------" separator as a flag column then the name.
func ParseCodecList(output []byte) map[string]struct{} {
	names := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(output))
	started := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !started {
			started = strings.HasPrefix(line, "---")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		names[fields[1]] = struct{}{}
	}
	return names
}

// HasHWAccel reports whether accel is listed.
func (s Set) HasHWAccel(accel string) bool {
	for _, a := range s.HWAccels {
		if a == accel {
			return true
		}
	}
	return false
}

// HasEncoder reports whether the named encoder is available.
func (s Set) HasEncoder(name string) bool {
	_, ok := s.Encoders[name]
	return ok
}

// HasDecoder reports whether the named decoder is available.
func (s Set) HasDecoder(name string) bool {
	_, ok := s.Decoders[name]
	return ok
}

// Sorted returns the names of a codec map in order, for display.
func Sorted(names map[string]struct{}) []string {
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewStatic builds a Static set from name lists.
func NewStatic(accels, encoders, decoders []string) Static {
	set := Static{HWAccels: append([]string(nil), accels...), Encoders: map[string]struct{}{}, Decoders: map[string]struct{}{}}
	for _, e := range encoders {
		set.Encoders[e] = struct{}{}
	}
	for _, d := range decoders {
		set.Decoders[d] = struct{}{}
	}
	return set
}
