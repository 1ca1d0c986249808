package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"mmt/internal/config"
	"mmt/internal/deps"
)

const gib = 1 << 30

// CheckJellyfin verifies Jellyfin connectivity and authentication.
func CheckJellyfin(ctx context.Context, baseURL, apiKey string) Result {
	return checkHTTP(ctx, "Jellyfin", baseURL, "/Users", apiKey, "X-Emby-Token")
}

// CheckPlex verifies the Plex token against the server identity endpoint.
func CheckPlex(ctx context.Context, baseURL, token string) Result {
	return checkHTTP(ctx, "Plex", baseURL, "/library/sections", token, "X-Plex-Token")
}

// CheckRadarr verifies the Radarr API key.
func CheckRadarr(ctx context.Context, baseURL, apiKey string) Result {
	return checkHTTP(ctx, "Radarr", baseURL, "/api/v3/system/status", apiKey, "X-Api-Key")
}

func checkHTTP(ctx context.Context, name, baseURL, endpoint, key, header string) Result {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(key) == "" {
		return Result{Name: name, Detail: "missing credentials"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set(header, strings.TrimSpace(key))
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid credentials)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// FreeBytes reports the space available to unprivileged users at path.
func FreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// CheckFreeSpace warns when path has less than minGiB available. It never
// fails the run.
func CheckFreeSpace(name, path string, minGiB int) Result {
	free, err := FreeBytes(path)
	if err != nil {
		return Result{Name: name, Passed: true, Warning: true, Detail: fmt.Sprintf("%s (statfs: %v)", path, err)}
	}
	detail := fmt.Sprintf("%.1f GiB free", float64(free)/gib)
	if free < uint64(minGiB)*gib {
		return Result{Name: name, Passed: true, Warning: true, Detail: fmt.Sprintf("%s (below %d GiB)", detail, minGiB)}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckSystemDeps evaluates the encoder and prober binaries for cfg.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Tool {
	return deps.Tools(ctx, cfg.FFmpeg.Binary, cfg.FFmpeg.ProbeBinary)
}
