package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRouterServesMetrics(t *testing.T) {
	RecordTier(1080, "success", 90*time.Second)
	RecordFile("completed")
	AudioEntriesTotal.WithLabelValues("primary").Inc()

	server := httptest.NewServer(Router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{
		`mmt_tiers_encoded_total{status="success",tier="1080"}`,
		`mmt_files_processed_total{status="completed"}`,
		`mmt_encode_duration_seconds_bucket{tier="1080",le="120"}`,
		`mmt_audio_entries_total{kind="primary"}`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}

	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}
}

func TestWriteTextfile(t *testing.T) {
	RecordFile("failed")
	path := filepath.Join(t.TempDir(), "mmt.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `mmt_files_processed_total{status="failed"}`) {
		t.Fatalf("textfile missing counter:\n%s", data)
	}
	if err := WriteTextfile(""); err != nil {
		t.Fatalf("empty path should be ignored: %v", err)
	}
}
