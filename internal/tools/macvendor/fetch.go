package macvendor

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
	"github.com/haasonsaas/netprobe/internal/tools"
)

const (
	manufGzURL    = "https://www.wireshark.org/download/automated/data/manuf.gz"
	manufPlainURL = "https://www.wireshark.org/download/automated/data/manuf"
)

// confirmFunc asks the user before a download. Replaced in tests; the
// silent path skips it entirely.
var confirmFunc = promptConfirm

func promptConfirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// writeAtomic writes data to path via a temp file and rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".manuf-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// fetchURL downloads one URL, transparently gunzipping when compressed.
func fetchURL(ctx context.Context, client *http.Client, url string, gzipped bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", probe.UserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if gzipped {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gunzip: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	data, err := io.ReadAll(io.LimitReader(reader, 32<<20))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty download from %s", url)
	}
	return data, nil
}

// generateWithTshark asks a locally installed analyzer to dump its own
// manuf table. Last resort when the network is unavailable.
func generateWithTshark(ctx context.Context, target string) error {
	if _, ok := probe.BinaryPath("tshark"); !ok {
		return fmt.Errorf("tshark is not installed")
	}
	out, err := probe.Run(ctx, envelope.Timeout("file_download"), 0, "tshark", "-G", "manuf")
	if err != nil {
		return err
	}
	if out.ExitCode != 0 || out.Stdout == "" {
		return fmt.Errorf("tshark produced no manuf data")
	}
	return writeAtomic(target, []byte(out.Stdout))
}

// FetchManufFile downloads the latest manufacturer database, asking for
// confirmation unless silent mode is set. The gzipped URL is tried
// first, then the plain one, then a local analyzer dump.
func FetchManufFile(ctx context.Context, args map[string]any) *envelope.Result {
	silent := tools.BoolArg(args, "silent", false)
	target := downloadTarget()
	b := envelope.New("fetch_latest_wireshark_manuf_file").
		Target(target).
		Command("download manuf database").
		Options(map[string]any{"silent": silent})

	if !silent && !confirmFunc("Download the latest manufacturer database from wireshark.org?") {
		return b.FailureMessage(envelope.CodeCommandFailed, "download cancelled by user")
	}

	client := &http.Client{Timeout: envelope.Timeout("file_download")}
	var data []byte
	var source string
	var err error

	if data, err = fetchURL(ctx, client, manufGzURL, true); err == nil {
		source = manufGzURL
	} else if data, err = fetchURL(ctx, client, manufPlainURL, false); err == nil {
		source = manufPlainURL
	} else {
		if genErr := generateWithTshark(ctx, target); genErr == nil {
			return b.Success(map[string]any{
				"path":   target,
				"source": "tshark -G manuf",
			})
		}
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}

	if err := writeAtomic(target, data); err != nil {
		return b.Failure(envelope.CodePermissionError, map[string]any{"path": target})
	}
	return b.Success(map[string]any{
		"path":   target,
		"source": source,
		"bytes":  len(data),
	})
}
