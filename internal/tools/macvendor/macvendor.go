// Package macvendor maps hardware addresses to manufacturers using a
// local copy of the Wireshark manufacturer database.
package macvendor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
	"github.com/haasonsaas/netprobe/internal/tools"
)

// staleAfter is the database age beyond which lookups warn.
const staleAfter = 90 * 24 * time.Hour

// NormalizeMAC strips separators and upcases a hardware address to its
// 12 hex digit canonical form. ok is false for malformed input.
func NormalizeMAC(raw string) (string, bool) {
	cleaned := strings.NewReplacer(":", "", "-", "", ".", "", " ", "", "\t", "").Replace(strings.TrimSpace(raw))
	if len(cleaned) != 12 {
		return "", false
	}
	cleaned = strings.ToUpper(cleaned)
	for _, c := range cleaned {
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return "", false
		}
	}
	return cleaned, true
}

// DB is a loaded manufacturer database indexed by hex-prefix length.
type DB struct {
	// byLen maps prefix length (in nibbles) to prefix -> vendor.
	byLen map[int]map[string]string
	// LoadedFrom is the file the entries came from.
	LoadedFrom string
	// ModTime is the file's modification time, used for staleness.
	ModTime time.Time
}

// LoadDB parses a manuf-format file.
func LoadDB(path string) (*DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	db := &DB{byLen: make(map[int]map[string]string), LoadedFrom: path}
	if info, err := f.Stat(); err == nil {
		db.ModTime = info.ModTime()
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		entry, ok := probe.ParseManufLine(scanner.Text())
		if !ok {
			continue
		}
		m := db.byLen[entry.PrefixLen]
		if m == nil {
			m = make(map[string]string)
			db.byLen[entry.PrefixLen] = m
		}
		m[entry.Prefix] = entry.Vendor
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return db, nil
}

// Lookup finds the vendor for a normalized MAC by longest prefix match.
// Masked entries (/28, /36) take precedence over plain OUIs.
func (db *DB) Lookup(normalized string) (vendor string, ok bool) {
	for length := len(normalized); length >= 6; length-- {
		m := db.byLen[length]
		if m == nil {
			continue
		}
		if v, hit := m[normalized[:length]]; hit {
			return v, true
		}
	}
	return "", false
}

// Stale reports whether the database file is older than the staleness
// window.
func (db *DB) Stale(now time.Time) bool {
	return !db.ModTime.IsZero() && now.Sub(db.ModTime) > staleAfter
}

// searchPaths lists the locations tried for an existing manuf file, in
// preference order. The last entry is the writable download target.
func searchPaths() []string {
	paths := []string{
		"/usr/share/wireshark/manuf",
		"/usr/local/share/wireshark/manuf",
		"/opt/homebrew/share/wireshark/manuf",
		"/Applications/Wireshark.app/Contents/Resources/share/wireshark/manuf",
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "netprobe", "manuf"))
	}
	return paths
}

// LocateDB finds the first readable manuf file on the search path.
func LocateDB() (string, bool) {
	for _, path := range searchPaths() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// downloadTarget is the writable location for fetched databases.
func downloadTarget() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "netprobe", "manuf")
}

// MACManufacturerLookup resolves a MAC address to its vendor.
func MACManufacturerLookup(ctx context.Context, args map[string]any) *envelope.Result {
	raw := tools.StringArg(args, "target", "")
	b := envelope.New("mac_address_manufacturer_lookup").
		Target(raw).
		Command("manuf database lookup")
	if raw == "" {
		return b.Failure(envelope.CodeMissingParameter, map[string]any{"parameter": "target", "tool": "mac_address_manufacturer_lookup"})
	}

	normalized, ok := NormalizeMAC(raw)
	if !ok {
		return b.FailureMessage(envelope.CodeInvalidFormat,
			fmt.Sprintf("'%s' is not a valid MAC address", raw))
	}

	path, found := LocateDB()
	if !found {
		return b.Failure(envelope.CodeFileNotFound, map[string]any{"path": downloadTarget()})
	}
	db, err := LoadDB(path)
	if err != nil {
		return b.Failure(envelope.CodePermissionError, map[string]any{"path": path})
	}

	return b.Success(lookupData(db, normalized, path, time.Now()))
}

// lookupData builds the lookup result row. A miss still carries the
// manufacturer field, set to "Unknown".
func lookupData(db *DB, normalized, path string, now time.Time) map[string]any {
	parsed := map[string]any{
		"mac":      normalized,
		"oui":      normalized[:6],
		"database": path,
	}
	if db.Stale(now) {
		parsed["warning"] = "manufacturer database is older than 90 days; run fetch_latest_wireshark_manuf_file"
	}
	vendor, hit := db.Lookup(normalized)
	parsed["found"] = hit
	if !hit {
		vendor = "Unknown"
	}
	parsed["manufacturer"] = vendor
	return parsed
}
