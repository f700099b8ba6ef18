package netinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
)

// History is the persisted external-IP record. Timestamps mark when each
// address was last observed, not when it first appeared.
type History struct {
	CurrentIP         string `json:"current_ip"`
	CurrentTimestamp  string `json:"current_timestamp"`
	PreviousIP        string `json:"previous_ip,omitempty"`
	PreviousTimestamp string `json:"previous_timestamp,omitempty"`
}

// Tracker applies external-IP observations to a persisted history file.
type Tracker struct {
	Path string
	Now  func() time.Time
}

// NewTracker stores history under the user config directory.
func NewTracker() *Tracker {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return &Tracker{
		Path: filepath.Join(dir, "netprobe", "external_ip_history.json"),
		Now:  time.Now,
	}
}

// Load reads the history file. A missing file yields an empty history.
func (t *Tracker) Load() (History, error) {
	var h History
	data, err := os.ReadFile(t.Path)
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return History{}, fmt.Errorf("parse history: %w", err)
	}
	return h, nil
}

// save writes the history atomically: write to a temp file in the same
// directory, then rename over the target.
func (t *Tracker) save(h History) error {
	dir := filepath.Dir(t.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".history-*.json")
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
	return os.Rename(tmpName, t.Path)
}

// Observation is the outcome of applying one fetched IP to the history.
type Observation struct {
	IP         string
	Changed    bool
	FirstRun   bool
	PreviousIP string
	History    History
}

// Observe applies a fetched IP to the stored history and persists the
// update. First run records the address without claiming a change; a
// repeat observation only refreshes the current timestamp.
func (t *Tracker) Observe(fetched string) (Observation, error) {
	h, err := t.Load()
	if err != nil {
		return Observation{}, err
	}
	now := t.Now().Format(time.RFC3339)
	obs := Observation{IP: fetched}

	switch {
	case h.CurrentIP == "":
		obs.FirstRun = true
		h.CurrentIP = fetched
		h.CurrentTimestamp = now
	case h.CurrentIP == fetched:
		h.CurrentTimestamp = now
	default:
		obs.Changed = true
		obs.PreviousIP = h.CurrentIP
		h.PreviousIP = h.CurrentIP
		h.PreviousTimestamp = h.CurrentTimestamp
		h.CurrentIP = fetched
		h.CurrentTimestamp = now
	}

	if err := t.save(h); err != nil {
		return Observation{}, err
	}
	obs.History = h
	return obs, nil
}

// MonitorExternalIPChanges is the registered probe wrapping the tracker.
func MonitorExternalIPChanges(ctx context.Context, args map[string]any) *envelope.Result {
	return monitorWithTracker(ctx, NewTracker())
}

func monitorWithTracker(ctx context.Context, tracker *Tracker) *envelope.Result {
	b := envelope.New("monitor_external_ip_changes").Command("http ip echo + history compare")
	ip, service, err := fetchExternalIP(ctx, echoClient())
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	obs, err := tracker.Observe(ip)
	if err != nil {
		return b.Failure(envelope.CodePermissionError, map[string]any{"path": tracker.Path})
	}
	return b.Target(ip).Success(map[string]any{
		"external_ip":        ip,
		"service":            service,
		"changed":            obs.Changed,
		"first_run":          obs.FirstRun,
		"previous_ip":        obs.History.PreviousIP,
		"current_timestamp":  obs.History.CurrentTimestamp,
		"previous_timestamp": obs.History.PreviousTimestamp,
	})
}
