package ntpcheck

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/haasonsaas/netprobe/internal/batch"
	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/probe"
	"github.com/haasonsaas/netprobe/internal/tools"
)

// defaultServers is the pool swept when the caller names none.
var defaultServers = []string{
	"pool.ntp.org",
	"time.google.com",
	"time.cloudflare.com",
	"time.apple.com",
	"time.nist.gov",
	"time.windows.com",
}

// offsetThresholdMs anchors the quality bands: excellent within 1x, good
// within 2x, moderate within 5x, poor beyond.
const offsetThresholdMs = 100.0

const sweepWorkers = 10

func readingData(r Reading) map[string]any {
	return map[string]any{
		"server":             r.Server,
		"offset_ms":          r.OffsetMs,
		"rtt_ms":             r.RTTMs,
		"stratum":            r.Stratum,
		"reference_id":       r.ReferenceID,
		"precision":          r.Precision,
		"root_delay_ms":      r.RootDelayMs,
		"root_dispersion_ms": r.RootDispersion,
		"server_time":        r.ServerTime.Format(time.RFC3339Nano),
	}
}

// TestNTPServer queries one server.
func TestNTPServer(ctx context.Context, args map[string]any) *envelope.Result {
	server := tools.StringArg(args, "target", "pool.ntp.org")
	b := envelope.New("test_ntp_server").
		Target(server).
		Command(fmt.Sprintf("sntp query %s:123", server))

	reading, err := Query(ctx, server, envelope.Timeout("ntp_query"))
	if err != nil {
		code, detail := probe.ClassifyNetError(err)
		return b.FailureMessage(code, detail)
	}
	return b.Success(readingData(reading))
}

// CheckNTPServers sweeps the pool concurrently, retrying each failed
// server once after a short pause, and ranks results by absolute offset.
func CheckNTPServers(ctx context.Context, args map[string]any) *envelope.Result {
	servers := tools.StringListArg(args, "servers")
	if len(servers) == 0 {
		servers = defaultServers
	}
	b := envelope.New("check_ntp_servers").
		Command("concurrent sntp sweep").
		Options(map[string]any{"servers": servers})

	query := func(ctx context.Context, server string) *envelope.Result {
		sb := envelope.New("check_ntp_servers").Target(server)
		reading, err := Query(ctx, server, envelope.Timeout("ntp_query"))
		if err != nil {
			code, detail := probe.ClassifyNetError(err)
			return sb.FailureMessage(code, detail)
		}
		return sb.Success(readingData(reading))
	}

	outcomes, summary := batch.Run(ctx, servers, query, batch.Options{
		Workers:          sweepWorkers,
		PerTargetTimeout: envelope.Timeout("ntp_query") + 2*time.Second,
		Retry:            true,
	})

	reachable, unreachable := batch.Split(outcomes)
	sort.SliceStable(reachable, func(i, j int) bool {
		oi, _ := reachable[i]["offset_ms"].(float64)
		oj, _ := reachable[j]["offset_ms"].(float64)
		return math.Abs(oi) < math.Abs(oj)
	})

	if summary.Succeeded == 0 {
		return b.Failure(envelope.CodeUnreachable, map[string]any{"target": "ntp pool"})
	}
	return b.Success(map[string]any{
		"reachable_servers":   reachable,
		"unreachable_servers": unreachable,
		"summary": map[string]any{
			"total":        summary.Total,
			"succeeded":    summary.Succeeded,
			"failed":       summary.Failed,
			"success_rate": summary.SuccessRate,
			"status":       summary.Status,
		},
	})
}

// Stats summarizes a set of clock offsets.
type Stats struct {
	Count   int
	MeanMs  float64
	Median  float64
	MinMs   float64
	MaxMs   float64
	RangeMs float64
	Stddev  float64
}

// Analyze computes offset statistics. Stddev is the sample standard
// deviation; a single sample yields zero spread.
func Analyze(offsets []float64) Stats {
	s := Stats{Count: len(offsets)}
	if s.Count == 0 {
		return s
	}
	sorted := append([]float64(nil), offsets...)
	sort.Float64s(sorted)
	s.MinMs = sorted[0]
	s.MaxMs = sorted[len(sorted)-1]
	s.RangeMs = s.MaxMs - s.MinMs

	var sum float64
	for _, o := range sorted {
		sum += o
	}
	s.MeanMs = sum / float64(s.Count)

	mid := s.Count / 2
	if s.Count%2 == 0 {
		s.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		s.Median = sorted[mid]
	}

	if s.Count > 1 {
		var sq float64
		for _, o := range sorted {
			d := o - s.MeanMs
			sq += d * d
		}
		s.Stddev = math.Sqrt(sq / float64(s.Count-1))
	}
	return s
}

// Classify maps the offset spread across servers onto a quality band and
// score. Servers agreeing tightly grade well even when all of them sit
// far from the local clock; that is a local clock problem, not a sync
// quality one.
func Classify(offsetRangeMs float64) (quality string, score int) {
	switch {
	case offsetRangeMs <= offsetThresholdMs:
		return "excellent", 95
	case offsetRangeMs <= 2*offsetThresholdMs:
		return "good", 80
	case offsetRangeMs <= 5*offsetThresholdMs:
		return "moderate", 60
	default:
		return "poor", 30
	}
}

// AnalyzeNTPSync sweeps the pool and reports offset statistics with a
// synchronization quality classification.
func AnalyzeNTPSync(ctx context.Context, args map[string]any) *envelope.Result {
	servers := tools.StringListArg(args, "servers")
	if len(servers) == 0 {
		servers = defaultServers
	}
	b := envelope.New("analyze_ntp_sync").
		Command("sntp sweep + offset analysis").
		Options(map[string]any{"servers": servers})

	var offsets []float64
	var readings []map[string]any
	for _, server := range servers {
		reading, err := Query(ctx, server, envelope.Timeout("ntp_query"))
		if err != nil {
			continue
		}
		offsets = append(offsets, reading.OffsetMs)
		readings = append(readings, readingData(reading))
	}
	if len(offsets) == 0 {
		return b.Failure(envelope.CodeUnreachable, map[string]any{"target": "ntp pool"})
	}

	stats := Analyze(offsets)
	meanAbs := 0.0
	for _, o := range offsets {
		meanAbs += math.Abs(o)
	}
	meanAbs /= float64(len(offsets))
	quality, score := Classify(stats.RangeMs)

	return b.Success(map[string]any{
		"readings": readings,
		"statistics": map[string]any{
			"count":     stats.Count,
			"mean_ms":   stats.MeanMs,
			"median_ms": stats.Median,
			"min_ms":    stats.MinMs,
			"max_ms":    stats.MaxMs,
			"range_ms":  stats.RangeMs,
			"stddev_ms": stats.Stddev,
		},
		"mean_abs_offset_ms": meanAbs,
		"quality":            quality,
		"score":              score,
	})
}
