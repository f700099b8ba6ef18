package ntpcheck

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func TestBuildRequestHeader(t *testing.T) {
	pkt := buildRequest()
	if len(pkt) != ntpPacketSize {
		t.Fatalf("packet size = %d, want %d", len(pkt), ntpPacketSize)
	}
	if pkt[0] != 0x23 {
		t.Errorf("header = %#x, want LI=0 VN=4 Mode=3 (0x23)", pkt[0])
	}
}

// buildReply fabricates a server-mode reply whose transmit timestamp is
// skewed from the local clock by the given offset.
func buildReply(now time.Time, offset time.Duration, stratum byte, refID [4]byte) []byte {
	reply := make([]byte, ntpPacketSize)
	reply[0] = 0x24 // LI=0 VN=4 Mode=4
	reply[1] = stratum
	copy(reply[12:16], refID[:])

	serverTime := now.Add(offset)
	sec := uint32(serverTime.Unix() + ntpEpochOffset)
	frac := uint32(float64(serverTime.Nanosecond()) / 1e9 * (1 << 32))
	binary.BigEndian.PutUint32(reply[32:36], sec)
	binary.BigEndian.PutUint32(reply[36:40], frac)
	binary.BigEndian.PutUint32(reply[40:44], sec)
	binary.BigEndian.PutUint32(reply[44:48], frac)
	return reply
}

func TestDecodeResponseOffset(t *testing.T) {
	now := time.Now()
	reply := buildReply(now, 500*time.Millisecond, 2, [4]byte{192, 0, 2, 1})

	reading, err := decodeResponse("test", reply, now, now)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(reading.OffsetMs-500) > 5 {
		t.Errorf("offset = %.2f ms, want ~500", reading.OffsetMs)
	}
	if reading.Stratum != 2 {
		t.Errorf("stratum = %d", reading.Stratum)
	}
	if reading.ReferenceID != "192.0.2.1" {
		t.Errorf("reference id = %q", reading.ReferenceID)
	}
}

func TestDecodeResponseStratum1RefID(t *testing.T) {
	now := time.Now()
	reply := buildReply(now, 0, 1, [4]byte{'G', 'P', 'S', 0})
	reading, err := decodeResponse("test", reply, now, now)
	if err != nil {
		t.Fatal(err)
	}
	if reading.ReferenceID != "GPS" {
		t.Errorf("reference id = %q, want GPS", reading.ReferenceID)
	}
}

func TestDecodeResponseRejectsMalformed(t *testing.T) {
	now := time.Now()
	if _, err := decodeResponse("test", make([]byte, 10), now, now); err == nil {
		t.Error("short reply accepted")
	}

	badMode := buildReply(now, 0, 2, [4]byte{})
	badMode[0] = 0x23 // client mode in a reply
	if _, err := decodeResponse("test", badMode, now, now); err == nil {
		t.Error("client-mode reply accepted")
	}

	noTx := make([]byte, ntpPacketSize)
	noTx[0] = 0x24
	if _, err := decodeResponse("test", noTx, now, now); err == nil {
		t.Error("zero transmit timestamp accepted")
	}
}

func TestAnalyzeStatistics(t *testing.T) {
	s := Analyze([]float64{10, 20, 30, 40})
	if s.Count != 4 {
		t.Fatalf("count = %d", s.Count)
	}
	if s.MeanMs != 25 {
		t.Errorf("mean = %v", s.MeanMs)
	}
	if s.Median != 25 {
		t.Errorf("median = %v", s.Median)
	}
	if s.MinMs != 10 || s.MaxMs != 40 || s.RangeMs != 30 {
		t.Errorf("min/max/range = %v/%v/%v", s.MinMs, s.MaxMs, s.RangeMs)
	}
	// Sample stddev of {10,20,30,40} is sqrt(500/3).
	want := math.Sqrt(500.0 / 3.0)
	if math.Abs(s.Stddev-want) > 1e-9 {
		t.Errorf("stddev = %v, want %v", s.Stddev, want)
	}
}

func TestAnalyzeOddCountMedian(t *testing.T) {
	s := Analyze([]float64{30, 10, 20})
	if s.Median != 20 {
		t.Errorf("median = %v", s.Median)
	}
}

func TestAnalyzeDegenerateInputs(t *testing.T) {
	if s := Analyze(nil); s.Count != 0 {
		t.Errorf("empty input = %+v", s)
	}
	s := Analyze([]float64{42})
	if s.Stddev != 0 || s.MeanMs != 42 || s.Median != 42 {
		t.Errorf("single sample = %+v", s)
	}
}

func TestClassifyBands(t *testing.T) {
	cases := []struct {
		spread  float64
		quality string
		score   int
	}{
		{50, "excellent", 95},
		{100, "excellent", 95},
		{150, "good", 80},
		{200, "good", 80},
		{400, "moderate", 60},
		{500, "moderate", 60},
		{501, "poor", 30},
		{10000, "poor", 30},
	}
	for _, c := range cases {
		quality, score := Classify(c.spread)
		if quality != c.quality || score != c.score {
			t.Errorf("Classify(%v) = %q/%d, want %q/%d", c.spread, quality, score, c.quality, c.score)
		}
	}
}

func TestClassifyUsesSpreadNotMagnitude(t *testing.T) {
	// Servers agreeing within 2 ms grade as excellent even when every
	// offset is far from the local clock.
	stats := Analyze([]float64{200, 201, 202})
	if stats.RangeMs != 2 {
		t.Fatalf("range = %v, want 2", stats.RangeMs)
	}
	quality, score := Classify(stats.RangeMs)
	if quality != "excellent" || score != 95 {
		t.Errorf("tight agreement = %q/%d, want excellent/95", quality, score)
	}
}
