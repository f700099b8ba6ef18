// Package ntpcheck implements the time probes: single-server SNTP
// queries, a concurrent pool sweep, and offset statistics analysis.
package ntpcheck

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/haasonsaas/netprobe/internal/probe"
)

// ntpEpochOffset is the seconds between the NTP epoch (1900) and the
// Unix epoch (1970).
const ntpEpochOffset = 2208988800

const ntpPacketSize = 48

// Reading is one decoded SNTP exchange.
type Reading struct {
	Server         string
	OffsetMs       float64
	RTTMs          float64
	Stratum        int
	ReferenceID    string
	Precision      int
	RootDelayMs    float64
	RootDispersion float64
	ServerTime     time.Time
}

// buildRequest assembles a client-mode SNTP packet: LI=0, VN=4, Mode=3.
func buildRequest() []byte {
	pkt := make([]byte, ntpPacketSize)
	pkt[0] = 0x23
	return pkt
}

func toNTPSeconds(t time.Time) float64 {
	return float64(t.UnixNano())/1e9 + ntpEpochOffset
}

func fromNTPTimestamp(sec, frac uint32) float64 {
	return float64(sec) + float64(frac)/(1<<32)
}

// decodeReferenceID renders the 4-byte reference field: printable ASCII
// for low strata (e.g. "GPS", "PPS"), dotted quad otherwise.
func decodeReferenceID(raw [4]byte, stratum int) string {
	if stratum <= 1 {
		out := make([]byte, 0, 4)
		for _, c := range raw {
			if c >= 0x20 && c < 0x7f {
				out = append(out, c)
			}
		}
		if len(out) > 0 {
			return string(out)
		}
	}
	return fmt.Sprintf("%d.%d.%d.%d", raw[0], raw[1], raw[2], raw[3])
}

// decodeResponse extracts a Reading from a server reply, computing the
// clock offset with the standard two-sample formula.
func decodeResponse(server string, reply []byte, sent, received time.Time) (Reading, error) {
	if len(reply) < ntpPacketSize {
		return Reading{}, fmt.Errorf("short ntp reply: %d bytes", len(reply))
	}
	mode := reply[0] & 0x07
	if mode != 4 && mode != 5 {
		return Reading{}, fmt.Errorf("unexpected ntp mode %d", mode)
	}

	stratum := int(reply[1])
	precision := int(int8(reply[3]))
	rootDelay := float64(int32(binary.BigEndian.Uint32(reply[4:8]))) / (1 << 16)
	rootDisp := float64(binary.BigEndian.Uint32(reply[8:12])) / (1 << 16)

	var refID [4]byte
	copy(refID[:], reply[12:16])

	rxSec := binary.BigEndian.Uint32(reply[32:36])
	rxFrac := binary.BigEndian.Uint32(reply[36:40])
	txSec := binary.BigEndian.Uint32(reply[40:44])
	txFrac := binary.BigEndian.Uint32(reply[44:48])
	if txSec == 0 {
		return Reading{}, fmt.Errorf("ntp reply carries no transmit timestamp")
	}

	t1 := toNTPSeconds(sent)
	t2 := fromNTPTimestamp(rxSec, rxFrac)
	t3 := fromNTPTimestamp(txSec, txFrac)
	t4 := toNTPSeconds(received)

	offset := ((t2 - t1) + (t3 - t4)) / 2
	rtt := (t4 - t1) - (t3 - t2)

	serverUnix := t3 - ntpEpochOffset
	return Reading{
		Server:         server,
		OffsetMs:       offset * 1000,
		RTTMs:          rtt * 1000,
		Stratum:        stratum,
		ReferenceID:    decodeReferenceID(refID, stratum),
		Precision:      precision,
		RootDelayMs:    rootDelay * 1000,
		RootDispersion: rootDisp * 1000,
		ServerTime:     time.Unix(0, int64(serverUnix*1e9)).UTC(),
	}, nil
}

// Query performs one SNTP exchange against server:123.
func Query(ctx context.Context, server string, timeout time.Duration) (Reading, error) {
	sent := time.Now()
	reply, _, err := probe.UDPExchange(ctx, server+":123", buildRequest(), timeout, ntpPacketSize)
	received := time.Now()
	if err != nil {
		return Reading{}, err
	}
	return decodeResponse(server, reply, sent, received)
}
