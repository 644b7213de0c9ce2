package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide link traffic counter.
var Stats = &stats{}

type stats struct {
	PacketsSent     atomic.Int64 // datagrams written to the socket
	PacketsRecv     atomic.Int64 // datagrams read from the socket
	BytesSent       atomic.Int64 // cumulative bytes written
	BytesRecv       atomic.Int64 // cumulative bytes read
	Retransmissions atomic.Int64 // reliable packets sent beyond their first attempt
	Duplicates      atomic.Int64 // stale or already-dispatched packets dropped
}

func (s *stats) AddSent(n int) {
	s.PacketsSent.Add(1)
	s.BytesSent.Add(int64(n))
}

func (s *stats) AddRecv(n int) {
	s.PacketsRecv.Add(1)
	s.BytesRecv.Add(int64(n))
}

func (s *stats) AddRetransmit() { s.Retransmissions.Add(1) }
func (s *stats) AddDuplicate()  { s.Duplicates.Add(1) }

// Snapshot is a point-in-time copy of the counters, suitable for JSON
// encoding.
type Snapshot struct {
	PacketsSent     int64 `json:"packetsSent"`
	PacketsRecv     int64 `json:"packetsRecv"`
	BytesSent       int64 `json:"bytesSent"`
	BytesRecv       int64 `json:"bytesRecv"`
	Retransmissions int64 `json:"retransmissions"`
	Duplicates      int64 `json:"duplicates"`
}

// Snap captures the current counter values.
func (s *stats) Snap() Snapshot {
	return Snapshot{
		PacketsSent:     s.PacketsSent.Load(),
		PacketsRecv:     s.PacketsRecv.Load(),
		BytesSent:       s.BytesSent.Load(),
		BytesRecv:       s.BytesRecv.Load(),
		Retransmissions: s.Retransmissions.Load(),
		Duplicates:      s.Duplicates.Load(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs link statistics every
// 10 seconds while there is traffic. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prev Snapshot
		for {
			select {
			case <-ticker.C:
				cur := Stats.Snap()
				if cur != prev {
					pterm.DefaultLogger.Info(formatStats(cur, prev))
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

// formatStats renders the per-interval deltas for the reporter line.
func formatStats(cur, prev Snapshot) string {
	return fmt.Sprintf("pkts: %d↑ %d↓ | bytes: %d↑ %d↓ | retrans: %d | dup: %d",
		cur.PacketsSent-prev.PacketsSent,
		cur.PacketsRecv-prev.PacketsRecv,
		cur.BytesSent-prev.BytesSent,
		cur.BytesRecv-prev.BytesRecv,
		cur.Retransmissions-prev.Retransmissions,
		cur.Duplicates-prev.Duplicates,
	)
}
