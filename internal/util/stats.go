package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Process-wide network counters
// ──────────────────────────────────────────────────────────────────────────────

// Stats counts relay traffic for the whole process.
var Stats = &stats{}

type stats struct {
	MsgsSent  atomic.Int64 // envelopes written to the relay
	MsgsRecv  atomic.Int64 // envelopes read from the relay
	BytesSent atomic.Int64
	BytesRecv atomic.Int64
}

func (s *stats) AddSent(n int) { s.MsgsSent.Add(1); s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int) { s.MsgsRecv.Add(1); s.BytesRecv.Add(int64(n)) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs traffic statistics every
// 10 seconds while anything is flowing. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevSent, prevRecv, prevMsgIn, prevMsgOut int64
		for {
			select {
			case <-ticker.C:
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()
				msgOut := Stats.MsgsSent.Load()
				msgIn := Stats.MsgsRecv.Load()

				outS := float64(sent-prevSent) / 10.0
				inS := float64(recv-prevRecv) / 10.0
				outM := msgOut - prevMsgOut
				inM := msgIn - prevMsgIn

				if inM > 0 || outM > 0 {
					pterm.DefaultLogger.Info(formatStats(inS, outS, inM, outM))
				}

				prevSent = sent
				prevRecv = recv
				prevMsgOut = msgOut
				prevMsgIn = msgIn

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed
// width (exactly 8 chars), for example: "99.0   B", " 1.5 KiB", "98.9 GiB".
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(inS, outS float64, inM, outM int64) string {
	return fmt.Sprintf("In: %s/s (%3d msg) | Out: %s/s (%3d msg)",
		formatBytes(inS),
		inM,
		formatBytes(outS),
		outM,
	)
}
