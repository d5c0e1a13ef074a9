package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"swocat/lpclink2"
	"swocat/swo"
)

// pollInterval is how long to sit idle after an empty poll before asking
// the probe again.
const pollInterval = 10 * time.Millisecond

// checkRate compares the bit rate the probe achieved with the one requested
// and applies the mismatch policy. It reports whether capture may proceed.
func checkRate(requested, achieved uint32, allowApprox bool, diag io.Writer) bool {
	if achieved == requested {
		slog.Info("probe confirms rate", "rate", achieved)
		return true
	}
	if allowApprox {
		fmt.Fprintf(diag, "actual bit rate: %d (requested: %d)\n", achieved, requested)
		return true
	}
	slog.Error("can't achieve bit rate", "requested", requested, "closest", achieved)
	return false
}

// capture polls the probe until ctx is canceled, reassembling the trace
// stream into out. Sync loss notices go to diag before the data that
// triggered them, so a reader of both streams can tell where the gap is.
func capture(ctx context.Context, probe *lpclink2.Client, out, diag io.Writer) error {
	scratch := make([]byte, lpclink2.MaxPacket)
	var rec swo.Reconstructor

	for ctx.Err() == nil {
		res, err := probe.Poll(scratch)
		if err != nil {
			return err
		}

		upd := rec.Feed(res)
		if upd.SyncLost {
			fmt.Fprintf(diag, "lost stream sync at %02x:%03x, data may be lost\n",
				upd.LossAt.Epoch, upd.LossAt.Offset)
		}
		if len(upd.Data) > 0 {
			if _, err := out.Write(upd.Data); err != nil {
				return fmt.Errorf("failed to write trace data: %w", err)
			}
		}

		if res.Kind == swo.Empty {
			select {
			case <-ctx.Done():
			case <-time.After(pollInterval):
			}
		}
	}

	stats := rec.Stats()
	slog.Debug("capture finished",
		"bytes", stats.Bytes,
		"fragments", stats.Fragments,
		"dumps", stats.Dumps,
		"empty_polls", stats.Empties,
		"sync_losses", stats.SyncLosses)
	return nil
}
