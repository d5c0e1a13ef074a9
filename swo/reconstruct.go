package swo

// Position is a byte boundary in the probe's capture buffer: the buffer
// generation (epoch) and an offset within that generation.
type Position struct {
	Epoch  uint8
	Offset uint16
}

// Update is the outcome of feeding one poll result to a Reconstructor.
type Update struct {
	Data     []byte   // bytes to emit, aliases the poll result's Data
	SyncLost bool     // the result did not line up with the previous one
	LossAt   Position // where the break was detected (valid when SyncLost)
}

// Stats counts what a Reconstructor has consumed since creation.
type Stats struct {
	Bytes      uint64 // trace bytes emitted
	Fragments  uint64 // incremental results
	Dumps      uint64 // total-dump results
	Empties    uint64 // polls that carried no data
	SyncLosses uint64 // detected discontinuities
}

// Reconstructor merges a sequence of poll results back into the contiguous
// byte stream the target emitted. It remembers the position one past the
// last byte it delivered and flags any result that does not line up with it.
//
// The zero value is ready to use and accepts whatever position arrives
// first.
type Reconstructor struct {
	last   Position
	primed bool
	stats  Stats
}

// Feed consumes one poll result and reports what to do with it. The
// returned Data aliases res.Data, so the caller must write it out before
// reusing the poll scratch buffer.
func (r *Reconstructor) Feed(res PollResult) Update {
	switch res.Kind {
	case Incremental:
		return r.feedIncremental(res)
	case Total:
		return r.feedTotal(res)
	default:
		r.stats.Empties++
		return Update{}
	}
}

func (r *Reconstructor) feedIncremental(res PollResult) Update {
	var upd Update
	if r.primed && (r.last.Epoch != res.Epoch || r.last.Offset != res.Start) {
		// The fragment does not continue where the last one ended.
		// Emit it anyway and resynchronize at its end.
		upd.SyncLost = true
		upd.LossAt = Position{Epoch: res.Epoch, Offset: res.Start}
		r.stats.SyncLosses++
	}
	upd.Data = res.Data
	r.last = Position{Epoch: res.Epoch, Offset: res.End}
	r.primed = true
	r.stats.Fragments++
	r.stats.Bytes += uint64(len(upd.Data))
	return upd
}

func (r *Reconstructor) feedTotal(res PollResult) Update {
	var upd Update
	switch {
	case !r.primed:
		upd.Data = res.Data
	case r.last.Epoch == res.Epoch:
		// Everything below the remembered offset was already delivered.
		if int(r.last.Offset) <= len(res.Data) {
			upd.Data = res.Data[r.last.Offset:]
		}
	default:
		// A dump from an unexpected generation. We cannot tell which part
		// of it is new, so emit nothing.
		upd.SyncLost = true
		upd.LossAt = Position{Epoch: res.Epoch}
		r.stats.SyncLosses++
	}
	// A full dump drains the buffer: whatever comes next starts a fresh
	// generation. Epoch arithmetic wraps at 255.
	r.last = Position{Epoch: res.Epoch + 1}
	r.primed = true
	r.stats.Dumps++
	r.stats.Bytes += uint64(len(upd.Data))
	return upd
}

// Stats returns a snapshot of the counters.
func (r *Reconstructor) Stats() Stats {
	return r.stats
}
