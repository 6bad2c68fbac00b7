package kernelsched

import (
	"fmt"
	"io"
)

// PrintStatistics writes one line per process (the bootstrap idle process
// excluded): PID PRIORITY #THREADS %CPU TIME NAME. CPU percentage is NN.N,
// or a 4-digit integer at or above 100%; TIME is MM:SS.CC, or HH:MM:SS once
// an hour is accumulated. Formatting is best-effort and never fails.
func (s *Scheduler) PrintStatistics(w io.Writer) {
	maxLoad := uint32(1000 * len(s.locals))
	fmt.Fprintln(w, "PID P #TH %CPU TIME     NAME")
	for _, proc := range s.processes.snapshot() {
		if proc.pid == 0 {
			continue
		}

		fmt.Fprintf(w, "%3d %d %3d", proc.pid, proc.priority, proc.nThreads.Load())

		load := proc.load.Load()
		if load > maxLoad {
			load = maxLoad
		}
		writeLoad(w, load)
		writeCPUTime(w, proc.cpuTime.Load())

		fmt.Fprintf(w, " %s\n", proc.name)
	}
}

// PrintThreadStatistics writes one line per thread (idle threads excluded):
// ID PID PRIORITY STATE %CPU TIME NAME, where STATE is the status character
// followed by the raw attribute bits in hex.
func (s *Scheduler) PrintThreadStatistics(w io.Writer) {
	fmt.Fprintln(w, " ID PID P ST %CPU TIME     NAME")
	for _, t := range s.threads.snapshot() {
		if t.pid == 0 {
			continue
		}

		fmt.Fprintf(w, "%3d %3d %d %c%01x", t.handle, t.pid, t.priority,
			t.statusChar(), t.attr.bits.Load())

		writeLoad(w, t.load.Load())
		writeCPUTime(w, t.cpuTime.Load())

		fmt.Fprintf(w, " %s\n", t.name)
	}
}

// writeLoad renders a per-mille load as a percentage: " NN.N", or " NNNN"
// at or above 100%.
func writeLoad(w io.Writer, load uint32) {
	frac := load % 10
	whole := load / 10
	if whole >= 10 {
		fmt.Fprintf(w, " %4d", whole)
	} else {
		fmt.Fprintf(w, " %2d.%1d", whole, frac)
	}
}

// writeCPUTime renders accumulated cpu ticks as elapsed time, in
// centisecond resolution below one hour.
func writeCPUTime(w io.Writer, ticks int64) {
	t := ticks / 10_000
	dsec := t % 100
	sec := t / 100 % 60
	min := t / 6_000 % 60
	hour := t / 360_000
	if hour > 0 {
		fmt.Fprintf(w, " %02d:%02d:%02d", hour, min, sec)
	} else {
		fmt.Fprintf(w, " %02d:%02d.%02d", min, sec, dsec)
	}
}
