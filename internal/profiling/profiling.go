package profiling

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Per-frame CPU timers for the LOD passes. Totals accumulate until
// EndFrame folds them into a running average.

const historyFrames = 120

var (
	mu          sync.Mutex
	frameTotals = make(map[string]time.Duration)
	history     = make(map[string]*window)
)

// window is a fixed-size ring of per-frame durations.
type window struct {
	samples [historyFrames]time.Duration
	next    int
	filled  int
	sum     time.Duration
}

func (w *window) push(d time.Duration) {
	w.sum -= w.samples[w.next]
	w.samples[w.next] = d
	w.sum += d
	w.next = (w.next + 1) % historyFrames
	if w.filled < historyFrames {
		w.filled++
	}
}

func (w *window) mean() time.Duration {
	if w.filled == 0 {
		return 0
	}
	return w.sum / time.Duration(w.filled)
}

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("lod.Update")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		frameTotals[name] += d
		mu.Unlock()
	}
}

// EndFrame moves the current totals into the history and starts a new frame.
// Timers that did not run this frame record a zero sample.
func EndFrame() {
	mu.Lock()
	defer mu.Unlock()
	for name := range history {
		if _, ok := frameTotals[name]; !ok {
			history[name].push(0)
		}
	}
	for name, d := range frameTotals {
		w, ok := history[name]
		if !ok {
			w = &window{}
			history[name] = w
		}
		w.push(d)
		delete(frameTotals, name)
	}
}

// Reset drops the current frame and all history.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	frameTotals = make(map[string]time.Duration)
	history = make(map[string]*window)
}

// Snapshot returns a copy of the current frame totals.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(frameTotals))
	for k, v := range frameTotals {
		out[k] = v
	}
	return out
}

// Averages returns the mean duration per timer over the recorded history.
func Averages() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(history))
	for k, w := range history {
		out[k] = w.mean()
	}
	return out
}

// TopN formats the n slowest timers of the current frame.
// Example: "lod.Update:1.2ms, lod.splitPass:0.8ms"
func TopN(n int) string {
	return format(Snapshot(), n)
}

// TopNAverage formats the n slowest timers by average over the history.
func TopNAverage(n int) string {
	return format(Averages(), n)
}

func format(totals map[string]time.Duration, n int) string {
	type pair struct {
		name string
		dur  time.Duration
	}
	list := make([]pair, 0, len(totals))
	for k, v := range totals {
		list = append(list, pair{name: k, dur: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].dur == list[j].dur {
			return list[i].name < list[j].name
		}
		return list[i].dur > list[j].dur
	})
	if n > len(list) {
		n = len(list)
	}
	parts := make([]string, 0, n)
	for _, p := range list[:n] {
		ms := float64(p.dur.Microseconds()) / 1000.0
		parts = append(parts, p.name+":"+strconv.FormatFloat(ms, 'f', -1, 64)+"ms")
	}
	return strings.Join(parts, ", ")
}
