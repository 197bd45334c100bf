package hx711

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// maxScanErrors stops a scan once this many reads have failed.
const maxScanErrors = 50

// WeightCallback receives each weight measured by a [WeightScan].
type WeightCallback func(grams float32, at time.Time)

// WeightScan periodically weighs the load cell in a background goroutine.
type WeightScan struct {
	Interval time.Duration
	Samples  int

	done     *atomic.Bool
	running  *atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	callback WeightCallback
	err      []error
	errMu    sync.Mutex
}

// NewWeightScan prepares a scan. Start it with [HX711.ScanWeight].
func NewWeightScan(interval time.Duration, samples int, onWeight WeightCallback) *WeightScan {
	return &WeightScan{
		Interval: interval,
		Samples:  samples,
		done:     &atomic.Bool{},
		running:  &atomic.Bool{},
		stop:     make(chan struct{}),
		callback: onWeight,
		err:      make([]error, 0),
	}
}

func (ws *WeightScan) addErr(err error) {
	if err == nil {
		return
	}
	ws.errMu.Lock()
	ws.err = append(ws.err, err)
	tooMany := len(ws.err) >= maxScanErrors
	ws.errMu.Unlock()
	if tooMany {
		ws.Stop()
	}
}

// Err returns every read failure seen so far, joined.
func (ws *WeightScan) Err() error {
	ws.errMu.Lock()
	defer ws.errMu.Unlock()
	if len(ws.err) == 0 {
		return nil
	}
	return fmt.Errorf("weight scan errors: %w", errors.Join(ws.err...))
}

// Stop asks the scan to finish after the current measurement. It does not
// wait out the remaining interval.
func (ws *WeightScan) Stop() {
	ws.done.Store(true)
	ws.stopOnce.Do(func() { close(ws.stop) })
}

// IsDone reports whether the scan was stopped or gave up.
func (ws *WeightScan) IsDone() bool {
	return ws.done.Load()
}

// Wait blocks until the scan goroutine has exited or ctx is done.
func (ws *WeightScan) Wait(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for ws.running.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return ws.Err()
}

// ScanWeight weighs every interval until ctx is done, Stop is called or too many
// reads fail. Failed reads are collected in [WeightScan.Err] and skipped.
func (hx *HX711) ScanWeight(ctx context.Context, interval time.Duration, samples int, onWeight WeightCallback) (*WeightScan, error) {
	if onWeight == nil {
		return nil, errors.New("no weight callback")
	}
	if hx.State() == StateUninitialized {
		return nil, ErrNotInitialized
	}

	ws := NewWeightScan(interval, samples, onWeight)
	ws.running.Store(true)

	go func() {
		defer ws.running.Store(false)
		for !ws.done.Load() {
			grams, err := hx.Weight(ws.Samples)
			if err != nil {
				ws.addErr(err)
			} else {
				ws.callback(grams, time.Now())
			}

			select {
			case <-ctx.Done():
				ws.done.Store(true)
				return
			case <-ws.stop:
				return
			case <-time.After(ws.Interval):
			}
		}
	}()

	return ws, nil
}
