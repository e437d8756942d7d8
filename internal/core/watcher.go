package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Watcher polls the player and starts a resolution cycle on every track change.
type Watcher struct {
	player     PlayerSource
	identifier TrackIdentifier
	tracker    *Tracker
	interval   time.Duration
	logger     *zap.Logger

	lastTrackID string
	idle        bool
	cancelCycle context.CancelFunc
	wg          sync.WaitGroup
}

func NewWatcher(
	player PlayerSource,
	identifier TrackIdentifier,
	tracker *Tracker,
	interval time.Duration,
	logger *zap.Logger,
) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		player:     player,
		identifier: identifier,
		tracker:    tracker,
		interval:   interval,
		logger:     logger,
	}
}

// Run polls until ctx is done, then waits for in-flight cycles.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("Starting player watcher", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping player watcher")
			return nil
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	track, err := w.player.CurrentTrack(ctx)
	if err != nil {
		w.logger.Warn("Failed to read current track", zap.Error(err))
		return
	}

	if track == nil {
		if !w.idle {
			w.idle = true
			w.lastTrackID = ""
			w.cancelInFlight()
			cycle := w.tracker.Begin()
			w.tracker.Commit(ctx, cycle, IdleResult())
			w.logger.Debug("Player idle")
		}
		return
	}

	if !w.idle && track.ID == w.lastTrackID {
		return
	}
	w.idle = false
	w.lastTrackID = track.ID
	w.startCycle(ctx, *track)
}

func (w *Watcher) startCycle(ctx context.Context, track PlayingTrack) {
	w.cancelInFlight()

	// Begin before the goroutine starts so the previous cycle is already stale.
	cycle := w.tracker.Begin()
	cycleCtx, cancel := context.WithCancel(ctx)
	w.cancelCycle = cancel

	w.logger.Info("Track changed",
		zap.String("track_id", track.ID),
		zap.String("title", track.Metadata.Title),
		zap.String("artist", track.Metadata.ArtistName),
		zap.Uint64("cycle_seq", cycle.Seq()))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer cancel()

		result, err := w.identifier.Identify(cycleCtx, track.ID, track.Metadata)
		if err != nil {
			if cycleCtx.Err() != nil {
				return
			}
			w.logger.Error("Resolution cycle failed", zap.String("track_id", track.ID), zap.Error(err))
			result = FailedResult(track, err)
		}
		w.tracker.Commit(ctx, cycle, result)
	}()
}

func (w *Watcher) cancelInFlight() {
	if w.cancelCycle != nil {
		w.cancelCycle()
		w.cancelCycle = nil
	}
}

func (w *Watcher) stop() {
	w.cancelInFlight()
	w.wg.Wait()
}
