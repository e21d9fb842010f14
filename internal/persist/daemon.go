package persist

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"luna-bot/internal/state"
	"luna-bot/internal/store"
)

// FastSaver is implemented by backends that offer a cheaper save path for
// the termination-signal budget (the file backend skips backup rotation).
type FastSaver interface {
	SaveFast(ctx context.Context, snap *store.Snapshot) error
}

// Daemon flushes the state cache to the durable store on a fixed interval,
// independent of request traffic. Flush failures are logged and swallowed:
// persistence problems must never interrupt message handling, and the next
// tick may succeed.
type Daemon struct {
	manager  *state.Manager
	store    store.Store
	cron     *cron.Cron
	interval time.Duration
}

func New(manager *state.Manager, st store.Store, interval time.Duration) *Daemon {
	return &Daemon{
		manager:  manager,
		store:    st,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		interval: interval,
	}
}

// Start schedules the periodic flush.
func (d *Daemon) Start() error {
	spec := fmt.Sprintf("@every %s", d.interval)
	_, err := d.cron.AddFunc(spec, func() {
		if err := d.ForceSave(context.Background()); err != nil {
			log.Printf("periodic save failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	d.cron.Start()
	log.Printf("persistence daemon started, flushing every %s", d.interval)
	return nil
}

// Stop halts the timer and performs one final flush.
func (d *Daemon) Stop() {
	if d.cron != nil {
		ctx := d.cron.Stop()
		<-ctx.Done()
	}
	if err := d.ForceSave(context.Background()); err != nil {
		log.Printf("final save failed: %v", err)
	}
}

// ForceSave synchronously writes a point-in-time snapshot to the store. It
// is the manual entry point behind the /save command, the /save HTTP
// endpoint and achievement unlocks.
func (d *Daemon) ForceSave(ctx context.Context) error {
	snap := d.manager.Snapshot()
	if err := d.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	log.Printf("saved %d users, %d messages (%s)", snap.TotalUsers, snap.TotalMessages, d.store.Name())
	return nil
}

// EmergencySave is the bounded-budget path for termination signals: it
// prefers the backend's fast path over the full rotating-backup write and
// abandons the attempt when ctx expires, so a hung disk cannot block exit.
func (d *Daemon) EmergencySave(ctx context.Context) {
	snap := d.manager.Snapshot()
	errCh := make(chan error, 1)
	go func() {
		if fs, ok := d.store.(FastSaver); ok {
			errCh <- fs.SaveFast(ctx, snap)
		} else {
			errCh <- d.store.Save(ctx, snap)
		}
	}()
	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("emergency save failed: %v", err)
			return
		}
		log.Printf("emergency save done: %d users, %d messages", snap.TotalUsers, snap.TotalMessages)
	case <-ctx.Done():
		log.Printf("emergency save abandoned: %v", ctx.Err())
	}
}

// HandleSignals installs a SIGINT/SIGTERM handler that performs a
// best-effort synchronous save within budget and then exits the process.
func (d *Daemon) HandleSignals(budget time.Duration) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-ch
		log.Printf("received %v, saving before exit", sig)
		ctx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()
		d.EmergencySave(ctx)
		os.Exit(0)
	}()
}
