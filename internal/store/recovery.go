package store

import (
	"context"
	"log"
)

// Source names which leg of the recovery chain produced the loaded snapshot.
type Source string

const (
	SourcePrimary Source = "primary"
	SourceBackup  Source = "backup"
	SourceFresh   Source = "fresh"
)

// LoadWithRecovery walks the startup fallback chain: primary, then the
// backup loader, then an empty snapshot. Each candidate must both parse and
// pass structural validation. When the backup wins, the primary is repaired
// with an immediate save. The chain always terminates with a usable
// snapshot; it never aborts startup.
//
// It must run synchronously before the dispatcher accepts any events.
func LoadWithRecovery(ctx context.Context, primary Store, backup Loader) (*Snapshot, Source) {
	snap, err := tryLoad(ctx, primary)
	if err == nil {
		return snap, SourcePrimary
	}
	log.Printf("primary snapshot unusable, trying backup: %v", err)

	if backup != nil {
		snap, err = tryLoad(ctx, backup)
		if err == nil {
			if saveErr := primary.Save(ctx, snap); saveErr != nil {
				log.Printf("failed to repair primary from backup: %v", saveErr)
			}
			return snap, SourceBackup
		}
		log.Printf("backup snapshot unusable, starting fresh: %v", err)
	}

	return NewSnapshot(), SourceFresh
}

func tryLoad(ctx context.Context, l Loader) (*Snapshot, error) {
	snap, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	snap.Normalize()
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}
