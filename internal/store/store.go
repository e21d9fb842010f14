package store

import (
	"context"
	"fmt"
	"time"

	"luna-bot/internal/user"
)

// Snapshot is the full persisted state: every per-user map plus save
// metadata. Totals are recomputed by summation before every save and never
// trusted from a loaded file.
type Snapshot struct {
	UserStats        map[int64]*user.Stats        `json:"user_stats"`
	UserGender       map[int64]user.Gender        `json:"user_gender"`
	UserContext      map[int64][]user.Turn        `json:"user_context"`
	PremiumUsers     map[int64]*user.Premium      `json:"premium_users"`
	UserAchievements map[int64]*user.Achievements `json:"user_achievements"`
	LastSave         time.Time                    `json:"last_save"`
	TotalUsers       int                          `json:"total_users"`
	TotalMessages    int                          `json:"total_messages"`
}

// NewSnapshot returns an empty but fully initialized snapshot.
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.Normalize()
	return s
}

// Normalize fills in collections that are missing from older or partial
// persisted snapshots. Loading must default absent fields, never fail on them.
func (s *Snapshot) Normalize() {
	if s.UserStats == nil {
		s.UserStats = make(map[int64]*user.Stats)
	}
	if s.UserGender == nil {
		s.UserGender = make(map[int64]user.Gender)
	}
	if s.UserContext == nil {
		s.UserContext = make(map[int64][]user.Turn)
	}
	if s.PremiumUsers == nil {
		s.PremiumUsers = make(map[int64]*user.Premium)
	}
	if s.UserAchievements == nil {
		s.UserAchievements = make(map[int64]*user.Achievements)
	}
	for _, a := range s.UserAchievements {
		a.Normalize()
	}
}

// Validate performs the structural integrity checks run by the recovery
// chain after a snapshot has been parsed.
func (s *Snapshot) Validate() error {
	for id, st := range s.UserStats {
		if st == nil {
			return fmt.Errorf("user %d: nil stats", id)
		}
		if st.MessageCount < 0 {
			return fmt.Errorf("user %d: negative message count %d", id, st.MessageCount)
		}
	}
	for id, turns := range s.UserContext {
		if len(turns) > user.MaxContextTurns {
			return fmt.Errorf("user %d: context length %d exceeds cap %d", id, len(turns), user.MaxContextTurns)
		}
	}
	for id, a := range s.UserAchievements {
		if a == nil {
			return fmt.Errorf("user %d: nil achievements", id)
		}
		for _, achID := range a.Unlocked.Members() {
			if _, ok := user.CatalogEntry(achID); !ok {
				return fmt.Errorf("user %d: unknown achievement %q", id, achID)
			}
		}
	}
	return nil
}

// ComputeTotals refreshes the aggregate counters from the per-user maps.
func (s *Snapshot) ComputeTotals() {
	s.TotalUsers = len(s.UserStats)
	total := 0
	for _, st := range s.UserStats {
		total += st.MessageCount
	}
	s.TotalMessages = total
}

// Loader reads a snapshot without being able to write one. Used for the
// backup leg of the recovery chain.
type Loader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Store abstracts the durable backend. Two interchangeable implementations
// exist: a local snapshot file with write-temp-then-rename discipline, and a
// Redis keyspace where every user field is an individually addressable key.
//
// Save must be atomic from a reader's point of view. Load must tolerate an
// absent backend (first run) by returning an empty snapshot; a present but
// unparseable backend is an error and triggers the recovery chain.
type Store interface {
	Loader
	Save(ctx context.Context, snap *Snapshot) error
	IncrementCounter(ctx context.Context, key string) (int64, error)
	AddToSet(ctx context.Context, set, member string) error
	Name() string
	Close() error
}
