package state

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"luna-bot/internal/store"
	"luna-bot/internal/user"
)

// UserState is the hot in-process record for one user. It is only ever
// touched through Manager.Update, which holds that user's lock; handlers
// must not retain references past the callback.
type UserState struct {
	Stats        *user.Stats
	Gender       user.Gender
	Context      []user.Turn
	Premium      *user.Premium
	Achievements *user.Achievements
}

// Manager is the write-back state cache: the in-memory maps are the source
// of truth between flushes, and the persistence daemon writes point-in-time
// snapshots to the durable store. Every mutation of a user's record goes
// through a single per-user lock (single-writer-per-key); two handlers can
// never interleave read-modify-write on the same record.
type Manager struct {
	store store.Store

	mu    sync.RWMutex
	users map[int64]*UserState
	locks map[int64]*sync.Mutex
}

// NewManager seeds the cache from the snapshot produced by the recovery
// chain. The cache is fully warmed at startup, so a later miss can only mean
// an unseen user and creates a fresh record (read-or-create).
func NewManager(st store.Store, snap *store.Snapshot) *Manager {
	m := &Manager{
		store: st,
		users: make(map[int64]*UserState, len(snap.UserStats)),
		locks: make(map[int64]*sync.Mutex),
	}
	for id, stats := range snap.UserStats {
		m.users[id] = &UserState{
			Stats:        stats,
			Gender:       user.GenderUnknown,
			Context:      snap.UserContext[id],
			Premium:      snap.PremiumUsers[id],
			Achievements: snap.UserAchievements[id],
		}
	}
	for id, g := range snap.UserGender {
		m.ensureLocked(id).Gender = g
	}
	for id, prem := range snap.PremiumUsers {
		if _, ok := m.users[id]; !ok {
			m.ensureLocked(id).Premium = prem
		}
	}
	for _, st := range m.users {
		if st.Stats == nil {
			st.Stats = user.NewStats(time.Now())
		}
		if st.Achievements == nil {
			st.Achievements = user.NewAchievements()
		}
	}
	return m
}

func (m *Manager) lockFor(id int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// ensureLocked returns the state for id, creating it when absent.
// Caller must hold m.mu (write) or the per-user lock plus m.mu as needed;
// it is used from NewManager before the manager is shared.
func (m *Manager) ensureLocked(id int64) *UserState {
	st, ok := m.users[id]
	if !ok {
		st = &UserState{
			Stats:        user.NewStats(time.Now()),
			Gender:       user.GenderUnknown,
			Achievements: user.NewAchievements(),
		}
		m.users[id] = st
	}
	return st
}

// Update runs fn with exclusive access to the user's record, creating the
// record on first access. This is the only mutation path.
func (m *Manager) Update(id int64, fn func(st *UserState)) {
	l := m.lockFor(id)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	st, ok := m.users[id]
	if !ok {
		st = m.ensureLocked(id)
	}
	m.mu.Unlock()

	if !ok {
		// bookkeeping for the remote-KV backend runs outside m.mu, still
		// under the per-user lock, so a slow backend never stalls other
		// users; failures must never reach the message path
		if err := m.store.AddToSet(context.Background(), "active_users", strconv.FormatInt(id, 10)); err != nil {
			log.Printf("active-user bookkeeping failed for %d: %v", id, err)
		}
	}

	fn(st)
}

// View runs fn with read access to the user's record without creating one.
// fn is not called when the user is unknown.
func (m *Manager) View(id int64, fn func(st *UserState)) bool {
	m.mu.RLock()
	_, ok := m.users[id]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	l := m.lockFor(id)
	l.Lock()
	defer l.Unlock()
	m.mu.RLock()
	st := m.users[id]
	m.mu.RUnlock()
	fn(st)
	return true
}

// CountMessage bumps the global message counter in the store. Best effort:
// the durable aggregate is recomputed from the snapshot on every flush
// anyway, so an error here is only logged.
func (m *Manager) CountMessage() {
	if _, err := m.store.IncrementCounter(context.Background(), "total_messages"); err != nil {
		log.Printf("message counter bookkeeping failed: %v", err)
	}
}

// IsPremium reports whether the user holds an unexpired subscription.
// An expired record is evicted on this read, so a later listing of premium
// users no longer includes it.
func (m *Manager) IsPremium(id int64, now time.Time) bool {
	active := false
	m.Update(id, func(st *UserState) {
		if st.Premium == nil {
			return
		}
		if st.Premium.Active(now) {
			active = true
			return
		}
		st.Premium = nil
	})
	return active
}

// SetPremium grants or replaces the user's subscription.
func (m *Manager) SetPremium(id int64, p *user.Premium) {
	m.Update(id, func(st *UserState) { st.Premium = p })
}

// PremiumUsers lists ids holding an unexpired subscription at now.
func (m *Manager) PremiumUsers(now time.Time) []int64 {
	var out []int64
	for _, id := range m.userIDs() {
		if m.IsPremium(id, now) {
			out = append(out, id)
		}
	}
	return out
}

func (m *Manager) userIDs() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	return ids
}

// TotalUsers returns the number of known users.
func (m *Manager) TotalUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// TotalMessages sums message counts across all users. Computed by summation
// at read time, never cached.
func (m *Manager) TotalMessages() int {
	total := 0
	for _, id := range m.userIDs() {
		m.View(id, func(st *UserState) { total += st.Stats.MessageCount })
	}
	return total
}

// Snapshot composes a deep-copied, point-in-time consistent snapshot for the
// persistence daemon. Each user is copied under their own lock, so a record
// mid-mutation can never end up torn in the snapshot.
func (m *Manager) Snapshot() *store.Snapshot {
	snap := store.NewSnapshot()
	for _, id := range m.userIDs() {
		m.View(id, func(st *UserState) {
			stats := *st.Stats
			snap.UserStats[id] = &stats
			if st.Gender != user.GenderUnknown {
				snap.UserGender[id] = st.Gender
			}
			if len(st.Context) > 0 {
				snap.UserContext[id] = append([]user.Turn(nil), st.Context...)
			}
			if st.Premium != nil {
				prem := *st.Premium
				snap.PremiumUsers[id] = &prem
			}
			snap.UserAchievements[id] = copyAchievements(st.Achievements)
		})
	}
	snap.ComputeTotals()
	snap.LastSave = time.Now().UTC()
	return snap
}

func copyAchievements(a *user.Achievements) *user.Achievements {
	out := user.NewAchievements()
	if a == nil {
		return out
	}
	out.Unlocked = a.Unlocked.Clone()
	out.ButtonsUsed = a.ButtonsUsed.Clone()
	for k, v := range a.Progress {
		out.Progress[k] = v
	}
	return out
}
