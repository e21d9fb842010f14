package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna-bot/internal/store"
	"luna-bot/internal/user"
)

// memStore is an in-memory store.Store for tests.
type memStore struct {
	mu       sync.Mutex
	saved    []*store.Snapshot
	failSave bool
	counters map[string]int64
	sets     map[string]map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		counters: make(map[string]int64),
		sets:     make(map[string]map[string]bool),
	}
}

func (m *memStore) Name() string { return "mem" }

func (m *memStore) Load(ctx context.Context) (*store.Snapshot, error) {
	return store.NewSnapshot(), nil
}

func (m *memStore) Save(ctx context.Context, snap *store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	m.saved = append(m.saved, snap)
	return nil
}

func (m *memStore) IncrementCounter(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *memStore) AddToSet(ctx context.Context, set, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[set] == nil {
		m.sets[set] = make(map[string]bool)
	}
	m.sets[set][member] = true
	return nil
}

func (m *memStore) Close() error { return nil }

func newTestManager() *Manager {
	return NewManager(newMemStore(), store.NewSnapshot())
}

func TestUpdateCreatesRecordOnFirstAccess(t *testing.T) {
	m := newTestManager()
	m.Update(1, func(st *UserState) {
		require.NotNil(t, st.Stats)
		require.NotNil(t, st.Achievements)
		assert.Equal(t, user.GenderUnknown, st.Gender)
		assert.Zero(t, st.Stats.MessageCount)
	})
	assert.Equal(t, 1, m.TotalUsers())
}

func TestConcurrentIncrementsSameUser(t *testing.T) {
	m := newTestManager()
	const n = 500

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Update(7, func(st *UserState) {
				st.Stats.Touch(time.Now())
			})
		}()
	}
	wg.Wait()

	m.View(7, func(st *UserState) {
		assert.Equal(t, n, st.Stats.MessageCount, "lost updates under concurrency")
	})
}

func TestConcurrentIncrementsDistinctUsers(t *testing.T) {
	m := newTestManager()
	const users = 100

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				m.Update(id, func(st *UserState) { st.Stats.Touch(time.Now()) })
			}
		}(int64(u))
	}
	wg.Wait()

	assert.Equal(t, users, m.TotalUsers())
	assert.Equal(t, users*10, m.TotalMessages())
}

func TestPremiumLazyEviction(t *testing.T) {
	m := newTestManager()
	now := time.Now()

	m.SetPremium(3, &user.Premium{Tier: "gold", ActivatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour)})
	m.SetPremium(4, &user.Premium{Tier: "gold", ActivatedAt: now, ExpiresAt: now.Add(time.Hour)})

	assert.False(t, m.IsPremium(3, now))
	assert.True(t, m.IsPremium(4, now))

	// the expired record was removed by the read, so listings exclude it
	m.View(3, func(st *UserState) { assert.Nil(t, st.Premium) })
	assert.Equal(t, []int64{4}, m.PremiumUsers(now))
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	m := newTestManager()
	m.Update(5, func(st *UserState) {
		st.Stats.Touch(time.Now())
		st.Context = user.AppendTurn(st.Context, user.Turn{User: "hi", Bot: "hey"})
		st.Achievements.Unlocked.Add(user.AchFirstWords)
	})

	snap := m.Snapshot()
	require.Equal(t, 1, snap.UserStats[5].MessageCount)

	// mutating live state must not leak into the captured snapshot
	m.Update(5, func(st *UserState) {
		st.Stats.Touch(time.Now())
		st.Context = user.AppendTurn(st.Context, user.Turn{User: "again", Bot: "yo"})
		st.Achievements.Unlocked.Add(user.AchChatterbox)
	})

	assert.Equal(t, 1, snap.UserStats[5].MessageCount)
	assert.Len(t, snap.UserContext[5], 1)
	assert.False(t, snap.UserAchievements[5].Unlocked.Has(user.AchChatterbox))
}

func TestSnapshotTotals(t *testing.T) {
	m := newTestManager()
	for id := int64(1); id <= 3; id++ {
		m.Update(id, func(st *UserState) {
			for i := 0; i < 5; i++ {
				st.Stats.Touch(time.Now())
			}
		})
	}
	snap := m.Snapshot()
	assert.Equal(t, 3, snap.TotalUsers)
	assert.Equal(t, 15, snap.TotalMessages)
	assert.False(t, snap.LastSave.IsZero())
}

func TestManagerSeedsFromSnapshot(t *testing.T) {
	seed := store.NewSnapshot()
	stats := user.NewStats(time.Unix(10, 0))
	stats.MessageCount = 33
	seed.UserStats[9] = stats
	seed.UserGender[9] = user.GenderMale

	m := NewManager(newMemStore(), seed)
	found := m.View(9, func(st *UserState) {
		assert.Equal(t, 33, st.Stats.MessageCount)
		assert.Equal(t, user.GenderMale, st.Gender)
	})
	assert.True(t, found)
}

func TestManagerSeedsGenderOnlyUser(t *testing.T) {
	seed := store.NewSnapshot()
	seed.UserGender[11] = user.GenderFemale

	m := NewManager(newMemStore(), seed)
	found := m.View(11, func(st *UserState) {
		require.NotNil(t, st.Stats)
		require.NotNil(t, st.Achievements)
		assert.Equal(t, user.GenderFemale, st.Gender)
	})
	assert.True(t, found)
}

// slowSetStore parks AddToSet for user 1 until block is closed.
type slowSetStore struct {
	*memStore
	block chan struct{}
}

func (s *slowSetStore) AddToSet(ctx context.Context, set, member string) error {
	if member == "1" {
		<-s.block
	}
	return s.memStore.AddToSet(ctx, set, member)
}

func TestSlowBookkeepingDoesNotStallOtherUsers(t *testing.T) {
	ss := &slowSetStore{memStore: newMemStore(), block: make(chan struct{})}
	m := NewManager(ss, store.NewSnapshot())

	blocked := make(chan struct{})
	go func() {
		m.Update(1, func(st *UserState) { st.Stats.Touch(time.Now()) })
		close(blocked)
	}()
	// let the goroutine reach the parked store call
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		m.Update(2, func(st *UserState) { st.Stats.Touch(time.Now()) })
		m.View(2, func(st *UserState) {
			assert.Equal(t, 1, st.Stats.MessageCount)
		})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated user stalled behind another user's store round trip")
	}

	close(ss.block)
	<-blocked
}

func TestNewUserBookkeeping(t *testing.T) {
	ms := newMemStore()
	m := NewManager(ms, store.NewSnapshot())
	m.Update(123, func(st *UserState) {})
	m.CountMessage()

	ms.mu.Lock()
	defer ms.mu.Unlock()
	assert.True(t, ms.sets["active_users"]["123"])
	assert.Equal(t, int64(1), ms.counters["total_messages"])
}
