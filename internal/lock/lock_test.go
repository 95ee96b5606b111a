package lock_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-indexer/internal/adapter"
	"github.com/feral-file/ff-transfer-indexer/internal/domain"
	"github.com/feral-file/ff-transfer-indexer/internal/lock"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/mocks"
	"github.com/feral-file/ff-transfer-indexer/internal/store/schema"
)

const testLockName = "ownership:0xC0000000000000000000000000000000000000A1:1"

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// lockTable is an in-memory locks table behind the mocked store
type lockTable struct {
	mu   sync.Mutex
	rows map[string]schema.Lock
}

func newLockTable(st *mocks.MockStore) *lockTable {
	tbl := &lockTable{rows: make(map[string]schema.Lock)}

	st.EXPECT().CreateLock(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, l *schema.Lock) (bool, error) {
			tbl.mu.Lock()
			defer tbl.mu.Unlock()
			if _, ok := tbl.rows[l.Name]; ok {
				return false, nil
			}
			tbl.rows[l.Name] = *l
			return true, nil
		}).AnyTimes()

	st.EXPECT().GetLock(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, name string) (*schema.Lock, error) {
			tbl.mu.Lock()
			defer tbl.mu.Unlock()
			row, ok := tbl.rows[name]
			if !ok {
				return nil, nil
			}
			return &row, nil
		}).AnyTimes()

	st.EXPECT().DeleteExpiredLock(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, name string, expiry time.Time) (bool, error) {
			tbl.mu.Lock()
			defer tbl.mu.Unlock()
			row, ok := tbl.rows[name]
			if !ok || !row.ExpiryTime.Equal(expiry) {
				return false, nil
			}
			delete(tbl.rows, name)
			return true, nil
		}).AnyTimes()

	st.EXPECT().DeleteLock(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, name string, holder string) (bool, error) {
			tbl.mu.Lock()
			defer tbl.mu.Unlock()
			row, ok := tbl.rows[name]
			if !ok || row.Holder != holder {
				return false, nil
			}
			delete(tbl.rows, name)
			return true, nil
		}).AnyTimes()

	return tbl
}

func (tbl *lockTable) put(row schema.Lock) {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	tbl.rows[row.Name] = row
}

func (tbl *lockTable) get(name string) (schema.Lock, bool) {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	row, ok := tbl.rows[name]
	return row, ok
}

// manualClock is a mocked clock that only moves when the locker waits
type manualClock struct {
	now   time.Time
	waits int
}

func newManualClock(ctrl *gomock.Controller) (*mocks.MockClock, *manualClock) {
	mc := &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().DoAndReturn(func() time.Time { return mc.now }).AnyTimes()
	clock.EXPECT().Since(gomock.Any()).DoAndReturn(func(t time.Time) time.Duration { return mc.now.Sub(t) }).AnyTimes()
	clock.EXPECT().After(gomock.Any()).DoAndReturn(func(d time.Duration) <-chan time.Time {
		mc.waits++
		mc.now = mc.now.Add(d)
		ch := make(chan time.Time, 1)
		ch <- mc.now
		return ch
	}).AnyTimes()
	return clock, mc
}

var testConfig = lock.Config{
	Timeout:      time.Second,
	Expiry:       time.Minute,
	PollInterval: 100 * time.Millisecond,
}

func setupTestLocker(t *testing.T) (lock.Locker, *lockTable, *manualClock) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	tbl := newLockTable(st)
	clock, mc := newManualClock(ctrl)
	return lock.NewLocker(st, clock, testConfig), tbl, mc
}

func TestAcquireAndRelease(t *testing.T) {
	l, tbl, mc := setupTestLocker(t)
	ctx := context.Background()

	lease, err := l.Acquire(ctx, testLockName)
	require.NoError(t, err)
	assert.Equal(t, testLockName, lease.Name)
	assert.NotEmpty(t, lease.Holder)
	assert.Equal(t, mc.now.Add(testConfig.Expiry), lease.ExpiryTime)
	assert.Zero(t, mc.waits)

	row, ok := tbl.get(testLockName)
	require.True(t, ok)
	assert.Equal(t, lease.Holder, row.Holder)

	require.NoError(t, l.Release(ctx, lease))
	_, ok = tbl.get(testLockName)
	assert.False(t, ok)

	err = l.Release(ctx, lease)
	assert.ErrorIs(t, err, domain.ErrLockNotHeld, "a second release finds nothing")
}

func TestAcquire_TimesOutOnHeldLock(t *testing.T) {
	l, tbl, mc := setupTestLocker(t)
	tbl.put(schema.Lock{Name: testLockName, Holder: "other", ExpiryTime: mc.now.Add(time.Hour)})

	start := mc.now
	lease, err := l.Acquire(context.Background(), testLockName)

	assert.Nil(t, lease)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.True(t, domain.IsRetryLater(err))
	assert.Equal(t, testConfig.Timeout, mc.now.Sub(start), "gives up exactly at the timeout")
	assert.Equal(t, 10, mc.waits)

	row, _ := tbl.get(testLockName)
	assert.Equal(t, "other", row.Holder, "the valid holder is untouched")
}

func TestAcquire_TakesOverExpiredLockWithoutWaiting(t *testing.T) {
	l, tbl, mc := setupTestLocker(t)
	tbl.put(schema.Lock{Name: testLockName, Holder: "crashed", ExpiryTime: mc.now.Add(-time.Second)})

	lease, err := l.Acquire(context.Background(), testLockName)
	require.NoError(t, err)
	assert.Zero(t, mc.waits)

	row, _ := tbl.get(testLockName)
	assert.Equal(t, lease.Holder, row.Holder)
}

func TestAcquire_SucceedsOnceHolderExpires(t *testing.T) {
	l, tbl, mc := setupTestLocker(t)
	tbl.put(schema.Lock{Name: testLockName, Holder: "other", ExpiryTime: mc.now.Add(350 * time.Millisecond)})

	lease, err := l.Acquire(context.Background(), testLockName)
	require.NoError(t, err)
	assert.Equal(t, 4, mc.waits)
	assert.NotEqual(t, "other", lease.Holder)
}

func TestAcquire_CanceledWhileWaiting(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	tbl := newLockTable(st)

	now := time.Now()
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(now).AnyTimes()
	clock.EXPECT().Since(gomock.Any()).Return(time.Duration(0)).AnyTimes()
	clock.EXPECT().After(gomock.Any()).Return(make(chan time.Time)).AnyTimes()

	tbl.put(schema.Lock{Name: testLockName, Holder: "other", ExpiryTime: now.Add(time.Hour)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lock.NewLocker(st, clock, testConfig).Acquire(ctx, testLockName)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquire_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	clock, _ := newManualClock(ctrl)
	st.EXPECT().CreateLock(gomock.Any(), gomock.Any()).Return(false, errors.New("connection refused"))

	_, err := lock.NewLocker(st, clock, testConfig).Acquire(context.Background(), testLockName)
	assert.ErrorContains(t, err, "connection refused")
	assert.NotErrorIs(t, err, domain.ErrLockTimeout)
}

func TestRelease_LostToAnotherHolder(t *testing.T) {
	l, tbl, _ := setupTestLocker(t)
	ctx := context.Background()

	lease, err := l.Acquire(ctx, testLockName)
	require.NoError(t, err)

	// the lease expired and another worker took the lock
	tbl.put(schema.Lock{Name: testLockName, Holder: "newcomer", ExpiryTime: lease.ExpiryTime.Add(time.Minute)})

	err = l.Release(ctx, lease)
	assert.ErrorIs(t, err, domain.ErrLockNotHeld)

	row, _ := tbl.get(testLockName)
	assert.Equal(t, "newcomer", row.Holder, "the newcomer keeps the lock")
}

func TestWithLock(t *testing.T) {
	t.Run("releases after success", func(t *testing.T) {
		l, tbl, _ := setupTestLocker(t)

		ran := false
		err := l.WithLock(context.Background(), testLockName, func(ctx context.Context) error {
			_, held := tbl.get(testLockName)
			assert.True(t, held)
			ran = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
		_, held := tbl.get(testLockName)
		assert.False(t, held)
	})

	t.Run("returns the critical section error and releases", func(t *testing.T) {
		l, tbl, _ := setupTestLocker(t)
		boom := errors.New("boom")

		err := l.WithLock(context.Background(), testLockName, func(ctx context.Context) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		_, held := tbl.get(testLockName)
		assert.False(t, held)
	})

	t.Run("a lost lock does not mask the critical section error", func(t *testing.T) {
		l, tbl, _ := setupTestLocker(t)
		boom := errors.New("boom")

		err := l.WithLock(context.Background(), testLockName, func(ctx context.Context) error {
			tbl.put(schema.Lock{Name: testLockName, Holder: "newcomer", ExpiryTime: time.Now().Add(time.Hour)})
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, domain.ErrLockNotHeld)
	})

	t.Run("a lost lock after success is not an error", func(t *testing.T) {
		l, tbl, _ := setupTestLocker(t)

		err := l.WithLock(context.Background(), testLockName, func(ctx context.Context) error {
			tbl.put(schema.Lock{Name: testLockName, Holder: "newcomer", ExpiryTime: time.Now().Add(time.Hour)})
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("releases on panic", func(t *testing.T) {
		l, tbl, _ := setupTestLocker(t)

		assert.Panics(t, func() {
			_ = l.WithLock(context.Background(), testLockName, func(ctx context.Context) error {
				panic("critical section failed")
			})
		})
		_, held := tbl.get(testLockName)
		assert.False(t, held)
	})

	t.Run("does not run when acquisition times out", func(t *testing.T) {
		l, tbl, mc := setupTestLocker(t)
		tbl.put(schema.Lock{Name: testLockName, Holder: "other", ExpiryTime: mc.now.Add(time.Hour)})

		err := l.WithLock(context.Background(), testLockName, func(ctx context.Context) error {
			t.Fatal("critical section must not run")
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrLockTimeout)
	})
}

func TestWithLock_MutualExclusion(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	newLockTable(st)

	l := lock.NewLocker(st, adapter.NewClock(), lock.Config{
		Timeout:      10 * time.Second,
		Expiry:       time.Minute,
		PollInterval: time.Millisecond,
	})

	var inside, maxInside, runs atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), testLockName, func(ctx context.Context) error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				inside.Add(-1)
				runs.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), runs.Load())
	assert.Equal(t, int32(1), maxInside.Load(), "never two holders at once")
}
