package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadata-sync/core/model"
	"metadata-sync/core/retry"
)

// fakeService is an in-memory scan service.
type fakeService struct {
	mu        sync.Mutex
	scans     map[string]*model.ScanResource
	jobStates []model.ScanState // returned in order by GetJob, last one repeats
	jobPolls  int
	creates   int
	runs      int
	getDelay  time.Duration

	getErr       error
	createErr    error
	raceOnCreate bool
	jobErrs      []error
	result       []byte
}

func newFakeService() *fakeService {
	return &fakeService{scans: make(map[string]*model.ScanResource)}
}

func (f *fakeService) GetScan(ctx context.Context, table model.TableDescriptor) (*model.ScanResource, error) {
	if f.getDelay > 0 {
		time.Sleep(f.getDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	res, ok := f.scans[ScanID(table)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (f *fakeService) CreateScan(ctx context.Context, table model.TableDescriptor) (*model.ScanResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.raceOnCreate {
		// Another process wins the create.
		f.scans[ScanID(table)] = &model.ScanResource{ID: ScanID(table), Table: table, State: model.ScanIdle}
		return nil, ErrAlreadyExists
	}
	if _, ok := f.scans[ScanID(table)]; ok {
		return nil, ErrAlreadyExists
	}
	res := &model.ScanResource{ID: ScanID(table), Table: table, State: model.ScanIdle}
	f.scans[res.ID] = res
	cp := *res
	return &cp, nil
}

func (f *fakeService) RunScan(ctx context.Context, scanID string) (model.JobHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return model.JobHandle{ID: fmt.Sprintf("job-%d", f.runs), ScanID: scanID}, nil
}

func (f *fakeService) GetJob(ctx context.Context, job model.JobHandle) (model.ScanState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobPolls++
	if len(f.jobErrs) > 0 {
		err := f.jobErrs[0]
		f.jobErrs = f.jobErrs[1:]
		return "", err
	}
	if len(f.jobStates) == 0 {
		return model.ScanRunning, nil
	}
	state := f.jobStates[0]
	if len(f.jobStates) > 1 {
		f.jobStates = f.jobStates[1:]
	}
	if state == model.ScanSucceeded {
		now := time.Now()
		if res, ok := f.scans[job.ScanID]; ok {
			res.State = state
			res.LastRunAt = &now
		}
	}
	return state, nil
}

func (f *fakeService) GetResult(ctx context.Context, scanID string) ([]byte, error) {
	return f.result, nil
}

var orders = model.TableDescriptor{Project: "prod", Dataset: "sales", Table: "orders"}

func testPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.BaseDelay = time.Millisecond
	p.MaxDelay = 2 * time.Millisecond
	return p
}

func TestEnsureScan_CreatesOnce(t *testing.T) {
	svc := newFakeService()
	m := NewManager(svc, nil, testPolicy(), nil)

	res, err := m.EnsureScan(context.Background(), orders)
	require.NoError(t, err)
	assert.Equal(t, ScanID(orders), res.ID)
	assert.Equal(t, model.ScanIdle, res.State)

	_, err = m.EnsureScan(context.Background(), orders)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.creates)
}

func TestEnsureScan_SeparatesSimilarTables(t *testing.T) {
	svc := newFakeService()
	m := NewManager(svc, nil, testPolicy(), nil)

	euOrders := model.TableDescriptor{Project: "prod", Dataset: "sales_eu", Table: "orders"}
	salesEU := model.TableDescriptor{Project: "prod", Dataset: "sales", Table: "eu_orders"}

	first, err := m.EnsureScan(context.Background(), euOrders)
	require.NoError(t, err)
	second, err := m.EnsureScan(context.Background(), salesEU)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, salesEU, second.Table)
	assert.Equal(t, 2, svc.creates)
	assert.Len(t, svc.scans, 2)
}

func TestEnsureScan_ConcurrentCallersShareOneCreate(t *testing.T) {
	svc := newFakeService()
	svc.getDelay = 10 * time.Millisecond
	m := NewManager(svc, nil, testPolicy(), nil)

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := m.EnsureScan(context.Background(), orders)
			if assert.NoError(t, err) {
				ids[i] = res.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, svc.creates)
	for _, id := range ids {
		assert.Equal(t, ScanID(orders), id)
	}
}

func TestEnsureScan_AlreadyExistsIsSuccess(t *testing.T) {
	svc := newFakeService()
	svc.raceOnCreate = true
	m := NewManager(svc, nil, testPolicy(), nil)

	res, err := m.EnsureScan(context.Background(), orders)
	require.NoError(t, err)
	assert.Equal(t, ScanID(orders), res.ID)
	assert.Equal(t, 1, svc.creates)
}

func TestEnsureScan_AlreadyExistsButMissing(t *testing.T) {
	svc := newFakeService()
	svc.createErr = ErrAlreadyExists
	m := NewManager(svc, nil, testPolicy(), nil)

	_, err := m.EnsureScan(context.Background(), orders)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestEnsureScan_PermissionNotRetried(t *testing.T) {
	svc := newFakeService()
	svc.getErr = ErrPermission
	m := NewManager(svc, nil, testPolicy(), nil)

	_, err := m.EnsureScan(context.Background(), orders)
	assert.True(t, errors.Is(err, ErrPermission))
	assert.Equal(t, 0, svc.creates)
}

func TestTriggerRun(t *testing.T) {
	svc := newFakeService()
	m := NewManager(svc, nil, testPolicy(), nil)

	t.Run("Idle", func(t *testing.T) {
		handle := &model.ScanResource{ID: "scan-1", State: model.ScanIdle}
		job, err := m.TriggerRun(context.Background(), handle)
		require.NoError(t, err)
		assert.Equal(t, "scan-1", job.ScanID)
		assert.Equal(t, model.ScanRunning, handle.State)
	})

	t.Run("AlreadyRunning", func(t *testing.T) {
		runs := svc.runs
		handle := &model.ScanResource{ID: "scan-1", State: model.ScanRunning, Job: &model.JobHandle{ID: "job-x", ScanID: "scan-1"}}
		job, err := m.TriggerRun(context.Background(), handle)
		require.NoError(t, err)
		assert.Equal(t, "job-x", job.ID)
		assert.Equal(t, runs, svc.runs)
	})

	t.Run("Creating", func(t *testing.T) {
		_, err := m.TriggerRun(context.Background(), &model.ScanResource{ID: "scan-2", State: model.ScanCreating})
		assert.True(t, retry.IsTransient(err))
	})

	t.Run("Absent", func(t *testing.T) {
		_, err := m.TriggerRun(context.Background(), &model.ScanResource{ID: "scan-3", State: model.ScanAbsent})
		assert.True(t, retry.IsPermanent(err))
	})
}

func TestWaitForCompletion(t *testing.T) {
	svc := newFakeService()
	svc.jobStates = []model.ScanState{model.ScanRunning, model.ScanRunning, model.ScanSucceeded}
	svc.jobErrs = []error{retry.Transient(errors.New("503"))}
	m := NewManager(svc, nil, testPolicy(), nil)

	state, err := m.WaitForCompletion(context.Background(), model.JobHandle{ID: "job-1"}, time.Second, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, model.ScanSucceeded, state)
	assert.Equal(t, 4, svc.jobPolls)
}

func TestWaitForCompletion_Failed(t *testing.T) {
	svc := newFakeService()
	svc.jobStates = []model.ScanState{model.ScanFailed}
	m := NewManager(svc, nil, testPolicy(), nil)

	state, err := m.WaitForCompletion(context.Background(), model.JobHandle{ID: "job-1"}, time.Second, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, model.ScanFailed, state)
}

func TestWaitForCompletion_Timeout(t *testing.T) {
	svc := newFakeService()
	m := NewManager(svc, nil, testPolicy(), nil)

	start := time.Now()
	state, err := m.WaitForCompletion(context.Background(), model.JobHandle{ID: "job-1"}, 30*time.Millisecond, 5*time.Millisecond)

	var timeoutErr *ScanTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.True(t, IsTimeout(err))
	assert.Equal(t, "job-1", timeoutErr.Job.ID)
	assert.Equal(t, model.ScanRunning, state)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitForCompletion_Cancelled(t *testing.T) {
	svc := newFakeService()
	m := NewManager(svc, nil, testPolicy(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := m.WaitForCompletion(ctx, model.JobHandle{ID: "job-1"}, time.Minute, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRefresh(t *testing.T) {
	opts := RefreshOptions{FreshnessWindow: time.Hour, Timeout: time.Second, PollInterval: 5 * time.Millisecond}

	t.Run("FreshResultSkipsRun", func(t *testing.T) {
		svc := newFakeService()
		recent := time.Now().Add(-time.Minute)
		svc.scans[ScanID(orders)] = &model.ScanResource{ID: ScanID(orders), State: model.ScanSucceeded, LastRunAt: &recent}
		m := NewManager(svc, nil, testPolicy(), nil)

		res, err := m.Refresh(context.Background(), orders, opts)
		require.NoError(t, err)
		assert.Equal(t, model.ScanSucceeded, res.State)
		assert.Equal(t, 0, svc.runs)
	})

	t.Run("StaleResultRuns", func(t *testing.T) {
		svc := newFakeService()
		old := time.Now().Add(-48 * time.Hour)
		svc.scans[ScanID(orders)] = &model.ScanResource{ID: ScanID(orders), State: model.ScanSucceeded, LastRunAt: &old}
		svc.jobStates = []model.ScanState{model.ScanRunning, model.ScanSucceeded}
		m := NewManager(svc, nil, testPolicy(), nil)

		res, err := m.Refresh(context.Background(), orders, opts)
		require.NoError(t, err)
		assert.Equal(t, 1, svc.runs)
		assert.Equal(t, model.ScanSucceeded, res.State)
		require.NotNil(t, res.LastRunAt)
		assert.True(t, res.IsFresh(time.Now(), time.Hour))
	})

	t.Run("AbsentIsCreatedAndRun", func(t *testing.T) {
		svc := newFakeService()
		svc.jobStates = []model.ScanState{model.ScanSucceeded}
		m := NewManager(svc, nil, testPolicy(), nil)

		res, err := m.Refresh(context.Background(), orders, opts)
		require.NoError(t, err)
		assert.Equal(t, 1, svc.creates)
		assert.Equal(t, model.ScanSucceeded, res.State)
	})

	t.Run("Timeout", func(t *testing.T) {
		svc := newFakeService()
		m := NewManager(svc, nil, testPolicy(), nil)

		res, err := m.Refresh(context.Background(), orders, RefreshOptions{Timeout: 15 * time.Millisecond, PollInterval: 5 * time.Millisecond})
		assert.True(t, IsTimeout(err))
		require.NotNil(t, res)
		assert.Equal(t, model.ScanRunning, res.State)
	})
}
