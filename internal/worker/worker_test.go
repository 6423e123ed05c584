package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/studyexec/internal/domain"
	"github.com/shaiso/studyexec/internal/mq"
	"github.com/shaiso/studyexec/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

// journal — общий журнал вызовов для проверки порядка.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(event string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type savedResult struct {
	success   bool
	resultKey string
}

type fakeTracker struct {
	mu      sync.Mutex
	journal *journal
	execs   map[uuid.UUID]*domain.Execution
	logs    map[uuid.UUID][]string
	saves   map[uuid.UUID][]savedResult
	running map[uuid.UUID]int

	loadErr    error
	runningErr error
	appendErr  error
	saveErr    error
}

func newFakeTracker(j *journal, execs ...*domain.Execution) *fakeTracker {
	t := &fakeTracker{
		journal: j,
		execs:   make(map[uuid.UUID]*domain.Execution),
		logs:    make(map[uuid.UUID][]string),
		saves:   make(map[uuid.UUID][]savedResult),
		running: make(map[uuid.UUID]int),
	}
	for _, e := range execs {
		t.execs[e.ID] = e
	}
	return t
}

func (t *fakeTracker) Load(_ context.Context, id uuid.UUID) (*domain.Execution, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal.add("load")

	if t.loadErr != nil {
		return nil, t.loadErr
	}
	exec, ok := t.execs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *exec
	return &cp, nil
}

func (t *fakeTracker) SetRunning(_ context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal.add("running")

	if t.runningErr != nil {
		return t.runningErr
	}
	t.running[id]++
	t.execs[id].Status = domain.ExecutionStatusRunning
	return nil
}

func (t *fakeTracker) AppendLog(_ context.Context, id uuid.UUID, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal.add("log:" + message)

	if t.appendErr != nil {
		return t.appendErr
	}
	t.logs[id] = append(t.logs[id], message)
	return nil
}

func (t *fakeTracker) SaveResult(_ context.Context, id uuid.UUID, success bool, resultKey string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal.add("save")

	if t.saveErr != nil {
		return t.saveErr
	}
	t.saves[id] = append(t.saves[id], savedResult{success: success, resultKey: resultKey})
	t.execs[id].Status = domain.TerminalStatus(success)
	return nil
}

func (t *fakeTracker) ListPending(_ context.Context, limit int) ([]domain.Execution, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var result []domain.Execution
	for _, e := range t.execs {
		if e.Status == domain.ExecutionStatusPending && len(result) < limit {
			result = append(result, *e)
		}
	}
	return result, nil
}

// fakeCaller возвращает заранее заданные исходы попыток по порядку.
type fakeCaller struct {
	mu       sync.Mutex
	journal  *journal
	outcomes []domain.AttemptOutcome
	inputs   []string
	ctxErrs  []error
}

func (c *fakeCaller) Call(ctx context.Context, input string) domain.AttemptOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.journal.add("call")

	c.inputs = append(c.inputs, input)
	c.ctxErrs = append(c.ctxErrs, ctx.Err())

	n := len(c.inputs)
	if n > len(c.outcomes) {
		return domain.Failed("no more outcomes")
	}
	return c.outcomes[n-1]
}

func (c *fakeCaller) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inputs)
}

type fakePublisher struct {
	mu       sync.Mutex
	payloads []mq.ExecutionCompletedPayload
	err      error
}

func (p *fakePublisher) PublishExecutionCompleted(_ context.Context, payload mq.ExecutionCompletedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return p.err
}

type fixture struct {
	journal   *journal
	tracker   *fakeTracker
	caller    *fakeCaller
	publisher *fakePublisher
	worker    *Worker
	exec      *domain.Execution
}

func newFixture(input string, maxRetries int, outcomes ...domain.AttemptOutcome) *fixture {
	j := &journal{}
	exec := domain.NewExecution(input, maxRetries)
	tracker := newFakeTracker(j, exec)
	caller := &fakeCaller{journal: j, outcomes: outcomes}
	publisher := &fakePublisher{}

	return &fixture{
		journal:   j,
		tracker:   tracker,
		caller:    caller,
		publisher: publisher,
		exec:      exec,
		worker: New(Config{
			Tracker:   tracker,
			Pending:   tracker,
			Caller:    caller,
			Publisher: publisher,
		}),
	}
}

// --- Execute ---

func TestExecute_FirstAttemptSucceeds(t *testing.T) {
	f := newFixture("fakeurl1", 5, domain.Succeeded("xyz.json"))

	require.NoError(t, f.worker.Execute(context.Background(), f.exec.ID))

	assert.Equal(t, 1, f.caller.calls())
	assert.Equal(t, []string{"fakeurl1"}, f.caller.inputs)
	assert.Equal(t, []string{""}, f.tracker.logs[f.exec.ID])
	assert.Equal(t, []savedResult{{success: true, resultKey: "xyz.json"}}, f.tracker.saves[f.exec.ID])
	assert.Equal(t, []string{"load", "running", "call", "log:", "save"}, f.journal.list())
}

func TestExecute_SucceedsAfterTimeouts(t *testing.T) {
	f := newFixture("fakeurl1", 5,
		domain.Failed("Timeout"),
		domain.Failed("Timeout"),
		domain.Succeeded("wcwc.json"),
	)

	require.NoError(t, f.worker.Execute(context.Background(), f.exec.ID))

	assert.Equal(t, 3, f.caller.calls())
	assert.Equal(t, []string{"Timeout", "Timeout", ""}, f.tracker.logs[f.exec.ID])
	assert.Equal(t, []savedResult{{success: true, resultKey: "wcwc.json"}}, f.tracker.saves[f.exec.ID])
	assert.Equal(t, domain.ExecutionStatusSucceeded, f.tracker.execs[f.exec.ID].Status)
}

func TestExecute_RetriesExhausted(t *testing.T) {
	f := newFixture("fakeurl1", 2,
		domain.Failed("Timeout"),
		domain.Failed("Weird Error"),
		domain.Succeeded("never.json"),
	)

	require.NoError(t, f.worker.Execute(context.Background(), f.exec.ID))

	assert.Equal(t, 2, f.caller.calls())
	assert.Equal(t, []string{"Timeout", "Weird Error"}, f.tracker.logs[f.exec.ID])
	assert.Equal(t, []savedResult{{success: false, resultKey: ""}}, f.tracker.saves[f.exec.ID])
	assert.Equal(t, domain.ExecutionStatusFailed, f.tracker.execs[f.exec.ID].Status)
}

func TestExecute_AttemptBound(t *testing.T) {
	for _, budget := range []int{1, 3, 7} {
		t.Run(fmt.Sprintf("budget=%d", budget), func(t *testing.T) {
			f := newFixture("in", budget)

			require.NoError(t, f.worker.Execute(context.Background(), f.exec.ID))

			assert.Equal(t, budget, f.caller.calls())
			assert.Len(t, f.tracker.logs[f.exec.ID], budget)
			assert.Len(t, f.tracker.saves[f.exec.ID], 1)
			assert.False(t, f.tracker.saves[f.exec.ID][0].success)
		})
	}
}

func TestExecute_NonPositiveBudget(t *testing.T) {
	for _, budget := range []int{0, -1} {
		t.Run(fmt.Sprintf("budget=%d", budget), func(t *testing.T) {
			f := newFixture("in", budget, domain.Succeeded("k.json"))

			require.NoError(t, f.worker.Execute(context.Background(), f.exec.ID))

			assert.Zero(t, f.caller.calls())
			assert.Empty(t, f.tracker.logs[f.exec.ID])
			assert.Equal(t, []savedResult{{success: false, resultKey: ""}}, f.tracker.saves[f.exec.ID])
			assert.Equal(t, []string{"load", "running", "save"}, f.journal.list())
		})
	}
}

func TestExecute_SetRunningOnceBeforeFirstAttempt(t *testing.T) {
	f := newFixture("in", 3, domain.Failed("a"), domain.Failed("b"), domain.Failed("c"))

	require.NoError(t, f.worker.Execute(context.Background(), f.exec.ID))

	events := f.journal.list()
	assert.Equal(t, 1, f.tracker.running[f.exec.ID])
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, "running", events[1])
	assert.Equal(t, "call", events[2])
	assert.Equal(t, "save", events[len(events)-1])
}

func TestExecute_NotFound(t *testing.T) {
	f := newFixture("in", 3)

	err := f.worker.Execute(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrExecutionNotFound)
	assert.Zero(t, f.caller.calls())
	assert.Equal(t, []string{"load"}, f.journal.list())
}

func TestExecute_SetRunningError(t *testing.T) {
	f := newFixture("in", 3)
	f.tracker.runningErr = repo.ErrInvalidState

	err := f.worker.Execute(context.Background(), f.exec.ID)

	assert.ErrorIs(t, err, repo.ErrInvalidState)
	assert.Zero(t, f.caller.calls())
	assert.Empty(t, f.tracker.saves[f.exec.ID])
	assert.Empty(t, f.publisher.payloads)
}

func TestExecute_AppendLogErrorDoesNotStopLoop(t *testing.T) {
	f := newFixture("in", 3, domain.Failed("a"), domain.Succeeded("k.json"))
	f.tracker.appendErr = errors.New("db down")

	require.NoError(t, f.worker.Execute(context.Background(), f.exec.ID))

	assert.Equal(t, 2, f.caller.calls())
	assert.Equal(t, []savedResult{{success: true, resultKey: "k.json"}}, f.tracker.saves[f.exec.ID])
}

func TestExecute_SaveResultError(t *testing.T) {
	f := newFixture("in", 1, domain.Succeeded("k.json"))
	f.tracker.saveErr = errors.New("db down")

	err := f.worker.Execute(context.Background(), f.exec.ID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "save execution result")
	assert.Empty(t, f.publisher.payloads)
}

func TestExecute_IgnoresCancellation(t *testing.T) {
	f := newFixture("in", 2, domain.Failed("Timeout"), domain.Succeeded("k.json"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.worker.Execute(ctx, f.exec.ID))

	assert.Equal(t, []error{nil, nil}, f.caller.ctxErrs)
	assert.Len(t, f.tracker.saves[f.exec.ID], 1)
}

func TestExecute_PublishesCompletion(t *testing.T) {
	f := newFixture("in", 5, domain.Failed("Timeout"), domain.Succeeded("k.json"))

	require.NoError(t, f.worker.Execute(context.Background(), f.exec.ID))

	require.Len(t, f.publisher.payloads, 1)
	assert.Equal(t, mq.ExecutionCompletedPayload{
		ExecutionID: f.exec.ID,
		Status:      "SUCCEEDED",
		ResultKey:   "k.json",
		Attempts:    2,
	}, f.publisher.payloads[0])
}

func TestExecute_PublishErrorIgnored(t *testing.T) {
	f := newFixture("in", 1, domain.Failed("boom"))
	f.publisher.err = errors.New("channel closed")

	require.NoError(t, f.worker.Execute(context.Background(), f.exec.ID))
	assert.Len(t, f.publisher.payloads, 1)
	assert.Equal(t, "FAILED", f.publisher.payloads[0].Status)
}

// --- Ingestion ---

func TestProcessExecution_SkipsNonPending(t *testing.T) {
	f := newFixture("in", 1, domain.Succeeded("k.json"))

	require.NoError(t, f.worker.processExecution(context.Background(), f.exec.ID))

	err := f.worker.processExecution(context.Background(), f.exec.ID)
	assert.ErrorIs(t, err, ErrExecutionNotPending)
	assert.Equal(t, 1, f.caller.calls())
	assert.Len(t, f.tracker.saves[f.exec.ID], 1)
}

func TestHandleExecutionPending(t *testing.T) {
	f := newFixture("in", 1, domain.Succeeded("k.json"))

	delivery := &mq.Delivery{Message: *mq.NewMessage(
		mq.MessageTypeExecutionPending,
		mq.ExecutionPendingPayload{ExecutionID: f.exec.ID},
	)}

	require.NoError(t, f.worker.handleExecutionPending(context.Background(), delivery))
	assert.Equal(t, 1, f.caller.calls())
	// execution загружается один раз: проверка статуса и выполнение
	// используют одну и ту же запись
	assert.Equal(t, []string{"load", "running", "call", "log:", "save"}, f.journal.list())

	// Повторная доставка — ack без выполнения
	require.NoError(t, f.worker.handleExecutionPending(context.Background(), delivery))
	assert.Equal(t, 1, f.caller.calls())
	assert.Equal(t, []string{"load", "running", "call", "log:", "save", "load"}, f.journal.list())
}

func TestHandleExecutionPending_UnknownID(t *testing.T) {
	f := newFixture("in", 1)

	delivery := &mq.Delivery{Message: *mq.NewMessage(
		mq.MessageTypeExecutionPending,
		mq.ExecutionPendingPayload{ExecutionID: uuid.New()},
	)}

	assert.NoError(t, f.worker.handleExecutionPending(context.Background(), delivery))
	assert.Zero(t, f.caller.calls())
}

func TestHandleExecutionPending_Rejects(t *testing.T) {
	f := newFixture("in", 1)

	tests := []struct {
		name    string
		payload any
	}{
		{"wrong type", map[string]any{"execution_id": 42}},
		{"empty id", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delivery := &mq.Delivery{Message: *mq.NewMessage(mq.MessageTypeExecutionPending, tt.payload)}

			err := f.worker.handleExecutionPending(context.Background(), delivery)
			assert.ErrorIs(t, err, mq.ErrReject)
		})
	}
	assert.Zero(t, f.caller.calls())
}

func TestHandleExecutionPending_TrackerErrorRequeues(t *testing.T) {
	f := newFixture("in", 1)
	f.tracker.loadErr = errors.New("db down")

	delivery := &mq.Delivery{Message: *mq.NewMessage(
		mq.MessageTypeExecutionPending,
		mq.ExecutionPendingPayload{ExecutionID: f.exec.ID},
	)}

	err := f.worker.handleExecutionPending(context.Background(), delivery)
	require.Error(t, err)
	assert.NotErrorIs(t, err, mq.ErrReject)
}

func TestPoll_ExecutesPending(t *testing.T) {
	j := &journal{}
	first := domain.NewExecution("a", 1)
	second := domain.NewExecution("b", 1)
	done := domain.NewExecution("c", 1)
	done.Status = domain.ExecutionStatusSucceeded

	tracker := newFakeTracker(j, first, second, done)
	caller := &fakeCaller{journal: j, outcomes: []domain.AttemptOutcome{
		domain.Succeeded("a.json"),
		domain.Succeeded("b.json"),
	}}

	w := New(Config{Tracker: tracker, Pending: tracker, Caller: caller})
	w.poll(context.Background())

	assert.Equal(t, 2, caller.calls())
	assert.ElementsMatch(t, []string{"a", "b"}, caller.inputs)
	assert.Len(t, tracker.saves[first.ID], 1)
	assert.Len(t, tracker.saves[second.ID], 1)
	assert.Empty(t, tracker.saves[done.ID])
}

// --- Lifecycle ---

func TestNew_Defaults(t *testing.T) {
	w := New(Config{})

	assert.Equal(t, defaultPollSchedule, w.pollSchedule)
	assert.Equal(t, defaultBatchSize, w.batchSize)
	assert.NotNil(t, w.logger)
	assert.Nil(t, w.publisher)
}

func TestStart_InvalidSchedule(t *testing.T) {
	w := New(Config{PollSchedule: "every now and then"})

	err := w.Start(context.Background())
	assert.ErrorIs(t, err, ErrInvalidPollSchedule)
}

func TestStartStop_PollingOnly(t *testing.T) {
	f := newFixture("in", 1, domain.Succeeded("k.json"))

	require.NoError(t, f.worker.Start(context.Background()))
	f.worker.Stop()

	assert.True(t, f.worker.IsStopped())
}
