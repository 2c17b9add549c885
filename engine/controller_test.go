package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-wizard"
	"github.com/goliatone/go-wizard/resolver"
	"github.com/goliatone/go-wizard/wizardtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sku1    = "4600000000011"
	skuMilk = "4600000000028"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Add(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type harness struct {
	ctrl  *Controller
	cache *wizardtest.TaskCache
	sub   *wizardtest.Submitter
	fx    *wizardtest.Fixture
	clock *fakeClock

	mu      sync.Mutex
	signals []Signal
}

func (h *harness) record(s Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = append(h.signals, s)
}

func (h *harness) Signals(kind SignalKind) []Signal {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Signal
	for _, s := range h.signals {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func action(storage []wizard.Step, placement ...wizard.Step) wizard.PlannedAction {
	return wizard.PlannedAction{
		ID:        "a-1",
		TaskID:    "t-1",
		Operation: wizard.OperationPut,
		Endpoint:  "putaway",
		Template: wizard.Template{
			ID:             "tpl",
			StorageSteps:   storage,
			PlacementSteps: placement,
		},
	}
}

func itemQuantity() wizard.PlannedAction {
	return action([]wizard.Step{
		{ID: "item", Kind: wizard.KindItem, Prompt: "Item"},
		{ID: "qty", Kind: wizard.KindQuantity, Prompt: "Quantity"},
	})
}

func newHarness(t *testing.T, a wizard.PlannedAction, dir *wizard.Directory, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		cache: wizardtest.NewTaskCache(a),
		sub:   &wizardtest.Submitter{},
		fx:    wizardtest.NewFixture(),
		clock: newFakeClock(),
	}
	d := h.fx.Directory()
	if dir != nil {
		d = *dir
	}
	ids := 0
	base := []Option{
		WithLogger(wizard.NopLogger{}),
		WithClock(h.clock.Now),
		WithSignalHandler(h.record),
		WithIDGenerator(func() string {
			ids++
			return "id-" + string(rune('0'+ids))
		}),
	}
	ctrl, err := Initialize(context.Background(), h.cache, h.sub, resolver.NewDefaultRegistry(d), a.TaskID, a.ID,
		append(base, opts...)...)
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func assertInvariant(t *testing.T, c *Controller) {
	t.Helper()
	st := c.State()
	if st.Index < 0 || st.Index > len(st.Steps) {
		t.Fatalf("index %d out of range [0,%d]", st.Index, len(st.Steps))
	}
	if st.Completed != (st.Index == len(st.Steps)) {
		t.Fatalf("completed=%v with index %d of %d", st.Completed, st.Index, len(st.Steps))
	}
}

func TestScenarioAAdvanceRequiresQuantity(t *testing.T) {
	h := newHarness(t, itemQuantity(), nil)
	ctx := context.Background()

	out, err := h.ctrl.HandleScan(ctx, sku1)
	require.NoError(t, err)
	assert.Equal(t, StatusAdvanced, out.Status)
	assert.Equal(t, 1, out.Index)

	out, err = h.ctrl.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, "Quantity is not complete", out.Message)
	assert.Equal(t, 1, h.ctrl.State().Index)

	out, err = h.ctrl.Supply(ctx, 0.0)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)

	out, err = h.ctrl.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)

	out, err = h.ctrl.Supply(ctx, 3.0)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)

	out, err = h.ctrl.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)

	st := h.ctrl.State()
	assert.True(t, st.Completed)
	assert.Equal(t, PhaseCompleted, st.Phase)
	require.NotNil(t, st.Values.Item)
	assert.Equal(t, "i-1", st.Values.Item.Item.ID)
	assert.Equal(t, 3.0, st.Values.Item.Quantity)
	assert.Len(t, h.Signals(SignalMessage), 3)
	assertInvariant(t, h.ctrl)
}

func TestScenarioBBackDiscardsLeftStep(t *testing.T) {
	a := action(
		[]wizard.Step{{ID: "item", Kind: wizard.KindItem}},
		wizard.Step{ID: "src", Kind: wizard.KindStorageContainer},
		wizard.Step{ID: "dst", Kind: wizard.KindPlacementContainer},
	)
	h := newHarness(t, a, nil)
	ctx := context.Background()

	_, err := h.ctrl.HandleScan(ctx, sku1)
	require.NoError(t, err)
	_, err = h.ctrl.HandleScan(ctx, "PAL-001")
	require.NoError(t, err)
	require.Equal(t, 2, h.ctrl.State().Index)

	// back from 2 keeps the value of step 1
	out, err := h.ctrl.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusBack, out.Status)
	st := h.ctrl.State()
	assert.Equal(t, 1, st.Index)
	require.NotNil(t, st.Values.Source)

	out, err = h.ctrl.Supply(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusBack, out.Status)

	st = h.ctrl.State()
	assert.Equal(t, 0, st.Index)
	assert.Nil(t, st.Values.Source, "value recorded at index 1 must be discarded")
	require.True(t, st.Values.HasItem(), "value at index 0 must be preserved")
	assert.Equal(t, sku1, st.Values.Item.Item.Code)

	out, err = h.ctrl.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, out.Status)
	assert.Equal(t, 0, h.ctrl.State().Index)

	// the preserved value can be confirmed without a new scan
	out, err = h.ctrl.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusAdvanced, out.Status)
	assert.Equal(t, 1, out.Index)
	assertInvariant(t, h.ctrl)
}

func completeItemQuantity(t *testing.T, h *harness) {
	t.Helper()
	ctx := context.Background()
	_, err := h.ctrl.HandleScan(ctx, sku1)
	require.NoError(t, err)
	out, err := h.ctrl.Supply(ctx, 3.0)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, out.Status)
}

func TestScenarioCSubmitFailureAndRetry(t *testing.T) {
	h := newHarness(t, itemQuantity(), nil)
	ctx := context.Background()
	completeItemQuantity(t, h)

	h.sub.FailNext(wizard.NewError(wizard.ErrSubmissionFailed, "timeout", nil, nil).WithCode(500))

	out, err := h.ctrl.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitFailed, out.Status)
	assert.Equal(t, "timeout", out.Message)
	assert.True(t, wizard.HasCode(out.Err, wizard.ErrCodeSubmissionFailed))

	st := h.ctrl.State()
	assert.True(t, st.Completed)
	assert.False(t, st.Sending)
	assert.Equal(t, "timeout", st.LastError)
	assert.Equal(t, 500, st.LastStatus)
	assert.Equal(t, PhaseSubmitFailed, st.Phase)
	assert.Empty(t, h.cache.Recorded())

	out, err = h.ctrl.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, out.Status)

	calls := h.sub.Calls()
	require.Len(t, calls, 2, "retry must resubmit")
	assert.Equal(t, calls[0].Fact, calls[1].Fact, "retry must send the identical fact record")
	assert.Equal(t, "t-1", calls[1].TaskID)
	assert.Equal(t, "putaway", calls[1].Endpoint)
	assert.Equal(t, "a-1", calls[1].Fact.PlannedActionID)
	require.NotNil(t, calls[1].Fact.Item)
	assert.Equal(t, 3.0, calls[1].Fact.Item.Quantity)

	require.Len(t, h.cache.Recorded(), 1)
	require.Len(t, h.Signals(SignalCompleted), 1)
	assert.Equal(t, "a-1", h.Signals(SignalCompleted)[0].ActionID)
	assert.Equal(t, PhaseClosed, h.ctrl.State().Phase)

	_, err = h.ctrl.Retry(ctx)
	assert.True(t, wizard.HasCode(err, wizard.ErrCodeClosed))
}

func TestRetryAfterTwoFailuresKeepsFactID(t *testing.T) {
	h := newHarness(t, itemQuantity(), nil)
	ctx := context.Background()
	completeItemQuantity(t, h)

	h.sub.FailNext(assert.AnError, assert.AnError)
	_, err := h.ctrl.Submit(ctx)
	require.NoError(t, err)
	// Submit after a failure behaves as a retry
	_, err = h.ctrl.Submit(ctx)
	require.NoError(t, err)
	_, err = h.ctrl.Retry(ctx)
	require.NoError(t, err)

	calls := h.sub.Calls()
	require.Len(t, calls, 3)
	for _, c := range calls {
		assert.Equal(t, calls[0].Fact.ID, c.Fact.ID)
	}
}

func TestSubmitRequiresCompletion(t *testing.T) {
	h := newHarness(t, itemQuantity(), nil)
	_, err := h.ctrl.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, wizard.HasCode(err, wizard.ErrCodeNotCompleted))

	completeItemQuantity(t, h)
	_, err = h.ctrl.Retry(context.Background())
	assert.True(t, wizard.HasCode(err, wizard.ErrCodeNotCompleted))
	assert.Empty(t, h.sub.Calls())
}

func TestBackFromFailedSubmissionRebuildsFact(t *testing.T) {
	h := newHarness(t, itemQuantity(), nil)
	ctx := context.Background()
	completeItemQuantity(t, h)

	h.sub.FailNext(assert.AnError)
	_, err := h.ctrl.Submit(ctx)
	require.NoError(t, err)

	out, err := h.ctrl.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Index)
	assert.Equal(t, PhaseActive, h.ctrl.State().Phase)
	assert.Empty(t, h.ctrl.State().LastError)

	_, err = h.ctrl.Supply(ctx, 5)
	require.NoError(t, err)
	_, err = h.ctrl.Submit(ctx)
	require.NoError(t, err)

	calls := h.sub.Calls()
	require.Len(t, calls, 2)
	assert.NotEqual(t, calls[0].Fact.ID, calls[1].Fact.ID)
	assert.Equal(t, 5.0, calls[1].Fact.Item.Quantity)
}

func TestScenarioDCancelNeverPersists(t *testing.T) {
	cases := map[string]func(*testing.T, *harness){
		"first step": func(*testing.T, *harness) {},
		"second step": func(t *testing.T, h *harness) {
			_, err := h.ctrl.HandleScan(context.Background(), sku1)
			require.NoError(t, err)
		},
		"completed": completeItemQuantity,
		"submit failed": func(t *testing.T, h *harness) {
			completeItemQuantity(t, h)
			h.sub.FailNext(assert.AnError)
			_, err := h.ctrl.Submit(context.Background())
			require.NoError(t, err)
		},
	}
	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, itemQuantity(), nil)
			prepare(t, h)
			calls := len(h.sub.Calls())
			gets := h.cache.Gets()

			h.ctrl.Cancel()
			h.ctrl.Cancel()

			assert.Len(t, h.sub.Calls(), calls)
			assert.Equal(t, gets, h.cache.Gets())
			assert.Empty(t, h.cache.Recorded())
			assert.Equal(t, PhaseClosed, h.ctrl.State().Phase)
			assert.False(t, h.ctrl.State().Values.HasItem())

			_, err := h.ctrl.HandleScan(context.Background(), skuMilk)
			assert.True(t, wizard.HasCode(err, wizard.ErrCodeClosed))
			_, err = h.ctrl.Submit(context.Background())
			assert.True(t, wizard.HasCode(err, wizard.ErrCodeClosed))
			assertInvariant(t, h.ctrl)
		})
	}
}

func TestScenarioEDebounce(t *testing.T) {
	h := newHarness(t, itemQuantity(), nil, WithDebounce(time.Second))
	ctx := context.Background()

	out, err := h.ctrl.HandleScan(ctx, sku1)
	require.NoError(t, err)
	assert.Equal(t, StatusAdvanced, out.Status)

	h.clock.Add(300 * time.Millisecond)
	out, err = h.ctrl.HandleScan(ctx, sku1)
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, out.Status)

	assert.Equal(t, 1, h.fx.Items.Calls(), "duplicate scan must not reach the resolver")
	st := h.ctrl.State()
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, 0.0, st.Values.Quantity())

	_, err = h.ctrl.Back(ctx)
	require.NoError(t, err)
	h.clock.Add(2 * time.Second)
	out, err = h.ctrl.HandleScan(ctx, sku1)
	require.NoError(t, err)
	assert.Equal(t, StatusAdvanced, out.Status)
	assert.Equal(t, 2, h.fx.Items.Calls())
}

func TestFieldPreservingMerge(t *testing.T) {
	a := action(
		[]wizard.Step{
			{ID: "item", Kind: wizard.KindItem},
			{ID: "qty", Kind: wizard.KindQuantity},
			{ID: "exp", Kind: wizard.KindExpirationDate},
			{ID: "cond", Kind: wizard.KindCondition},
			{ID: "src", Kind: wizard.KindStorageContainer},
		},
		wizard.Step{ID: "dst", Kind: wizard.KindPlacementContainer},
	)
	h := newHarness(t, a, nil)
	ctx := context.Background()

	_, err := h.ctrl.HandleScan(ctx, skuMilk)
	require.NoError(t, err)
	_, err = h.ctrl.Supply(ctx, "4")
	require.NoError(t, err)

	// expiry tracked item refuses to move on without a date
	out, err := h.ctrl.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)

	_, err = h.ctrl.HandleScan(ctx, "31.12.2026")
	require.NoError(t, err)
	_, err = h.ctrl.HandleScan(ctx, "DMG")
	require.NoError(t, err)
	_, err = h.ctrl.HandleScan(ctx, "PAL-001")
	require.NoError(t, err)
	out, err = h.ctrl.HandleScan(ctx, "PAL-002")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, out.Status)

	v := h.ctrl.State().Values
	require.NotNil(t, v.Item)
	assert.Equal(t, 4.0, v.Item.Quantity)
	require.NotNil(t, v.Item.ExpirationDate)
	assert.Equal(t, 2026, v.Item.ExpirationDate.Year())
	require.NotNil(t, v.Item.Condition)
	assert.Equal(t, "DMG", v.Item.Condition.Code)
	assert.Equal(t, "PAL-001", v.Source.Code)
	assert.Equal(t, "PAL-002", v.Destination.Code)

	summary := h.ctrl.Summary()
	assert.Contains(t, summary, "Milk 1L x 4 [damaged] exp 2026-12-31")
	assert.Contains(t, summary, "source:      PAL-001")
}

func TestNotResolvedStaysOnStep(t *testing.T) {
	h := newHarness(t, itemQuantity(), nil)
	out, err := h.ctrl.HandleScan(context.Background(), "0000")
	require.NoError(t, err)
	assert.Equal(t, StatusNotResolved, out.Status)
	assert.Equal(t, "item 0000 not found", out.Message)
	assert.Equal(t, 0, h.ctrl.State().Index)
	assert.Equal(t, "0000", h.ctrl.State().LastScan)

	msgs := h.Signals(SignalMessage)
	require.Len(t, msgs, 1)
	assert.Equal(t, "item 0000 not found", msgs[0].Message)
}

func TestSearchAndSelect(t *testing.T) {
	h := newHarness(t, itemQuantity(), nil)
	ctx := context.Background()

	out, err := h.ctrl.Search(ctx, "milk")
	require.NoError(t, err)
	require.Equal(t, StatusCandidates, out.Status)
	require.Len(t, out.Candidates, 1)

	out, err = h.ctrl.Select(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)

	out, err = h.ctrl.Select(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusAdvanced, out.Status)
	assert.Equal(t, skuMilk, h.ctrl.State().Values.Item.Item.Code)

	out, err = h.ctrl.Search(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, StatusNotResolved, out.Status)
	assert.Contains(t, out.Message, "does not accept search")
}

func TestPerformSideEffects(t *testing.T) {
	a := action(nil,
		wizard.Step{ID: "new", Kind: wizard.KindCreateContainer},
		wizard.Step{ID: "label", Kind: wizard.KindPrintLabel, Target: wizard.GroupDestination},
		wizard.Step{ID: "close", Kind: wizard.KindCloseContainer},
	)
	h := newHarness(t, a, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		out, err := h.ctrl.Perform(ctx)
		require.NoError(t, err)
		require.True(t, out.Moved(), "step %d: %s", i, out.Message)
	}
	st := h.ctrl.State()
	assert.True(t, st.Completed)
	require.NotNil(t, st.Values.Destination)
	assert.Equal(t, "NEW-001", st.Values.Destination.Code)
	assert.True(t, st.Values.Destination.Closed)
	assert.Equal(t, []string{"NEW-001"}, h.fx.Printer.Printed())
	assert.Equal(t, []string{"NEW-001"}, h.fx.Services.Closed())
}

func TestEmptyTemplateCompletesImmediately(t *testing.T) {
	h := newHarness(t, action(nil), nil)
	st := h.ctrl.State()
	assert.True(t, st.Completed)
	assert.Equal(t, PhaseCompleted, st.Phase)

	out, err := h.ctrl.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, out.Status)
	require.Len(t, h.cache.Recorded(), 1)
}

func TestInitializeNotFoundAborts(t *testing.T) {
	var got []Signal
	cache := wizardtest.NewTaskCache()
	reg := resolver.NewDefaultRegistry(wizardtest.NewFixture().Directory())

	ctrl, err := Initialize(context.Background(), cache, &wizardtest.Submitter{}, reg, "t-x", "a-x",
		WithLogger(wizard.NopLogger{}),
		WithSignalHandler(func(s Signal) { got = append(got, s) }))
	require.Error(t, err)
	assert.Nil(t, ctrl)
	assert.True(t, wizard.IsNotFound(err))
	require.Len(t, got, 1)
	assert.Equal(t, SignalAbort, got[0].Kind)
	assert.Equal(t, "a-x", got[0].ActionID)
}

func TestInitializeRejectsUnknownKinds(t *testing.T) {
	a := action([]wizard.Step{{ID: "weird", Kind: "weigh"}})
	_, err := Initialize(context.Background(), wizardtest.NewTaskCache(a), &wizardtest.Submitter{},
		resolver.NewDefaultRegistry(wizard.Directory{}), a.TaskID, a.ID, WithLogger(wizard.NopLogger{}))
	require.Error(t, err)
	assert.True(t, wizard.HasCode(err, wizard.ErrCodeUnsupported))
}

func blockingItems(item wizard.Item) (wizard.Lookup[wizard.Item], chan struct{}, chan struct{}) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	return wizard.LookupFuncs[wizard.Item]{
		ByCodeFunc: func(ctx context.Context, code string) (wizard.Item, error) {
			started <- struct{}{}
			<-release
			return item, nil
		},
	}, started, release
}

func TestLateScanResultAfterCancelIsDropped(t *testing.T) {
	items, started, release := blockingItems(wizard.Item{ID: "i-1", Code: sku1})
	fx := wizardtest.NewFixture()
	dir := fx.Directory()
	dir.Items = items
	h := newHarness(t, itemQuantity(), &dir)
	ctx := context.Background()

	fut := h.ctrl.HandleScanAsync(ctx, sku1)
	<-started

	out, err := h.ctrl.HandleScan(ctx, skuMilk)
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, out.Status, "second lookup must not start while one is outstanding")

	h.ctrl.Cancel()
	close(release)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	out, err = fut.Await(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, StatusStale, out.Status)

	st := h.ctrl.State()
	assert.False(t, st.Values.HasItem())
	assert.Equal(t, 0, st.Index)
	assert.Empty(t, h.Signals(SignalMessage))
}

func TestLateScanResultAfterBackIsDropped(t *testing.T) {
	items, started, release := blockingItems(wizard.Item{ID: "i-2", Code: skuMilk})
	fx := wizardtest.NewFixture()
	dir := fx.Directory()
	dir.Items = items
	a := action([]wizard.Step{
		{ID: "cond", Kind: wizard.KindCondition},
		{ID: "item", Kind: wizard.KindItem},
	})
	h := newHarness(t, a, &dir)
	ctx := context.Background()

	_, err := h.ctrl.HandleScan(ctx, "NEW")
	require.NoError(t, err)

	fut := h.ctrl.HandleScanAsync(ctx, skuMilk)
	<-started
	_, err = h.ctrl.Back(ctx)
	require.NoError(t, err)
	close(release)

	out, err := fut.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusStale, out.Status)
	assert.Equal(t, 0, h.ctrl.State().Index)
	assert.False(t, h.ctrl.State().Values.HasItem())
}

func TestCancelDuringSubmissionSkipsTaskCache(t *testing.T) {
	h := newHarness(t, itemQuantity(), nil)
	completeItemQuantity(t, h)
	h.sub.Block = make(chan struct{})
	h.sub.Called = make(chan struct{}, 1)

	fut := h.ctrl.SubmitAsync(context.Background())
	<-h.sub.Called
	assert.True(t, h.ctrl.State().Sending)

	h.ctrl.Cancel()
	out, err := fut.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusStale, out.Status)
	assert.Empty(t, h.cache.Recorded())
	assert.Empty(t, h.Signals(SignalCompleted))
}

func TestInvariantHoldsAcrossOperations(t *testing.T) {
	h := newHarness(t, itemQuantity(), nil, WithDebounce(0))
	ctx := context.Background()
	ops := []func() (Outcome, error){
		func() (Outcome, error) { return h.ctrl.Back(ctx) },
		func() (Outcome, error) { return h.ctrl.Advance(ctx) },
		func() (Outcome, error) { return h.ctrl.HandleScan(ctx, sku1) },
		func() (Outcome, error) { return h.ctrl.HandleScan(ctx, "0") },
		func() (Outcome, error) { return h.ctrl.Supply(ctx, 2) },
		func() (Outcome, error) { return h.ctrl.Back(ctx) },
		func() (Outcome, error) { return h.ctrl.Advance(ctx) },
		func() (Outcome, error) { return h.ctrl.Back(ctx) },
		func() (Outcome, error) { return h.ctrl.Back(ctx) },
		func() (Outcome, error) { return h.ctrl.Advance(ctx) },
		func() (Outcome, error) { return h.ctrl.Supply(ctx, 1) },
	}
	for i, op := range ops {
		if _, err := op(); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		assertInvariant(t, h.ctrl)
	}
	assert.True(t, h.ctrl.State().Completed)
}

func itemExpiration() wizard.PlannedAction {
	return action([]wizard.Step{
		{ID: "item", Kind: wizard.KindItem, Prompt: "Item"},
		{ID: "exp", Kind: wizard.KindExpirationDate, Prompt: "Expiry"},
	})
}

func TestAdvancePassesExpirationForUntrackedItem(t *testing.T) {
	h := newHarness(t, itemExpiration(), nil)
	ctx := context.Background()

	out, err := h.ctrl.HandleScan(ctx, sku1)
	require.NoError(t, err)
	require.Equal(t, StatusAdvanced, out.Status)

	out, err = h.ctrl.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)

	st := h.ctrl.State()
	require.NotNil(t, st.Values.Item)
	assert.Nil(t, st.Values.Item.ExpirationDate)
	assertInvariant(t, h.ctrl)

	out, err = h.ctrl.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, out.Status)
	calls := h.sub.Calls()
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].Fact.Item.ExpirationDate)
}

func TestAdvanceRequiresExpirationForTrackedItem(t *testing.T) {
	h := newHarness(t, itemExpiration(), nil)
	ctx := context.Background()

	_, err := h.ctrl.HandleScan(ctx, skuMilk)
	require.NoError(t, err)

	out, err := h.ctrl.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, 1, h.ctrl.State().Index)
}

func TestAdvanceWithoutValueDoesNotSkipItem(t *testing.T) {
	h := newHarness(t, itemQuantity(), nil)

	out, err := h.ctrl.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, 0, h.ctrl.State().Index)
}

func TestNonFiniteQuantityIsRejected(t *testing.T) {
	h := newHarness(t, itemQuantity(), nil)
	ctx := context.Background()

	_, err := h.ctrl.HandleScan(ctx, sku1)
	require.NoError(t, err)

	for _, in := range []string{"Inf", "NaN", "1e400"} {
		out, err := h.ctrl.Supply(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, out.Status, in)
	}
	out, err := h.ctrl.HandleScan(ctx, "-Inf")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)

	st := h.ctrl.State()
	assert.Equal(t, 1, st.Index)
	assert.False(t, st.Completed)
	assert.Equal(t, 0.0, st.Values.Quantity())
}

// unstampedCache returns actions the way a cache that never fills TaskID would.
type unstampedCache struct {
	*wizardtest.TaskCache
}

func (c unstampedCache) GetPlannedAction(ctx context.Context, taskID, actionID string) (wizard.PlannedAction, error) {
	a, err := c.TaskCache.GetPlannedAction(ctx, taskID, actionID)
	a.TaskID = ""
	return a, err
}

func TestFactUsesSessionTaskID(t *testing.T) {
	a := itemQuantity()
	cache := unstampedCache{wizardtest.NewTaskCache(a)}
	sub := &wizardtest.Submitter{}
	ctrl, err := Initialize(context.Background(), cache, sub,
		resolver.NewDefaultRegistry(wizardtest.NewFixture().Directory()), a.TaskID, a.ID, WithLogger(wizard.NopLogger{}))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = ctrl.HandleScan(ctx, sku1)
	require.NoError(t, err)
	out, err := ctrl.Supply(ctx, 2.0)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, out.Status)

	out, err = ctrl.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, out.Status)
	calls := sub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "t-1", calls[0].Fact.TaskID)
	assert.Equal(t, "a-1", calls[0].Fact.PlannedActionID)
}

func TestDroppedScanDoesNotDebounceRescan(t *testing.T) {
	a := action([]wizard.Step{
		{ID: "box", Kind: wizard.KindCreateContainer},
		{ID: "item", Kind: wizard.KindItem},
	})
	h := newHarness(t, a, nil, WithDebounce(time.Second))
	ctx := context.Background()

	out, err := h.ctrl.HandleScan(ctx, sku1)
	require.NoError(t, err)
	assert.Equal(t, StatusNotResolved, out.Status, "create container takes no scan")

	out, err = h.ctrl.Perform(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusAdvanced, out.Status)

	h.clock.Add(100 * time.Millisecond)
	out, err = h.ctrl.HandleScan(ctx, sku1)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, 1, h.fx.Items.Calls())
}
