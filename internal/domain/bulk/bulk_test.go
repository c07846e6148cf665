package bulk_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/athebyme/gomarket-seeder/internal/domain/bulk"
	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
	"github.com/athebyme/gomarket-seeder/internal/domain/remote"
	"github.com/athebyme/gomarket-seeder/internal/domain/remote/remotetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

type eventLog struct {
	mu     sync.Mutex
	events []bulk.Event
}

func (l *eventLog) OnJobEvent(ev bulk.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) ofType(t bulk.EventType) []bulk.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []bulk.Event
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func fastScheduler(opts ...bulk.Option) *bulk.Scheduler {
	cfg := bulk.DefaultSchedulerConfig()
	cfg.MinTime = 0
	return bulk.NewScheduler(cfg, opts...)
}

func makeRecords(prefix string, n int) []*marketplace.Record {
	out := make([]*marketplace.Record, n)
	for i := range n {
		out[i] = marketplace.NewRecord().SetString("ID", fmt.Sprintf("%s%d", prefix, i))
	}
	return out
}

func TestRunMany_PreservesInputOrder(t *testing.T) {
	s := fastScheduler(bulk.WithSleep((&sleepRecorder{}).sleep))
	items := make([]int, 40)
	for i := range items {
		items[i] = i
	}

	results, err := bulk.RunMany(context.Background(), s, bulk.GroupMeta{Action: bulk.ActionCreate, Resource: "Things"}, items,
		func(ctx context.Context, item int) (string, error) {
			time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
			return fmt.Sprintf("r%d", item), nil
		})

	require.NoError(t, err)
	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("r%d", i), r)
	}
}

func TestRunMany_NilItems(t *testing.T) {
	events := &eventLog{}
	s := fastScheduler(bulk.WithObserver(events))

	results, err := bulk.RunMany(context.Background(), s, bulk.GroupMeta{Action: bulk.ActionList}, []int(nil),
		func(ctx context.Context, item int) (int, error) {
			t.Fatal("must not be called")
			return 0, nil
		})

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Empty(t, events.ofType(bulk.EventStarted))
}

func TestRunMany_RespectsConcurrencyLimit(t *testing.T) {
	cfg := bulk.DefaultSchedulerConfig()
	cfg.MinTime = 0
	cfg.MaxConcurrent = 3
	s := bulk.NewScheduler(cfg)

	var mu sync.Mutex
	inFlight, peak := 0, 0
	_, err := bulk.RunMany(context.Background(), s, bulk.GroupMeta{}, make([]int, 20),
		func(ctx context.Context, _ int) (struct{}, error) {
			mu.Lock()
			inFlight++
			peak = max(peak, inFlight)
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
			return struct{}{}, nil
		})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak, 3)
}

func TestSchedule_RetriesThenSucceeds(t *testing.T) {
	sleeps := &sleepRecorder{}
	events := &eventLog{}
	s := fastScheduler(bulk.WithSleep(sleeps.sleep), bulk.WithObserver(events))

	calls := 0
	got, err := bulk.Schedule(context.Background(), s, bulk.JobMeta{Total: 1}, func(ctx context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", errors.New("temporary")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, sleeps.recorded())
	assert.Len(t, events.ofType(bulk.EventRetrying), 2)
	assert.Len(t, events.ofType(bulk.EventCompleted), 1)
}

func TestSchedule_ExhaustedRetriesAreFatal(t *testing.T) {
	sleeps := &sleepRecorder{}
	events := &eventLog{}
	s := fastScheduler(bulk.WithSleep(sleeps.sleep), bulk.WithObserver(events))

	apiErr := &remote.APIError{Method: "POST", URL: "/v1/buyers", Status: 400,
		Errors: []remote.ErrorDetail{{ErrorCode: "IdExists", Message: "exists"}}}
	calls := 0
	_, err := bulk.Schedule(context.Background(), s, bulk.JobMeta{Total: 1}, func(ctx context.Context) (int, error) {
		calls++
		return 0, apiErr
	})

	require.Error(t, err)
	assert.True(t, bulk.IsFatal(err))
	var fatal *bulk.FatalJobError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 4, fatal.Attempts)
	var gotAPI *remote.APIError
	assert.ErrorAs(t, err, &gotAPI)
	assert.Equal(t, 4, calls)
	assert.Equal(t, bulk.DefaultRetrySchedule, sleeps.recorded())
	assert.Len(t, events.ofType(bulk.EventFailed), 1)
}

func TestSchedule_CanceledContextIsNotRetried(t *testing.T) {
	sleeps := &sleepRecorder{}
	s := fastScheduler(bulk.WithSleep(sleeps.sleep))
	ctx, cancel := context.WithCancel(context.Background())

	_, err := bulk.Schedule(ctx, s, bulk.JobMeta{}, func(ctx context.Context) (int, error) {
		cancel()
		return 0, errors.New("aborted")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, bulk.IsFatal(err))
	assert.Empty(t, sleeps.recorded())
}

func TestRunMany_FatalErrorAbortsBatch(t *testing.T) {
	s := fastScheduler(bulk.WithSleep((&sleepRecorder{}).sleep))

	_, err := bulk.RunMany(context.Background(), s, bulk.GroupMeta{Action: bulk.ActionCreate, Resource: "Things"}, []int{0, 1, 2},
		func(ctx context.Context, item int) (int, error) {
			if item == 1 {
				return 0, errors.New("rejected")
			}
			return item, nil
		})

	require.Error(t, err)
	assert.True(t, bulk.IsFatal(err))
}

func TestEngine_ListAllPaginates(t *testing.T) {
	dir := directory.Static()
	client := remotetest.New()
	client.Seed(directory.Buyers, nil, makeRecords("b", 250)...)
	engine := bulk.NewEngine(client, fastScheduler())

	got, err := engine.ListAll(context.Background(), dir.MustGet(directory.Buyers))

	require.NoError(t, err)
	require.Len(t, got, 250)
	for i, r := range got {
		assert.Equal(t, fmt.Sprintf("b%d", i), r.ID())
	}

	calls := client.CallsOf("List")
	require.Len(t, calls, 3)
	pages := map[int]int{}
	for _, c := range calls {
		pages[c.Page]++
	}
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1}, pages)
	assert.Equal(t, 1, calls[0].Page, "first page is fetched before the rest")
}

func TestEngine_ListAllSinglePage(t *testing.T) {
	dir := directory.Static()
	client := remotetest.New()
	client.Seed(directory.Users, []string{"b1"}, makeRecords("u", 3)...)
	engine := bulk.NewEngine(client, fastScheduler())

	got, err := engine.ListAll(context.Background(), dir.MustGet(directory.Users), "b1")

	require.NoError(t, err)
	assert.Len(t, got, 3)
	calls := client.CallsOf("List")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"b1"}, calls[0].RouteParams)
}

func TestEngine_ListAllCategoriesUseFullDepth(t *testing.T) {
	dir := directory.Static()
	client := remotetest.New()
	engine := bulk.NewEngine(client, fastScheduler())

	_, err := engine.ListAll(context.Background(), dir.MustGet(directory.Categories), "cat1")
	require.NoError(t, err)
	_, err = engine.ListAll(context.Background(), dir.MustGet(directory.Buyers))
	require.NoError(t, err)

	calls := client.CallsOf("List")
	require.Len(t, calls, 2)
	assert.Equal(t, "all", calls[0].Depth)
	assert.Empty(t, calls[1].Depth)
}

func TestEngine_ListAllFailureIsFatal(t *testing.T) {
	dir := directory.Static()
	client := remotetest.New()
	client.Seed(directory.Buyers, nil, makeRecords("b", 150)...)
	client.FailList = func(resource string, page int) error {
		if page == 2 {
			return errors.New("boom")
		}
		return nil
	}
	engine := bulk.NewEngine(client, fastScheduler(bulk.WithSleep((&sleepRecorder{}).sleep)))

	_, err := engine.ListAll(context.Background(), dir.MustGet(directory.Buyers))
	assert.True(t, bulk.IsFatal(err))
}

func TestEngine_CreateAllPreservesOrder(t *testing.T) {
	dir := directory.Static()
	client := remotetest.New()
	engine := bulk.NewEngine(client, fastScheduler())
	addresses := makeRecords("a", 12)
	for _, a := range addresses {
		a.SetString("BuyerID", "b1")
	}

	created, err := engine.CreateAll(context.Background(), dir.MustGet(directory.Addresses), addresses)

	require.NoError(t, err)
	require.Len(t, created, len(addresses))
	for i := range addresses {
		assert.Equal(t, addresses[i].ID(), created[i].ID())
	}
	for _, c := range client.CallsOf("Create") {
		assert.Equal(t, []string{"b1"}, c.RouteParams)
	}
}

func TestProgressReporter_MonotonicAndReset(t *testing.T) {
	var lines []bulk.ProgressLine
	p := bulk.NewProgressReporter(func(l bulk.ProgressLine) { lines = append(lines, l) })
	users := bulk.GroupMeta{Action: bulk.ActionList, Resource: directory.Users, ParentID: "b1", ParentResource: directory.Buyers}
	done := func(meta bulk.GroupMeta, index, total int) {
		p.OnJobEvent(bulk.Event{Type: bulk.EventCompleted, Job: bulk.JobMeta{GroupMeta: meta, Index: index, Total: total}})
	}

	done(users, 1, 4)
	done(users, 0, 4) // меньше уже показанного
	done(users, 3, 4)
	p.OnJobEvent(bulk.Event{Type: bulk.EventStarted, Job: bulk.JobMeta{GroupMeta: users, Index: 2, Total: 4}})
	other := users
	other.ParentID = "b2"
	done(other, 0, 2)

	require.Len(t, lines, 3)
	assert.Equal(t, 50, lines[0].Percent)
	assert.True(t, lines[0].Reset)
	assert.Equal(t, `LIST Users under Buyer with ID "b1": 50%`, lines[0].Message)
	assert.Equal(t, 100, lines[1].Percent)
	assert.False(t, lines[1].Reset)
	assert.Equal(t, 50, lines[2].Percent)
	assert.True(t, lines[2].Reset)
}

func TestEngine_ListAllProgressCountsPages(t *testing.T) {
	dir := directory.Static()
	client := remotetest.New()
	client.Seed(directory.Buyers, nil, makeRecords("b", 5)...)

	var lines []bulk.ProgressLine
	reporter := bulk.NewProgressReporter(func(l bulk.ProgressLine) { lines = append(lines, l) })
	cfg := bulk.DefaultSchedulerConfig()
	cfg.MinTime = 0
	cfg.MaxConcurrent = 1
	engine := bulk.NewEngine(client, bulk.NewScheduler(cfg, bulk.WithObserver(reporter))).WithPageSize(1)

	got, err := engine.ListAll(context.Background(), dir.MustGet(directory.Buyers))

	require.NoError(t, err)
	require.Len(t, got, 5)
	percents := make([]int, 0, len(lines))
	for _, l := range lines {
		percents = append(percents, l.Percent)
	}
	assert.Equal(t, []int{20, 40, 60, 80, 100}, percents)
	assert.True(t, lines[0].Reset)
	assert.Equal(t, "LIST Buyers: 20%", lines[0].Message)
}

func TestJobMeta_Describe(t *testing.T) {
	meta := bulk.JobMeta{GroupMeta: bulk.GroupMeta{Action: bulk.ActionCreate, Resource: directory.Buyers}, Index: 4, Total: 10}
	assert.Equal(t, "CREATE Buyers (5/10)", meta.String())
	assert.InDelta(t, 0.5, meta.Progress(), 1e-9)
}
