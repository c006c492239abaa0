package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/sifter/internal/core/domain"
	"github.com/vietddude/sifter/internal/infra/store"
)

type fakeFetcher struct {
	pages map[int][]string
	errs  map[int]error
	calls []int
}

func (f *fakeFetcher) FetchPage(ctx context.Context, page int) ([]string, error) {
	f.calls = append(f.calls, page)
	if err := f.errs[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

func newTestCollector(t *testing.T, cfg Config, fetcher *fakeFetcher) (*Collector, store.Store) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return New(cfg, fetcher, st), st
}

func TestCollectDeduplicatesAcrossPages(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int][]string{
		1: {"a", "b", "c"},
		2: {"b", "c", "d"},
		3: {"d", "e"},
	}}
	c, _ := newTestCollector(t, Config{PageFrom: 1, PageTo: 3}, fetcher)

	items, err := c.Collect(context.Background(), "run1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "b", "c", "d", "e"}
	if len(items) != len(want) {
		t.Fatalf("expected %v, got %v", want, items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, items)
		}
	}
}

func TestCollectSkipsFailedPage(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int][]string{
			1: {"a"},
			3: {"b"},
		},
		errs: map[int]error{2: errors.New("listing timed out")},
	}
	c, _ := newTestCollector(t, Config{PageFrom: 1, PageTo: 3}, fetcher)

	items, err := c.Collect(context.Background(), "run1")
	if err != nil {
		t.Fatalf("a single page failure must not abort collection: %v", err)
	}
	if len(items) != 2 || items[0] != "a" || items[1] != "b" {
		t.Errorf("expected [a b], got %v", items)
	}
	if len(fetcher.calls) != 3 {
		t.Errorf("expected all 3 pages attempted, got %v", fetcher.calls)
	}
}

func TestCollectStopsOnEmptyPage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int][]string{
		1: {"a"},
		2: {},
		3: {"never fetched"},
	}}
	c, _ := newTestCollector(t, Config{PageFrom: 1, PageTo: 10}, fetcher)

	items, err := c.Collect(context.Background(), "run1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0] != "a" {
		t.Errorf("expected [a], got %v", items)
	}
	if len(fetcher.calls) != 2 {
		t.Errorf("pagination must stop at the empty page, got calls %v", fetcher.calls)
	}
}

func TestCollectWritesQueueCheckpoint(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int][]string{
		1: {"a"}, 2: {"b"}, 3: {"c"},
	}}
	c, st := newTestCollector(t, Config{PageFrom: 1, PageTo: 3, CheckpointEvery: 2}, fetcher)

	if _, err := c.Collect(context.Background(), "run1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var snapshot domain.WorkList
	if err := st.ReadJSON(domain.QueueCheckpointName("run1"), &snapshot); err != nil {
		t.Fatalf("queue checkpoint missing: %v", err)
	}
	if snapshot.RunID != "run1" || len(snapshot.Items) != 3 {
		t.Errorf("unexpected checkpoint contents: %+v", snapshot)
	}
}

func TestCollectRespectsContext(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int][]string{1: {"a"}}}
	c, _ := newTestCollector(t, Config{PageFrom: 1, PageTo: 5}, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Collect(ctx, "run1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
