package selection

import (
	"fmt"
	"reflect"
	"testing"
)

// makePage returns size ids for a page, numbered in catalog order.
func makePage(page, size int) []string {
	ids := make([]string, size)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d-r%02d", page, i)
	}
	return ids
}

func TestBulkFill_Request_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		count int
		start int
	}{
		{"negative count", -5, 1},
		{"zero page", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBulkFill(NewStore())
			b.Request(3, 2)

			if b.Request(tt.count, tt.start) {
				t.Error("Request() = true, want false")
			}
			if got := b.Quota(); got != (Quota{Remaining: 3, ResumePage: 2}) {
				t.Errorf("quota changed by invalid request: %+v", got)
			}
		})
	}
}

func TestBulkFill_Request_ZeroClears(t *testing.T) {
	store := NewStore()
	b := NewBulkFill(store, WithTotalPages(4))

	b.Request(20, 1)
	b.OnPageAvailable(1, makePage(1, 12), 4)

	if b.Request(0, 3) {
		t.Error("Request(0) = true, want false")
	}
	if got := b.Quota(); got != (Quota{}) {
		t.Errorf("quota after zero request = %+v, want empty", got)
	}

	if b.OnPageAvailable(2, makePage(2, 12), 4) {
		t.Error("page 2 reported outstanding work after a zero request")
	}
	if got := store.Count(); got != 12 {
		t.Errorf("selected = %d, want 12", got)
	}
}

func TestBulkFill_Resumability(t *testing.T) {
	store := NewStore()
	b := NewBulkFill(store, WithTotalPages(10))

	b.Request(25, 1)

	steps := []struct {
		page        int
		want        Quota
		outstanding bool
	}{
		{1, Quota{Remaining: 13, ResumePage: 2}, true},
		{2, Quota{Remaining: 1, ResumePage: 3}, true},
		{3, Quota{Remaining: 0, ResumePage: 4}, false},
	}

	for _, step := range steps {
		got := b.OnPageAvailable(step.page, makePage(step.page, 12), 10)
		if got != step.outstanding {
			t.Errorf("page %d: outstanding = %v, want %v", step.page, got, step.outstanding)
		}
		if q := b.Quota(); q != step.want {
			t.Errorf("page %d: quota = %+v, want %+v", step.page, q, step.want)
		}
	}

	if got := store.Count(); got != 25 {
		t.Errorf("selected = %d, want 25", got)
	}
	if got := store.SelectedIDs(3); !reflect.DeepEqual(got, []string{"p3-r00"}) {
		t.Errorf("page 3 selection = %v, want only the first record", got)
	}
}

func TestBulkFill_ExactCount(t *testing.T) {
	sizes := []int{12, 12, 7}
	total := 31

	for _, n := range []int{1, 12, 13, 24, 30, 31, 32, 500} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			store := NewStore()
			b := NewBulkFill(store, WithTotalPages(len(sizes)))
			b.Request(n, 1)

			var catalog []string
			for i, size := range sizes {
				ids := makePage(i+1, size)
				catalog = append(catalog, ids...)
				b.OnPageAvailable(i+1, ids, len(sizes))
			}

			want := n
			if want > total {
				want = total
			}
			if got := store.Count(); got != want {
				t.Fatalf("selected = %d, want %d", got, want)
			}
			for i, id := range catalog {
				page := pageOf(id)
				if got := store.IsSelected(page, id); got != (i < want) {
					t.Errorf("record %d (%s) selected = %v, want %v", i, id, got, i < want)
				}
			}
			if b.Outstanding() {
				t.Error("quota still outstanding after last page")
			}
		})
	}
}

func pageOf(id string) int {
	var page, rec int
	fmt.Sscanf(id, "p%d-r%d", &page, &rec)
	return page
}

func TestBulkFill_StalePageRejected(t *testing.T) {
	store := NewStore()
	b := NewBulkFill(store, WithTotalPages(5))
	b.Request(30, 1)
	b.OnPageAvailable(1, makePage(1, 12), 5)
	b.OnPageAvailable(2, makePage(2, 12), 5)

	before := b.Quota()
	if before.ResumePage != 3 {
		t.Fatalf("ResumePage = %d, want 3", before.ResumePage)
	}
	count := store.Count()

	store.Toggle(2, "p2-r05", false)
	count--

	if !b.OnPageAvailable(2, makePage(2, 12), 5) {
		t.Error("stale page reported quota as settled")
	}
	if got := b.Quota(); got != before {
		t.Errorf("quota = %+v, want unchanged %+v", got, before)
	}
	if got := store.Count(); got != count {
		t.Errorf("selected = %d, want unchanged %d", got, count)
	}
	if store.IsSelected(2, "p2-r05") {
		t.Error("stale re-delivery overwrote a manual deselection")
	}
}

func TestBulkFill_OutOfOrderThenResume(t *testing.T) {
	store := NewStore()
	b := NewBulkFill(store, WithTotalPages(5))
	b.Request(20, 1)
	b.OnPageAvailable(1, makePage(1, 12), 5)

	// user wanders to page 4, walk stays dormant
	b.OnPageAvailable(4, makePage(4, 12), 5)
	if len(store.SelectedIDs(4)) != 0 {
		t.Fatal("dormant quota selected on an unrelated page")
	}

	// back on the resume page, walk continues
	if b.OnPageAvailable(2, makePage(2, 12), 5) {
		t.Error("quota outstanding after it was satisfied")
	}
	if got := store.Count(); got != 20 {
		t.Errorf("selected = %d, want 20", got)
	}
}

func TestBulkFill_ExhaustionTruncation(t *testing.T) {
	t.Run("start past last page", func(t *testing.T) {
		store := NewStore()
		b := NewBulkFill(store, WithTotalPages(3))

		if b.Request(1000, 4) {
			t.Error("Request() = true for a page past the end")
		}
		if b.Outstanding() {
			t.Error("Outstanding() = true, want false")
		}
		if got := b.Quota(); got.Remaining != 0 {
			t.Errorf("Remaining = %d, want 0", got.Remaining)
		}
		if store.Count() != 0 {
			t.Error("selections made for an exhausted quota")
		}
	})

	t.Run("runs out mid walk", func(t *testing.T) {
		store := NewStore()
		b := NewBulkFill(store, WithTotalPages(2))
		b.Request(30, 1)

		b.OnPageAvailable(1, makePage(1, 12), 2)
		if b.OnPageAvailable(2, makePage(2, 12), 2) {
			t.Error("quota outstanding past the last page")
		}
		if got := b.Quota(); got.Remaining != 0 {
			t.Errorf("Remaining = %d, want 0", got.Remaining)
		}
		if got := store.Count(); got != 24 {
			t.Errorf("selected = %d, want 24", got)
		}
	})
}

func TestBulkFill_IdempotentRedelivery(t *testing.T) {
	store := NewStore()
	b := NewBulkFill(store, WithTotalPages(4))
	b.Request(15, 1)

	page1 := makePage(1, 12)
	b.OnPageAvailable(1, page1, 4)
	first := snapshot(store)
	quota := b.Quota()

	b.OnPageAvailable(1, page1, 4)
	b.OnPageAvailable(1, page1, 4)

	if got := snapshot(store); !reflect.DeepEqual(got, first) {
		t.Errorf("selection changed on re-delivery: %v vs %v", got, first)
	}
	if got := b.Quota(); got != quota {
		t.Errorf("quota = %+v, want %+v", got, quota)
	}
}

func snapshot(s *Store) map[int][]string {
	out := make(map[int][]string)
	for _, p := range s.Pages() {
		out[p] = s.SelectedIDs(p)
	}
	return out
}

func TestBulkFill_PreservesManualSelectionsBeyondPrefix(t *testing.T) {
	store := NewStore()
	b := NewBulkFill(store, WithTotalPages(3))
	store.Toggle(1, "p1-r10", true)

	b.Request(3, 1)
	b.OnPageAvailable(1, makePage(1, 12), 3)

	want := []string{"p1-r00", "p1-r01", "p1-r02", "p1-r10"}
	if got := store.SelectedIDs(1); !reflect.DeepEqual(got, want) {
		t.Errorf("SelectedIDs(1) = %v, want %v", got, want)
	}
}

func TestBulkFill_NewRequestReplaces(t *testing.T) {
	b := NewBulkFill(NewStore(), WithTotalPages(9))
	b.Request(40, 1)
	b.OnPageAvailable(1, makePage(1, 12), 9)

	b.Request(5, 7)

	if got := b.Quota(); got != (Quota{Remaining: 5, ResumePage: 7}) {
		t.Errorf("quota = %+v, want {5 7}", got)
	}
	b.OnPageAvailable(2, makePage(2, 12), 9)
	if b.Quota().Remaining != 5 {
		t.Error("replaced quota still consumed its old resume page")
	}
}

func TestBulkFill_PageLocal(t *testing.T) {
	store := NewStore()
	b := NewBulkFill(store, WithTotalPages(5), WithPageLocal())
	b.Request(30, 2)

	if b.OnPageAvailable(2, makePage(2, 12), 5) {
		t.Error("page-local quota carried over")
	}
	if got := store.Count(); got != 12 {
		t.Errorf("selected = %d, want 12", got)
	}
	b.OnPageAvailable(3, makePage(3, 12), 5)
	if got := store.Count(); got != 12 {
		t.Errorf("page-local quota touched page 3: %d selected", got)
	}
}

func TestBulkFill_UnknownTotalPages(t *testing.T) {
	b := NewBulkFill(NewStore())
	b.Request(20, 1)

	if !b.OnPageAvailable(1, makePage(1, 12), 0) {
		t.Error("quota should stay outstanding while total is unknown")
	}

	b.SetTotalPages(1)
	if b.Outstanding() {
		t.Error("quota outstanding after total shrank below resume page")
	}
}
