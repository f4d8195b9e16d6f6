package sim

import (
	"sort"
	"testing"
)

func ids(cs []*Container) []uint64 {
	out := make([]uint64, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestPendingQueue_Peek_NonEmpty_ReturnsFront(t *testing.T) {
	// GIVEN a queue with containers [1, 2]
	pq := &PendingQueue{}
	a := &Container{ID: 1}
	b := &Container{ID: 2}
	pq.Enqueue(a)
	pq.Enqueue(b)

	// WHEN Peek() is called
	got := pq.Peek()

	// THEN it returns the front element without removing it
	if got != a {
		t.Errorf("Peek: got %v, want %v", got, a)
	}
	if pq.Len() != 2 {
		t.Errorf("Peek modified queue length: got %d, want 2", pq.Len())
	}
}

func TestPendingQueue_Peek_Empty_ReturnsNil(t *testing.T) {
	// GIVEN an empty queue
	pq := &PendingQueue{}

	// WHEN Peek() is called
	// THEN it returns nil
	if got := pq.Peek(); got != nil {
		t.Errorf("Peek on empty queue: got %v, want nil", got)
	}
}

func TestPendingQueue_Remove_MiddleElement_KeepsOrder(t *testing.T) {
	// GIVEN a queue [1, 2, 3]
	pq := &PendingQueue{}
	cs := []*Container{{ID: 1}, {ID: 2}, {ID: 3}}
	for _, c := range cs {
		pq.Enqueue(c)
	}

	// WHEN the middle container is removed twice
	first := pq.Remove(cs[1])
	second := pq.Remove(cs[1])

	// THEN only the first call finds it and the rest keeps its order
	if !first || second {
		t.Errorf("Remove results: got (%v, %v), want (true, false)", first, second)
	}
	got := ids(pq.Items())
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("after Remove: got %v, want [1 3]", got)
	}
	if pq.Contains(cs[1]) {
		t.Error("Contains reports a removed container")
	}
}

func TestPendingQueue_Reorder_SortsInPlace(t *testing.T) {
	// GIVEN a queue with due times [30, 10, 20]
	pq := &PendingQueue{}
	for i, due := range []int64{30, 10, 20} {
		pq.Enqueue(&Container{ID: uint64(i + 1), Due: due})
	}

	// WHEN Reorder sorts by due time
	pq.Reorder(func(cs []*Container) {
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].Due < cs[j].Due })
	})

	// THEN the queue holds containers in ascending due order
	got := ids(pq.Items())
	want := []uint64{2, 3, 1}
	for i, id := range want {
		if got[i] != id {
			t.Errorf("Items[%d]: got %d, want %d", i, got[i], id)
		}
	}
}

func TestPendingQueue_Reorder_LengthChange_Panics(t *testing.T) {
	// GIVEN a queue with two containers
	pq := &PendingQueue{}
	pq.Enqueue(&Container{ID: 1})
	pq.Enqueue(&Container{ID: 2})

	// WHEN fn reslices the queue
	// THEN Reorder panics
	defer func() {
		if recover() == nil {
			t.Error("Reorder with length change did not panic")
		}
	}()
	pq.Reorder(func(cs []*Container) {
		pq.queue = cs[:1]
	})
}

func TestPendingQueue_Reorder_NilFn_Panics(t *testing.T) {
	pq := &PendingQueue{}
	defer func() {
		if recover() == nil {
			t.Error("Reorder(nil) did not panic")
		}
	}()
	pq.Reorder(nil)
}

func TestPendingQueue_String(t *testing.T) {
	pq := &PendingQueue{}
	if got := pq.String(); got != "[]" {
		t.Errorf("empty String() = %q, want []", got)
	}
	c := NewContainer(7, 3, 0, Export, OpStoreFromLand, 0)
	pq.Enqueue(c)
	if got := pq.String(); got != "[C7[SL g3 v0 (0,0)]]" {
		t.Errorf("String() = %q", got)
	}
}
