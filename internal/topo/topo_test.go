package topo

import "testing"

func indexOf(order []int, id int) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

// TestOrderPlacesUpstreamBeforeDownstream checks topological determinism:
// every subbasin must appear before the one it drains into.
func TestOrderPlacesUpstreamBeforeDownstream(t *testing.T) {
	// 1 -> 2 -> 4 <- 3, 4 -> -1 (outlet)
	downstream := map[int]int{1: 2, 2: 4, 3: 4, 4: -1}
	order := Order(downstream, -1)
	if len(order) != 4 {
		t.Fatalf("len(order) = %d, want 4", len(order))
	}
	for id, ds := range downstream {
		if ds == -1 {
			continue
		}
		if indexOf(order, id) >= indexOf(order, ds) {
			t.Errorf("subbasin %d (index %d) does not precede its downstream %d (index %d)",
				id, indexOf(order, id), ds, indexOf(order, ds))
		}
	}
}

func TestOrderIsDeterministicAcrossCalls(t *testing.T) {
	downstream := map[int]int{1: 3, 2: 3, 3: -1}
	first := Order(downstream, -1)
	for i := 0; i < 5; i++ {
		again := Order(downstream, -1)
		if len(again) != len(first) {
			t.Fatalf("call %d: len = %d, want %d", i, len(again), len(first))
		}
		for j := range first {
			if first[j] != again[j] {
				t.Errorf("call %d: order differs at %d: %v vs %v", i, j, again, first)
				break
			}
		}
	}
}
