package scheduler

import "testing"

func TestSortTileCoordsByHilbert_PreservesSetAndIsDeterministic(t *testing.T) {
	coords := []tileCoord{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {2, 2}, {3, 0}}
	want := map[tileCoord]bool{}
	for _, c := range coords {
		want[c] = true
	}

	a := append([]tileCoord(nil), coords...)
	b := append([]tileCoord(nil), coords...)
	sortTileCoordsByHilbert(a, nextPow2(4))
	sortTileCoordsByHilbert(b, nextPow2(4))

	if len(a) != len(coords) {
		t.Fatalf("sort changed length: got %d want %d", len(a), len(coords))
	}
	for _, c := range a {
		if !want[c] {
			t.Fatalf("sorted output contains unexpected coord %v", c)
		}
		delete(want, c)
	}
	if len(want) != 0 {
		t.Fatalf("sorted output missing coords: %v", want)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic sort at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestNextPow2(t *testing.T) {
	cases := map[int]uint64{1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 16: 16, 17: 32}
	for in, want := range cases {
		if got := nextPow2(in); got != want {
			t.Errorf("nextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}
