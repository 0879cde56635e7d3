package systems

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// TestRadixSort 测试基数排序与稳定排序结果一致
func TestRadixSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	tests := []struct {
		name string
		keys []uint32
	}{
		{"Empty", nil},
		{"Single", []uint32{42}},
		{"Already sorted", []uint32{1, 2, 3, 4, 5}},
		{"Reversed", []uint32{5, 4, 3, 2, 1}},
		{"Duplicates", []uint32{3, 1, 3, 1, 2, 2}},
		{"High bytes", []uint32{0xFF000000, 0x00FF0000, 0x0000FF00, 0x000000FF, math.MaxUint32, 0}},
	}
	random := make([]uint32, 500)
	for i := range random {
		random[i] = rng.Uint32()
	}
	tests = append(tests, struct {
		name string
		keys []uint32
	}{"Random", random})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := func(i int) uint32 { return tt.keys[i] }

			values := make([]int, len(tt.keys))
			for i := range values {
				values[i] = i
			}
			want := append([]int(nil), values...)
			sort.SliceStable(want, func(a, b int) bool { return tt.keys[want[a]] < tt.keys[want[b]] })

			radixSort(values, make([]int, len(values)), key)

			for i := range want {
				if values[i] != want[i] {
					t.Fatalf("radixSort()[%d] = %d, want %d", i, values[i], want[i])
				}
			}

			// 再排一次结果不变
			again := append([]int(nil), values...)
			radixSort(again, make([]int, len(again)), key)
			for i := range again {
				if again[i] != values[i] {
					t.Fatalf("second sort moved index %d", i)
				}
			}
		})
	}
}

// TestCompact 测试存活下标被移到前面且不丢失
func TestCompact(t *testing.T) {
	tests := []struct {
		name  string
		valid []bool
	}{
		{"Empty", nil},
		{"All live", []bool{true, true, true}},
		{"All dead", []bool{false, false, false}},
		{"Dead head", []bool{false, true}},
		{"Dead tail", []bool{true, false, false}},
		{"Alternating", []bool{false, true, false, true, false, true}},
		{"Single hole", []bool{true, true, false, true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := make([]int, len(tt.valid))
			wantLive := 0
			for i := range order {
				order[i] = i
				if tt.valid[i] {
					wantLive++
				}
			}
			valid := func(i int) bool { return tt.valid[i] }

			n := compact(order, valid)
			if n != wantLive {
				t.Fatalf("compact() = %d, want %d", n, wantLive)
			}
			seen := make(map[int]bool)
			for i, idx := range order {
				if (i < n) != valid(idx) {
					t.Errorf("order[%d] = %d misplaced", i, idx)
				}
				seen[idx] = true
			}
			if len(seen) != len(order) {
				t.Errorf("compact() is not a permutation: %v", order)
			}
		})
	}
}

// TestSortKey 测试距离平方的截断
func TestSortKey(t *testing.T) {
	tests := []struct {
		d2   float64
		want uint32
	}{
		{-1, 0},
		{0, 0},
		{10.7, 10},
		{1e12, math.MaxUint32},
	}
	for _, tt := range tests {
		if got := sortKey(tt.d2); got != tt.want {
			t.Errorf("sortKey(%v) = %d, want %d", tt.d2, got, tt.want)
		}
	}
}

// TestUpdate_RenderOrder 测试粒子由远及近提交
func TestUpdate_RenderOrder(t *testing.T) {
	te := newTestEngine(t, burstScript, DefaultConfig())
	te.bounce = false
	for _, x := range []float64{30, 500, 10, 200} {
		te.spawnAt(t, "burst", mgl64.Vec3{x, 0, 0})
	}
	te.step(t, 0)

	if len(te.scene.sprites) != 12 {
		t.Fatalf("%d sprites, want 12", len(te.scene.sprites))
	}
	prev := math.Inf(1)
	for i, s := range te.scene.sprites {
		d := s.Origin.Len()
		if d > prev {
			t.Fatalf("sprite %d at distance %v drawn after %v", i, d, prev)
		}
		prev = d
	}
}
