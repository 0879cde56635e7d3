package systems

import "math"

// resetOrder makes order the identity permutation of the particle pool.
func (ps *ParticleSystem) resetOrder() {
	for i := range ps.order {
		ps.order[i] = i
	}
}

// compactAndSort moves the live particles to the front of the render order
// and sorts them farthest first. It returns the number of live particles.
func (ps *ParticleSystem) compactAndSort() int {
	n := compact(ps.order, ps.particles.IsValidAt)

	view := ps.frame.ViewOrigin
	for _, i := range ps.order[:n] {
		p, _ := ps.particles.At(i)
		d := p.Origin.Sub(view)
		p.SortKey = sortKey(d.Dot(d))
	}

	key := func(i int) uint32 {
		p, _ := ps.particles.At(i)
		return p.SortKey
	}
	radixSort(ps.order[:n], ps.sortTmp[:n], key)
	reverse(ps.order[:n])
	return n
}

// sortKey clamps a squared distance into the 32 bit sort range.
func sortKey(d2 float64) uint32 {
	if d2 >= math.MaxUint32 {
		return math.MaxUint32
	}
	if d2 <= 0 {
		return 0
	}
	return uint32(d2)
}

// compact partitions order so that every index for which valid is true comes
// first. Valid entries are only swapped into holes, never overwritten; the
// relative order of entries is not preserved. It returns the valid count.
func compact(order []int, valid func(int) bool) int {
	i, j := 0, len(order)-1
	for {
		for i <= j && valid(order[i]) {
			i++
		}
		for j > i && !valid(order[j]) {
			j--
		}
		if i >= j {
			return i
		}
		order[i], order[j] = order[j], order[i]
		i++
		j--
	}
}

// radixPass is one stable counting sort pass on the byte of the key at shift.
func radixPass(shift uint, src, dst []int, key func(int) uint32) {
	var count [256]int
	for _, v := range src {
		count[(key(v)>>shift)&0xFF]++
	}

	var index [256]int
	for b := 1; b < 256; b++ {
		index[b] = index[b-1] + count[b-1]
	}

	for _, v := range src {
		b := (key(v) >> shift) & 0xFF
		dst[index[b]] = v
		index[b]++
	}
}

// radixSort sorts values ascending by key with four 8 bit passes. tmp must
// be as long as values. The result ends up back in values.
func radixSort(values, tmp []int, key func(int) uint32) {
	radixPass(0, values, tmp, key)
	radixPass(8, tmp, values, key)
	radixPass(16, values, tmp, key)
	radixPass(24, tmp, values, key)
}

func reverse(values []int) {
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
}
