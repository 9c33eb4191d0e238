// Package ticklist implements component C3: the ordered sparse map of
// initialized ticks a V3/V4 pool's swap loop walks. guidebee-SolRoute
// has no analogue for this — no example repo keeps a sorted index
// structure — so the shape here is built directly from the spec's own
// operation contract (spec §4.3), choosing a sorted-slice-plus-map
// representation since Go's standard library has no ordered map.
package ticklist

import (
	"sort"

	"ammsim/errs"
	"ammsim/pkg/fixedpoint"
)

const (
	MinTick = -887272
	MaxTick = 887272
)

// TickInfo is one initialized tick: its index and signed net liquidity
// delta applied when the price crosses it (spec §3).
type TickInfo struct {
	Index        int32
	NetLiquidity *fixedpoint.I256
}

// TickList is an ordered, sparse collection of initialized ticks
// sharing one tick_spacing. Lookups and the hot-path
// NextInitializedTickWithinOneWord query are O(log n) via binary
// search over a sorted index; get is O(1) via the backing map.
type TickList struct {
	tickSpacing int32
	sorted      []int32 // ascending, unique, kept in sync with byIndex
	byIndex     map[int32]*TickInfo
}

// New builds an empty tick list for the given tick_spacing.
func New(tickSpacing int32) *TickList {
	return &TickList{
		tickSpacing: tickSpacing,
		byIndex:     make(map[int32]*TickInfo),
	}
}

// TickSpacing returns the list's fixed grid spacing.
func (l *TickList) TickSpacing() int32 { return l.tickSpacing }

// Get returns the tick info at index, if initialized.
func (l *TickList) Get(index int32) (*TickInfo, bool) {
	info, ok := l.byIndex[index]
	return info, ok
}

// Len returns the number of initialized ticks.
func (l *TickList) Len() int { return len(l.sorted) }

// Clone returns a deep, independently-mutable copy (spec §3:
// "clone is required for snapshotting").
func (l *TickList) Clone() *TickList {
	out := New(l.tickSpacing)
	out.sorted = append([]int32(nil), l.sorted...)
	out.byIndex = make(map[int32]*TickInfo, len(l.byIndex))
	for idx, info := range l.byIndex {
		out.byIndex[idx] = &TickInfo{Index: info.Index, NetLiquidity: new(fixedpoint.U256).Set(info.NetLiquidity)}
	}
	return out
}

// Equals reports whether l and other hold identical initialized ticks.
func (l *TickList) Equals(other *TickList) bool {
	if l.tickSpacing != other.tickSpacing || len(l.byIndex) != len(other.byIndex) {
		return false
	}
	for idx, info := range l.byIndex {
		oi, ok := other.byIndex[idx]
		if !ok || oi.NetLiquidity.Cmp(info.NetLiquidity) != 0 {
			return false
		}
	}
	return true
}

func (l *TickList) search(index int32) int {
	return sort.Search(len(l.sorted), func(i int) bool { return l.sorted[i] >= index })
}

// SetLiquidity inserts, replaces, or (if newNetLiquidity is zero)
// removes the entry at index (spec §4.3).
func (l *TickList) SetLiquidity(index int32, newNetLiquidity *fixedpoint.I256) {
	pos := l.search(index)
	present := pos < len(l.sorted) && l.sorted[pos] == index

	if newNetLiquidity.IsZero() {
		if present {
			delete(l.byIndex, index)
			l.sorted = append(l.sorted[:pos], l.sorted[pos+1:]...)
		}
		return
	}

	l.byIndex[index] = &TickInfo{Index: index, NetLiquidity: new(fixedpoint.U256).Set(newNetLiquidity)}
	if !present {
		l.sorted = append(l.sorted, 0)
		copy(l.sorted[pos+1:], l.sorted[pos:])
		l.sorted[pos] = index
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// wordOf returns the [lo, hi] tick bounds of the 256*tick_spacing-wide,
// grid-aligned word containing the compressed tick index "compressed"
// (spec §4.3; mirrors the on-chain TickBitmap word/bit split).
func (l *TickList) wordOf(compressed int64) (lo, hi int32) {
	spacing := int64(l.tickSpacing)
	wordPos := floorDiv(compressed, 256)
	lo64 := wordPos * 256 * spacing
	hi64 := lo64 + 255*spacing
	return int32(lo64), int32(hi64)
}

// NextInitializedTickWithinOneWord finds the next initialized tick from
// "from" in the given direction, bounded to a single 256*tick_spacing
// word (spec §4.3). The returned bool reports whether the tick returned
// is actually initialized; when false, the caller should continue with
// the returned boundary tick as the next word's starting point.
func (l *TickList) NextInitializedTickWithinOneWord(from int32, zeroForOne bool) (int32, bool, error) {
	spacing := int64(l.tickSpacing)

	if zeroForOne {
		compressed := floorDiv(int64(from), spacing)
		lo, _ := l.wordOf(compressed)
		pos := l.search(from + 1) // first stored index > from
		for i := pos - 1; i >= 0; i-- {
			idx := l.sorted[i]
			if idx < lo {
				break
			}
			if idx <= from {
				return idx, true, nil
			}
		}
		if lo < MinTick {
			return 0, false, errs.ErrTicksExceeded
		}
		return lo, false, nil
	}

	compressed := floorDiv(int64(from), spacing) + 1
	_, hi := l.wordOf(compressed)
	startTick := int32(compressed * spacing)
	pos := l.search(startTick)
	for i := pos; i < len(l.sorted); i++ {
		idx := l.sorted[i]
		if idx > hi {
			break
		}
		return idx, true, nil
	}
	if hi > MaxTick {
		return 0, false, errs.ErrTicksExceeded
	}
	return hi, false, nil
}
