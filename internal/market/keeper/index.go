package keeper

// ActiveListingIndex gives O(1) membership, insert and removal over the set
// of currently purchasable listing ids, plus a dense ordered sequence for
// pagination. Positions are stored shifted by one so presence and position
// are tested in a single map lookup (0 means absent).
type ActiveListingIndex struct {
	ids []uint64
	pos map[uint64]int // id -> index+1; 0 = absent
}

// NewActiveListingIndex returns an empty index.
func NewActiveListingIndex() *ActiveListingIndex {
	return &ActiveListingIndex{
		pos: make(map[uint64]int),
	}
}

// Len returns the number of active ids.
func (x *ActiveListingIndex) Len() int {
	return len(x.ids)
}

// Contains reports whether id is in the active set.
func (x *ActiveListingIndex) Contains(id uint64) bool {
	return x.pos[id] != 0
}

// Position returns the 0-based position of id in the sequence, or -1.
func (x *ActiveListingIndex) Position(id uint64) int {
	return x.pos[id] - 1
}

// Insert adds id to the end of the sequence. Idempotent.
func (x *ActiveListingIndex) Insert(id uint64) {
	if x.pos[id] != 0 {
		return
	}
	x.ids = append(x.ids, id)
	x.pos[id] = len(x.ids)
}

// Remove deletes id by swapping the last element into its slot and popping.
// The moved element's stored position is reindexed in the same step. Idempotent.
func (x *ActiveListingIndex) Remove(id uint64) {
	p := x.pos[id]
	if p == 0 {
		return
	}
	last := len(x.ids) - 1
	moved := x.ids[last]
	x.ids[p-1] = moved
	x.ids = x.ids[:last]
	delete(x.pos, id)
	if moved != id {
		x.pos[moved] = p
	}
}

// Slice returns a copy of the sequence window [offset, offset+limit) and
// whether more ids follow it. An offset at or past the end yields an empty
// result and hasMore=false.
func (x *ActiveListingIndex) Slice(offset, limit int) ([]uint64, bool) {
	if offset < 0 || limit < 0 || offset >= len(x.ids) {
		return []uint64{}, false
	}
	end := offset + limit
	if end > len(x.ids) {
		end = len(x.ids)
	}
	out := make([]uint64, end-offset)
	copy(out, x.ids[offset:end])
	return out, end < len(x.ids)
}

// IDs returns a copy of the full active sequence.
func (x *ActiveListingIndex) IDs() []uint64 {
	out := make([]uint64, len(x.ids))
	copy(out, x.ids)
	return out
}
