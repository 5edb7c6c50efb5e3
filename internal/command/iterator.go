package command

// Iterator replays the commands recorded into a Blocks value in the order
// they were recorded, across block boundaries, exactly once.
type Iterator struct {
	blocks     *Blocks
	blockIndex int
	entryIndex int
	cur        entry
}

// NewIterator constructs an Iterator over blocks. The iterator does not take
// ownership of blocks for recycling purposes; callers that also want the
// arena memory back call Allocator.Recycle separately once the iterator is
// done.
func NewIterator(blocks *Blocks) *Iterator {
	it := &Iterator{blocks: blocks}
	it.Reset()
	return it
}

// Reset rewinds the iterator to the first recorded command.
func (it *Iterator) Reset() {
	it.blockIndex = 0
	it.entryIndex = 0
}

// IsEmpty reports whether the underlying arena recorded no commands.
func (it *Iterator) IsEmpty() bool {
	return it.blocks.Empty()
}

// NextCommandID advances to the next recorded command and returns its id,
// or false once every command in every block has been consumed. The
// EndOfBlock sentinel is consumed internally and never returned.
func (it *Iterator) NextCommandID() (ID, bool) {
	if it.blocks.Empty() {
		return 0, false
	}
	for {
		if it.blockIndex >= len(it.blocks.list) {
			it.Reset()
			return 0, false
		}
		blk := it.blocks.list[it.blockIndex]
		if it.entryIndex >= len(blk.entries) {
			it.blockIndex++
			it.entryIndex = 0
			continue
		}
		e := blk.entries[it.entryIndex]
		it.entryIndex++
		if e.id == EndOfBlock {
			it.blockIndex++
			it.entryIndex = 0
			continue
		}
		it.cur = e
		return e.id, true
	}
}

// NextCommand returns the command most recently identified by
// NextCommandID, asserted to type T. It panics if called out of sequence or
// with the wrong type, which indicates a bug in the replaying switch, not a
// reachable runtime condition.
func NextCommand[T any](it *Iterator) *T {
	return it.cur.cmd.(*T)
}

// NextData returns the next AdditionalData payload, asserted to type
// []T. It advances the iterator itself (unlike NextCommand, which reads the
// entry NextCommandID already advanced past).
func NextData[T any](it *Iterator) []T {
	id, ok := it.NextCommandID()
	if !ok || id != AdditionalData {
		panic("command: NextData called out of sequence")
	}
	return it.cur.cmd.([]T)
}
