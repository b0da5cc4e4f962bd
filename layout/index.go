package layout

import "fmt"

// Index identifies a specialized layout. It is stored in the array header.
type Index uint16

// Reserved indices.
const (
	LoggingIndex         Index = 0
	TopIndex             Index = 1
	MonotypeVecIndex     Index = 2
	MonotypeDictStrIndex Index = 4
	MonotypeDictIntIndex Index = 5
	FirstDynamicIndex    Index = 8
)

// MaxIndex bounds the registry; struct hash tables are addressed by index << 9.
const MaxIndex Index = 1 << 12

func (i Index) String() string {
	return fmt.Sprintf("#%d", uint16(i))
}
