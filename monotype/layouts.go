package monotype

import (
	"github.com/wippyai/bespoke-runtime/arrays"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/value"
)

// DefaultMaxCapacity is the largest capacity a MonotypeVec header can hold.
const DefaultMaxCapacity = 0xFFFF

// DictTopIndex is the abstract layout covering both dict key kinds.
const DictTopIndex layout.Index = 3

// Escalation reasons.
const (
	ReasonValueKind    = "monotype value kind mismatch"
	ReasonKeyKind      = "monotype key kind mismatch"
	ReasonCapacity     = "monotype capacity exceeded"
	ReasonTombstoneKey = "monotype int key equals tombstone"
	ReasonElem         = "monotype elem"
	ReasonStrAppend    = "monotype append to string-keyed dict"
)

// Config bounds monotype containers.
type Config struct {
	// MaxCapacity caps element counts; 0 means DefaultMaxCapacity.
	MaxCapacity uint32
}

// Layouts holds the monotype descriptors and the limits their operations
// enforce.
type Layouts struct {
	Vec         *layout.Concrete
	DictStr     *layout.Concrete
	DictInt     *layout.Concrete
	DictTop     *layout.Abstract
	maxCapacity uint32
}

// New builds the monotype layouts.
func New(cfg Config) *Layouts {
	maxCap := cfg.MaxCapacity
	if maxCap == 0 || maxCap > DefaultMaxCapacity {
		maxCap = DefaultMaxCapacity
	}
	l := &Layouts{maxCapacity: maxCap}

	vec := arrays.Impl{
		Destroy:     l.vecDestroy,
		Copy:        l.vecCopy,
		Get:         l.vecGet,
		Set:         l.vecSet,
		Remove:      l.vecRemove,
		Append:      l.vecAppend,
		IterBegin:   func(*layout.Env, uint32) (uint32, error) { return 0, nil },
		IterLast:    l.vecIterLast,
		IterEnd:     l.vecIterEnd,
		IterAdvance: l.vecIterAdvance,
		GetPosKey:   func(_ *layout.Env, _ uint32, pos uint32) (value.TypedValue, error) { return value.Int(int64(pos)), nil },
		GetPosVal:   l.vecGetPosVal,
		Elem:        l.vecElem,
		Escalate:    l.vecEscalate,
		Keys:        []layout.KeyKind{layout.KeyInt, layout.KeyStr},
	}
	dict := arrays.Impl{
		Destroy:     l.dictDestroy,
		Copy:        l.dictCopy,
		Get:         l.dictGet,
		Set:         l.dictSet,
		Remove:      l.dictRemove,
		Append:      l.dictAppend,
		IterBegin:   l.dictIterBegin,
		IterLast:    l.dictIterLast,
		IterEnd:     l.dictIterEnd,
		IterAdvance: l.dictIterAdvance,
		GetPosKey:   l.dictGetPosKey,
		GetPosVal:   l.dictGetPosVal,
		Elem:        l.dictElem,
		Escalate:    l.dictEscalate,
		Keys:        []layout.KeyKind{layout.KeyInt, layout.KeyStr},
	}

	l.Vec = &layout.Concrete{
		Name:   "MonotypeVec",
		Index:  layout.MonotypeVecIndex,
		Kind:   value.ArrayVec,
		VTable: vec.VTable("MonotypeVec"),
	}
	l.DictStr = &layout.Concrete{
		Name:   "MonotypeDict<Str>",
		Index:  layout.MonotypeDictStrIndex,
		Kind:   value.ArrayDict,
		VTable: dict.VTable("MonotypeDict"),
	}
	l.DictInt = &layout.Concrete{
		Name:   "MonotypeDict<Int>",
		Index:  layout.MonotypeDictIntIndex,
		Kind:   value.ArrayDict,
		VTable: l.DictStr.VTable,
	}
	l.DictTop = &layout.Abstract{
		Name:     "MonotypeDict",
		Index:    DictTopIndex,
		KindSet:  layout.KindSetOf(value.ArrayDict),
		Children: []layout.Index{layout.MonotypeDictStrIndex, layout.MonotypeDictIntIndex},
	}
	return l
}

// MaxCapacity returns the enforced element limit.
func (l *Layouts) MaxCapacity() uint32 { return l.maxCapacity }

// Register installs the monotype layouts at their reserved indices.
func (l *Layouts) Register(reg *layout.Registry) error {
	for _, d := range []layout.Descriptor{l.Vec, l.DictTop, l.DictStr, l.DictInt} {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}
