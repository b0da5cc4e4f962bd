package dispatch

import (
	"strings"
	"testing"

	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/structdict"
	"github.com/wippyai/bespoke-runtime/value"
)

func TestTargetPriority(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		typ    Type
		op     layout.Op
		key    layout.KeyKind
		source Source
		symbol string
	}{
		{"concrete vtable entry", Bespoke(f.mono.Vec), layout.OpGet, layout.KeyInt, SourceVTable, "MonotypeVec::GetInt"},
		{"concrete synthesized throw", Bespoke(f.mono.Vec), layout.OpGetThrow, layout.KeyInt, SourceVTable, "MonotypeVec::GetThrowInt"},
		{"struct set", Bespoke(f.user.Descriptor()), layout.OpSet, layout.KeyStr, SourceVTable, "User::SetStr"},
		{"logging layout", Bespoke(f.wrap.Descriptor()), layout.OpAppend, layout.KeyNone, SourceVTable, "LoggingArray::Append"},
		{"abstract falls back", Bespoke(f.mono.DictTop), layout.OpGet, layout.KeyStr, SourceBespoke, "BespokeArray::GetStr"},
		{"bespoke top falls back", AnyArray().NarrowToLayout(BespokeTopLayout()), layout.OpSet, layout.KeyInt, SourceBespoke, "BespokeArray::SetInt"},
		{"unregistered index falls back", Of(value.ArrayDict).NarrowToLayout(BespokeLayout(900)), layout.OpRemove, layout.KeyStr, SourceBespoke, "BespokeArray::RemoveStr"},
		{"vanilla vec", Vanilla(value.ArrayVec), layout.OpGet, layout.KeyInt, SourceVanilla, "VanillaVec::GetInt"},
		{"vanilla vec string key", Vanilla(value.ArrayVec), layout.OpGet, layout.KeyStr, SourceGeneric, "Generic::GetStr"},
		{"vanilla dict throw", Vanilla(value.ArrayDict), layout.OpGetThrow, layout.KeyStr, SourceVanilla, "VanillaDict::GetThrowStr"},
		{"vanilla keyset set", Vanilla(value.ArrayKeyset), layout.OpSet, layout.KeyInt, SourceGeneric, "Generic::SetInt"},
		{"vanilla keyset release", Vanilla(value.ArrayKeyset), layout.OpRelease, layout.KeyNone, SourceVanilla, "VanillaKeyset::Release"},
		{"vanilla of two kinds", Of(value.ArrayVec, value.ArrayDict).NarrowToLayout(VanillaLayout()), layout.OpGet, layout.KeyInt, SourceGeneric, "Generic::GetInt"},
		{"unknown layout", Of(value.ArrayDict), layout.OpGet, layout.KeyInt, SourceGeneric, "Generic::GetInt"},
		{"bottom", Of(value.ArrayVec).NarrowToLayout(BottomLayout()), layout.OpAppend, layout.KeyNone, SourceGeneric, "Generic::Append"},
		{"keyless op ignores key", Vanilla(value.ArrayVec), layout.OpIterBegin, layout.KeyStr, SourceVanilla, "VanillaVec::IterBegin"},
		{"none key on keyed op", Of(value.ArrayDict), layout.OpGet, layout.KeyNone, SourceGeneric, "Generic::GetStr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.d.Target(tt.typ, tt.op, tt.key)
			if got.Source != tt.source {
				t.Errorf("got source %v, want %v", got.Source, tt.source)
			}
			if got.Symbol != tt.symbol {
				t.Errorf("got symbol %q, want %q", got.Symbol, tt.symbol)
			}
			if got.Fn == nil {
				t.Error("target has no implementation")
			}
		})
	}
}

func dispatchTypes(f *fixture) []Type {
	types := []Type{
		AnyArray(),
		AnyArray().NarrowToLayout(BespokeTopLayout()),
		AnyArray().NarrowToLayout(BottomLayout()),
		Bespoke(f.mono.Vec),
		Bespoke(f.mono.DictStr),
		Bespoke(f.mono.DictTop),
		Bespoke(f.user.Descriptor()),
		Bespoke(f.wrap.Descriptor()),
	}
	for k := value.ArrayVec; k <= value.ArrayKeyset; k++ {
		types = append(types, Vanilla(k), Of(k))
	}
	return types
}

func TestTargetTotality(t *testing.T) {
	f := newFixture(t)
	for _, typ := range dispatchTypes(f) {
		for op := layout.Op(0); op < layout.NumOps; op++ {
			for key := layout.KeyKind(0); key < layout.NumKeyKinds; key++ {
				got := f.d.Target(typ, op, key)
				if got.Fn == nil {
					t.Errorf("%s %s/%s: no implementation", typ, op, key)
				}
				if got.Op != op {
					t.Errorf("%s %s/%s: got op %s", typ, op, key, got.Op)
				}
				if got.Params != op.Params() || got.Results != op.Results() {
					t.Errorf("%s %s: got arity %d/%d, want %d/%d", typ, op, got.Params, got.Results, op.Params(), op.Results())
				}
			}
			for _, throw := range []bool{false, true} {
				if got := f.d.Elem(typ, layout.KeyInt, throw); got.Fn == nil {
					t.Errorf("%s Elem throw=%v: no implementation", typ, throw)
				}
			}
		}
	}
}

func TestDestructorCopySymmetry(t *testing.T) {
	f := newFixture(t)
	prefix := func(s string) string {
		p, _, _ := strings.Cut(s, "::")
		return p
	}
	for _, typ := range dispatchTypes(f) {
		dtor, cp := f.d.Destructor(typ), f.d.CopyFunc(typ)
		if dtor.Source != cp.Source {
			t.Errorf("%s: destructor from %v, copy from %v", typ, dtor.Source, cp.Source)
		}
		if prefix(dtor.Symbol) != prefix(cp.Symbol) {
			t.Errorf("%s: got %q and %q", typ, dtor.Symbol, cp.Symbol)
		}
	}
}

func TestElemSelection(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		typ    Type
		key    layout.KeyKind
		throw  bool
		source Source
		symbol string
	}{
		{"concrete", Bespoke(f.mono.Vec), layout.KeyInt, true, SourceVTable, "MonotypeVec::ElemInt"},
		{"struct", Bespoke(f.user.Descriptor()), layout.KeyStr, false, SourceVTable, "User::ElemStr"},
		{"abstract", Bespoke(f.mono.DictTop), layout.KeyStr, true, SourceBespoke, "BespokeArray::ElemStr"},
		{"vanilla dict throw", Vanilla(value.ArrayDict), layout.KeyStr, true, SourceVanilla, "VanillaDict::ElemStrThrow"},
		{"vanilla dict quiet", Vanilla(value.ArrayDict), layout.KeyInt, false, SourceVanilla, "VanillaDict::ElemIntQuiet"},
		{"vanilla keyset quiet", Vanilla(value.ArrayKeyset), layout.KeyStr, false, SourceVanilla, "VanillaKeyset::ElemStrQuiet"},
		{"vanilla keyset throw", Vanilla(value.ArrayKeyset), layout.KeyStr, true, SourceGeneric, "Generic::ElemStrThrow"},
		{"vanilla vec", Vanilla(value.ArrayVec), layout.KeyInt, false, SourceGeneric, "Generic::ElemIntQuiet"},
		{"unknown layout", Of(value.ArrayDict), layout.KeyInt, true, SourceGeneric, "Generic::ElemIntThrow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.d.Elem(tt.typ, tt.key, tt.throw)
			if got.Source != tt.source || got.Symbol != tt.symbol {
				t.Errorf("got %v %q, want %v %q", got.Source, got.Symbol, tt.source, tt.symbol)
			}
		})
	}

	if got, want := f.d.Target(Vanilla(value.ArrayDict), layout.OpElem, layout.KeyStr), f.d.Elem(Vanilla(value.ArrayDict), layout.KeyStr, false); got.Symbol != want.Symbol {
		t.Errorf("Target(Elem) got %q, want %q", got.Symbol, want.Symbol)
	}
}

func TestSyncPolicy(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		typ  Type
		op   layout.Op
		want Sync
	}{
		{"get vanilla", Vanilla(value.ArrayDict), layout.OpGet, SyncNone},
		{"get unknown layout", Of(value.ArrayDict), layout.OpGet, SyncPoint},
		{"get logging", Bespoke(f.wrap.Descriptor()), layout.OpGet, SyncPoint},
		{"get bespoke top", AnyArray().NarrowToLayout(BespokeTopLayout()), layout.OpGet, SyncPoint},
		{"get concrete", Bespoke(f.mono.Vec), layout.OpGet, SyncNone},
		{"get abstract without logging", Bespoke(f.mono.DictTop), layout.OpGet, SyncNone},
		{"escalate concrete", Bespoke(f.user.Descriptor()), layout.OpEscalateToVanilla, SyncNone},
		{"escalate unknown", AnyArray(), layout.OpEscalateToVanilla, SyncPoint},
		{"iterate unknown", AnyArray(), layout.OpIterBegin, SyncNone},
		{"iterate logging", Bespoke(f.wrap.Descriptor()), layout.OpGetPosVal, SyncNone},
		{"set vanilla", Vanilla(value.ArrayVec), layout.OpSet, SyncPoint},
		{"remove concrete", Bespoke(f.mono.Vec), layout.OpRemove, SyncPoint},
		{"append concrete", Bespoke(f.mono.Vec), layout.OpAppend, SyncPoint},
		{"elem vanilla", Vanilla(value.ArrayDict), layout.OpElem, SyncPoint},
		{"get throw vanilla", Vanilla(value.ArrayDict), layout.OpGetThrow, SyncPoint},
		{"empty kind set", Type{Layout: TopLayout()}, layout.OpGet, SyncNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.d.SyncFor(tt.typ, tt.op); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTargetsAreNotCachedBeforeFinalize(t *testing.T) {
	reg := layout.NewRegistry()
	d := New(reg)
	typ := Of(value.ArrayDict).NarrowToLayout(BespokeLayout(layout.FirstDynamicIndex))

	if got := d.Target(typ, layout.OpGet, layout.KeyStr); got.Source != SourceBespoke {
		t.Fatalf("got source %v before registration, want bespoke", got.Source)
	}

	u := structdict.NewUniverse(reg, value.NewStringTable())
	l, err := u.NewLayout("Point", []structdict.FieldSpec{{Name: "x"}, {Name: "y"}})
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	if l.Index() != layout.FirstDynamicIndex {
		t.Fatalf("got index %v, want %v", l.Index(), layout.FirstDynamicIndex)
	}
	if got := d.Target(typ, layout.OpGet, layout.KeyStr); got.Source != SourceVTable {
		t.Errorf("got source %v after registration, want vtable", got.Source)
	}

	reg.Finalize()
	first := d.Target(typ, layout.OpGet, layout.KeyStr)
	second := d.Target(typ, layout.OpGet, layout.KeyStr)
	if first.Symbol != "Point::GetStr" || second.Symbol != first.Symbol {
		t.Errorf("got %q then %q, want Point::GetStr", first.Symbol, second.Symbol)
	}
}

func BenchmarkTarget(b *testing.B) {
	f := newFixture(b)
	types := dispatchTypes(f)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		typ := types[i%len(types)]
		_ = f.d.Target(typ, layout.OpGet, layout.KeyStr)
	}
}
