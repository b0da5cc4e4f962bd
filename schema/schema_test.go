package schema

import (
	stderrors "errors"
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/bespoke-runtime/arrays"
	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/heap"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/monotype"
	"github.com/wippyai/bespoke-runtime/structdict"
	"github.com/wippyai/bespoke-runtime/value"
)

type fixture struct {
	reg  *layout.Registry
	u    *structdict.Universe
	mono *monotype.Layouts
	s    *Schema
	strs *value.StringTable
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	strs := value.NewStringTable()
	reg := layout.NewRegistry()
	mono := monotype.New(monotype.Config{})
	if err := mono.Register(reg); err != nil {
		t.Fatalf("monotype Register failed: %v", err)
	}
	u := structdict.NewUniverse(reg, strs)
	return &fixture{reg: reg, u: u, mono: mono, s: New(u, mono), strs: strs}
}

func named(name string, kind wit.TypeDefKind) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: kind}
}

func userType() *wit.TypeDef {
	return named("user", &wit.Record{
		Fields: []wit.Field{
			{Name: "id", Type: wit.U32{}},
			{Name: "nick", Type: &wit.TypeDef{Kind: &wit.Option{Type: wit.String{}}}},
			{Name: "tags", Type: &wit.TypeDef{Kind: &wit.List{Type: wit.String{}}}},
		},
	})
}

func TestDeclareRecord(t *testing.T) {
	f := newFixture(t)
	user := userType()

	d, err := f.s.Declare(user)
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	c, ok := d.(*layout.Concrete)
	if !ok {
		t.Fatalf("got %T, want a concrete layout", d)
	}
	if c.Name != "user" {
		t.Errorf("got name %q, want user", c.Name)
	}
	l, ok := f.u.Layout(c.Index)
	if !ok {
		t.Fatalf("layout %v not in universe", c.Index)
	}

	tests := []struct {
		name     string
		required bool
		mask     value.TypeMask
	}{
		{"id", true, value.MaskOf(value.KindOfInt64)},
		{"nick", false, value.MaskOf(value.KindOfString)},
		{"tags", true, value.MaskOf(value.KindOfVec)},
	}
	if got := l.NumFields(); got != len(tests) {
		t.Fatalf("got %d fields, want %d", got, len(tests))
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd, _ := l.Field(structdict.Slot(i))
			if got := fd.Name.String(); got != tt.name {
				t.Errorf("got name %q, want %q", got, tt.name)
			}
			if fd.Required != tt.required {
				t.Errorf("got required %v, want %v", fd.Required, tt.required)
			}
			if fd.TypeMask != tt.mask {
				t.Errorf("got mask %v, want %v", fd.TypeMask, tt.mask)
			}
		})
	}

	again, err := f.s.Declare(user)
	if err != nil {
		t.Fatalf("second Declare failed: %v", err)
	}
	if again != d {
		t.Errorf("second declaration got %v, want %v", again, d)
	}
}

func TestDeclareAnonymousRecords(t *testing.T) {
	f := newFixture(t)
	rec := func() *wit.TypeDef {
		return &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{{Name: "x", Type: wit.F64{}}}}}
	}
	a, err := f.s.Declare(rec())
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	b, err := f.s.Declare(rec())
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	ai, _ := layout.IndexOf(a)
	bi, _ := layout.IndexOf(b)
	if ai == bi {
		t.Errorf("distinct definitions share index %v", ai)
	}
	if a.(*layout.Concrete).Name == b.(*layout.Concrete).Name {
		t.Errorf("distinct definitions share name %q", a.(*layout.Concrete).Name)
	}
}

func TestDeclareListAndAlias(t *testing.T) {
	f := newFixture(t)
	list := named("names", &wit.List{Type: wit.String{}})
	d, err := f.s.Declare(list)
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	if d != layout.Descriptor(f.mono.Vec) {
		t.Errorf("got %v, want MonotypeVec", d)
	}

	user := userType()
	alias := named("person", user)
	ad, err := f.s.Declare(alias)
	if err != nil {
		t.Fatalf("Declare alias failed: %v", err)
	}
	ud, err := f.s.Declare(user)
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	if ad != ud {
		t.Errorf("alias got %v, want %v", ad, ud)
	}
}

func TestDeclareVariant(t *testing.T) {
	f := newFixture(t)
	circle := named("circle", &wit.Record{Fields: []wit.Field{{Name: "r", Type: wit.F64{}}}})
	rect := named("rect", &wit.Record{Fields: []wit.Field{{Name: "w", Type: wit.F64{}}, {Name: "h", Type: wit.F64{}}}})
	shape := named("shape", &wit.Variant{Cases: []wit.Case{
		{Name: "circle", Type: circle},
		{Name: "rect", Type: rect},
	}})

	d, err := f.s.Declare(shape)
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	a, ok := d.(*layout.Abstract)
	if !ok {
		t.Fatalf("got %T, want an abstract layout", d)
	}
	if len(a.Children) != 2 {
		t.Fatalf("got %d children, want 2", len(a.Children))
	}
	for i, c := range []*wit.TypeDef{circle, rect} {
		cd, err := f.s.Declare(c)
		if err != nil {
			t.Fatalf("Declare(%s) failed: %v", *c.Name, err)
		}
		if want, _ := layout.IndexOf(cd); a.Children[i] != want {
			t.Errorf("child %d: got %v, want %v", i, a.Children[i], want)
		}
	}
	if _, ok := f.u.Abstract(a.Index); !ok {
		t.Error("abstract not in universe")
	}
}

func TestDeclareUnsupported(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		typ  wit.Type
	}{
		{"primitive", wit.U32{}},
		{"tuple", named("pair", &wit.Tuple{Types: []wit.Type{wit.U32{}, wit.U32{}}})},
		{"enum", named("color", &wit.Enum{Cases: []wit.EnumCase{{Name: "red"}}})},
		{"variant without payload", named("state", &wit.Variant{Cases: []wit.Case{{Name: "idle"}}})},
		{"variant of primitives", named("num", &wit.Variant{Cases: []wit.Case{{Name: "i", Type: wit.S64{}}}})},
		{"option of primitive", &wit.TypeDef{Kind: &wit.Option{Type: wit.U8{}}}},
	}
	want := &errors.Error{Phase: errors.PhaseSchema, Kind: errors.KindUnsupported}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.reg.Len()
			_, err := f.s.Declare(tt.typ)
			if !stderrors.Is(err, want) {
				t.Errorf("got %v, want an unsupported error", err)
			}
			if f.reg.Len() != before {
				t.Errorf("got %d layouts, want %d", f.reg.Len(), before)
			}
		})
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		name string
		typ  wit.Type
		want value.TypeMask
	}{
		{"bool", wit.Bool{}, value.MaskOf(value.KindOfBool)},
		{"u8", wit.U8{}, value.MaskOf(value.KindOfInt64)},
		{"s64", wit.S64{}, value.MaskOf(value.KindOfInt64)},
		{"char", wit.Char{}, value.MaskOf(value.KindOfInt64)},
		{"f32", wit.F32{}, value.MaskOf(value.KindOfDouble)},
		{"string", wit.String{}, value.MaskOf(value.KindOfString)},
		{"record", named("r", &wit.Record{}), value.MaskOf(value.KindOfDict)},
		{"list", &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}, value.MaskOf(value.KindOfVec)},
		{"tuple", &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.U8{}}}}, value.MaskOf(value.KindOfVec)},
		{"enum", named("e", &wit.Enum{}), value.MaskOf(value.KindOfInt64)},
		{"option", &wit.TypeDef{Kind: &wit.Option{Type: wit.String{}}}, value.MaskOf(value.KindOfString, value.KindOfNull)},
		{"alias", named("id", wit.U64{}), value.MaskOf(value.KindOfInt64)},
		{"result", &wit.TypeDef{Kind: &wit.Result{OK: wit.U32{}}}, value.MaskAny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mask(tt.typ); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeclaredLayoutHoldsValues(t *testing.T) {
	f := newFixture(t)
	d, err := f.s.Declare(userType())
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	f.reg.Finalize()
	h, err := heap.New(heap.NewLinear(1, 0), f.strs)
	if err != nil {
		t.Fatalf("heap.New failed: %v", err)
	}
	env := layout.NewEnv(h, f.reg, layout.NopProfiler{})
	idx, _ := layout.IndexOf(d)
	l, ok := f.u.Layout(idx)
	if !ok {
		t.Fatalf("no struct layout at %v", idx)
	}

	arr := structdict.AllocStructDict(h, l)
	key := func(s string) value.TypedValue { return value.String(f.strs.Intern(s)) }

	arr, err = arrays.Set(env, arr, key("id"), value.Int(7))
	if err != nil {
		t.Fatalf("Set(id) failed: %v", err)
	}
	if !h.IsBespoke(arr) {
		t.Fatal("in-bounds set escalated")
	}
	tv, ok, err := arrays.Get(env, arr, key("id"))
	if err != nil || !ok || tv.Int() != 7 {
		t.Fatalf("got %v/%v/%v, want 7", tv.Int(), ok, err)
	}

	arr, err = arrays.Set(env, arr, key("id"), key("seven"))
	if err != nil {
		t.Fatalf("Set(id) failed: %v", err)
	}
	if h.IsBespoke(arr) {
		t.Error("set outside the field type bound did not escalate")
	}
	if tv, ok, _ := arrays.Get(env, arr, key("id")); !ok || f.strs.Content(tv.StringID()) != "seven" {
		t.Errorf("got %v/%v after escalation, want seven", tv, ok)
	}
	if err := arrays.Release(env, arr); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if live := h.Stats().Live; live != 0 {
		t.Errorf("got %d live allocations, want 0", live)
	}
}
