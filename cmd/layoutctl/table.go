package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wippyai/bespoke-runtime/dispatch"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/runtime"
	"github.com/wippyai/bespoke-runtime/structdict"
	"github.com/wippyai/bespoke-runtime/value"
)

// targetRow is one resolved (op, key) pair of a dispatch table.
type targetRow struct {
	op     string
	symbol string
	source dispatch.Source
	sync   dispatch.Sync
}

// layoutRow describes one registered layout.
type layoutRow struct {
	index  layout.Index
	name   string
	class  string
	kinds  string
	detail string
}

// dispatchTable resolves every op of typ. Keyed ops appear once per key
// kind; Elem appears in its quiet and throwing forms.
func dispatchTable(d *dispatch.Dispatcher, typ dispatch.Type) []targetRow {
	var rows []targetRow
	for op := layout.Op(0); op < layout.NumOps; op++ {
		sync := d.SyncFor(typ, op)
		if !op.Keyed() {
			t := d.Target(typ, op, layout.KeyNone)
			rows = append(rows, targetRow{op: op.String(), symbol: t.Symbol, source: t.Source, sync: sync})
			continue
		}
		for _, key := range []layout.KeyKind{layout.KeyInt, layout.KeyStr} {
			if op == layout.OpElem {
				for _, throw := range []bool{false, true} {
					t := d.Elem(typ, key, throw)
					name := op.Symbol(key) + "Quiet"
					if throw {
						name = op.Symbol(key) + "Throw"
					}
					rows = append(rows, targetRow{op: name, symbol: t.Symbol, source: t.Source, sync: sync})
				}
				continue
			}
			t := d.Target(typ, op, key)
			rows = append(rows, targetRow{op: op.Symbol(key), symbol: t.Symbol, source: t.Source, sync: sync})
		}
	}
	return rows
}

// layoutRows lists the registry in index order.
func layoutRows(rt *runtime.Runtime) []layoutRow {
	var rows []layoutRow
	for _, d := range rt.Registry().All() {
		idx, _ := layout.IndexOf(d)
		r := layoutRow{index: idx, name: d.LayoutName(), kinds: d.Kinds().String()}
		switch d := d.(type) {
		case *layout.Concrete:
			r.class = "concrete"
			if l, ok := rt.Structs().Layout(d.Index); ok {
				r.detail = structDetail(l)
			}
		case *layout.Abstract:
			r.class = "abstract"
			if d.Index == layout.TopIndex {
				r.detail = "covers every specialized layout"
				break
			}
			names := make([]string, 0, len(d.Children))
			for _, c := range d.Children {
				if cd, ok := rt.Registry().Get(c); ok {
					names = append(names, cd.LayoutName())
				}
			}
			r.detail = "covers " + strings.Join(names, ", ")
		case *layout.Logging:
			r.class = "logging"
			r.detail = fmt.Sprintf("sample rate %d", rt.Sink().SampleRate())
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].index < rows[j].index })
	return rows
}

func structDetail(l *structdict.Layout) string {
	fields := make([]string, 0, l.NumFields())
	for _, f := range l.Fields() {
		s := f.Name.String()
		if !f.Required {
			s += "?"
		}
		if f.TypeMask != value.MaskAny {
			s += ": " + f.TypeMask.String()
		}
		fields = append(fields, s)
	}
	perfect := ""
	if l.Perfect() {
		perfect = " (perfect hash)"
	}
	return "{" + strings.Join(fields, ", ") + "}" + perfect
}

// declareDemo declares a small set of struct layouts used when no WIT
// schema is given.
func declareDemo(rt *runtime.Runtime) error {
	user, err := rt.DeclareStruct("User",
		structdict.FieldSpec{Name: "id", Required: true, Types: value.MaskOf(value.KindOfInt64)},
		structdict.FieldSpec{Name: "name", Types: value.MaskOf(value.KindOfString)},
		structdict.FieldSpec{Name: "email", Types: value.MaskOf(value.KindOfString, value.KindOfNull)})
	if err != nil {
		return err
	}
	order, err := rt.DeclareStruct("Order",
		structdict.FieldSpec{Name: "id", Required: true, Types: value.MaskOf(value.KindOfInt64)},
		structdict.FieldSpec{Name: "items", Types: value.MaskOf(value.KindOfVec)},
		structdict.FieldSpec{Name: "total", Types: value.MaskOf(value.KindOfDouble)})
	if err != nil {
		return err
	}
	_, err = rt.DeclareAbstract("Record", user, order)
	return err
}
