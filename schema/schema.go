package schema

import (
	"fmt"
	"io"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/monotype"
	"github.com/wippyai/bespoke-runtime/structdict"
	"github.com/wippyai/bespoke-runtime/value"
)

// Schema maps WIT types onto the layouts of one registry. Repeated
// declarations of the same type definition return the same layout.
type Schema struct {
	u         *structdict.Universe
	mono      *monotype.Layouts
	declared  map[*wit.TypeDef]layout.Descriptor
	anonymous int
}

// New creates a schema declaring struct layouts in u and using mono for
// lists.
func New(u *structdict.Universe, mono *monotype.Layouts) *Schema {
	return &Schema{
		u:        u,
		mono:     mono,
		declared: make(map[*wit.TypeDef]layout.Descriptor),
	}
}

// Declare returns the layout for t, creating it on first use.
func (s *Schema) Declare(t wit.Type) (layout.Descriptor, error) {
	return s.declare(t, nil)
}

func (s *Schema) declare(t wit.Type, path []string) (layout.Descriptor, error) {
	td, ok := t.(*wit.TypeDef)
	if !ok {
		return nil, unsupported(path, t)
	}
	if d, ok := s.declared[td]; ok {
		return d, nil
	}

	var (
		d   layout.Descriptor
		err error
	)
	switch k := td.Kind.(type) {
	case *wit.Record:
		d, err = s.record(s.name(td), k, path)
	case *wit.List:
		if s.mono == nil {
			return nil, errors.NotInitialized(errors.PhaseSchema, "monotype layouts")
		}
		d = s.mono.Vec
	case *wit.Option:
		return s.declare(k.Type, append(path, "option"))
	case *wit.Variant:
		d, err = s.variant(s.name(td), k, path)
	case wit.Type:
		return s.declare(k, path)
	default:
		return nil, unsupported(path, td.Kind)
	}
	if err != nil {
		return nil, err
	}
	s.declared[td] = d
	return d, nil
}

func (s *Schema) name(td *wit.TypeDef) string {
	if td.Name != nil && *td.Name != "" {
		return *td.Name
	}
	s.anonymous++
	return fmt.Sprintf("record%d", s.anonymous)
}

func (s *Schema) record(name string, r *wit.Record, path []string) (*layout.Concrete, error) {
	fields := make([]structdict.FieldSpec, len(r.Fields))
	for i, f := range r.Fields {
		typ, required := f.Type, true
		if opt, ok := optionOf(typ); ok {
			typ, required = opt.Type, false
		}
		fields[i] = structdict.FieldSpec{
			Name:     f.Name,
			Required: required,
			Types:    Mask(typ),
		}
	}
	l, err := s.u.NewLayout(name, fields)
	if err != nil {
		return nil, errors.New(errors.PhaseSchema, errors.KindInvalidLayout).
			Path(append(path, name)...).
			Cause(err).
			Detail("declare record").
			Build()
	}
	return l.Descriptor(), nil
}

// variant declares an abstract layout over the records of its cases.
func (s *Schema) variant(name string, v *wit.Variant, path []string) (*layout.Abstract, error) {
	children := make([]*structdict.Layout, 0, len(v.Cases))
	for _, c := range v.Cases {
		casePath := append(append([]string{}, path...), name, c.Name)
		if c.Type == nil {
			return nil, errors.New(errors.PhaseSchema, errors.KindUnsupported).
				Path(casePath...).
				Detail("variant case without a record payload").
				Build()
		}
		d, err := s.declare(c.Type, casePath)
		if err != nil {
			return nil, err
		}
		cd, ok := d.(*layout.Concrete)
		if !ok {
			return nil, unsupported(casePath, c.Type)
		}
		l, ok := s.u.Layout(cd.Index)
		if !ok {
			return nil, unsupported(casePath, c.Type)
		}
		children = append(children, l)
	}
	return s.u.NewAbstract(name, children...)
}

func recordVariant(v *wit.Variant) bool {
	for _, c := range v.Cases {
		td, ok := c.Type.(*wit.TypeDef)
		if !ok {
			return false
		}
		if _, ok := td.Kind.(*wit.Record); !ok {
			return false
		}
	}
	return len(v.Cases) > 0
}

func optionOf(t wit.Type) (*wit.Option, bool) {
	td, ok := t.(*wit.TypeDef)
	if !ok {
		return nil, false
	}
	opt, ok := td.Kind.(*wit.Option)
	return opt, ok
}

// Mask returns the type bound of a field holding WIT type t.
func Mask(t wit.Type) value.TypeMask {
	switch t := t.(type) {
	case wit.Bool:
		return value.MaskOf(value.KindOfBool)
	case wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.U64, wit.S64, wit.Char:
		return value.MaskOf(value.KindOfInt64)
	case wit.F32, wit.F64:
		return value.MaskOf(value.KindOfDouble)
	case wit.String:
		return value.MaskOf(value.KindOfString)
	case *wit.TypeDef:
		switch k := t.Kind.(type) {
		case *wit.Record:
			return value.MaskOf(value.KindOfDict)
		case *wit.List, *wit.Tuple:
			return value.MaskOf(value.KindOfVec)
		case *wit.Enum, *wit.Flags, *wit.Own, *wit.Borrow:
			return value.MaskOf(value.KindOfInt64)
		case *wit.Option:
			return Mask(k.Type) | value.MaskOf(value.KindOfNull)
		case wit.Type:
			return Mask(k)
		}
	}
	return value.MaskAny
}

// DeclareAll declares every record of a resolved WIT package set, and every
// variant whose cases all carry records, in definition order.
func (s *Schema) DeclareAll(r *wit.Resolve) ([]layout.Descriptor, error) {
	var out []layout.Descriptor
	for _, td := range r.TypeDefs {
		switch k := td.Kind.(type) {
		case *wit.Record:
		case *wit.Variant:
			if !recordVariant(k) {
				continue
			}
		default:
			continue
		}
		d, err := s.Declare(td)
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
	return out, nil
}

// DecodeJSON reads the JSON form of a resolved WIT package set, as printed
// by wasm-tools component wit --json.
func DecodeJSON(r io.Reader) (*wit.Resolve, error) {
	res, err := wit.DecodeJSON(r)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindInvalidInput, err, "decode WIT JSON")
	}
	return res, nil
}

func unsupported(path []string, t any) error {
	return errors.New(errors.PhaseSchema, errors.KindUnsupported).
		Path(path...).
		Detail("no layout for WIT type %T", t).
		Build()
}
