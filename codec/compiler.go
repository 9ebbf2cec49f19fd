package codec

import (
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/wippyai/region-codec/codec/internal/abi"
	"github.com/wippyai/region-codec/errors"
)

// TagName is the struct tag key read by the compiler.
//
//	region:"-"          field is not encoded; its bytes are cleared
//	region:"tag"        union discriminant (integer field)
//	region:"tag=0|4"    discriminant with extra declared values that carry no fields
//	region:"case=1|2"   field is active only when the discriminant is 1 or 2
const TagName = "region"

// Compiler builds and caches capabilities per Go type. It is safe for
// concurrent use.
type Compiler struct {
	cache sync.Map // reflect.Type -> Capability
}

func NewCompiler() *Compiler {
	return &Compiler{}
}

type compileState struct {
	pending map[reflect.Type]*deferredCap
	built   map[reflect.Type]Capability
}

// Compile returns the capability for goType.
func (c *Compiler) Compile(goType reflect.Type) (Capability, error) {
	if goType == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindNilPointer).
			Detail("Go type cannot be nil").
			Build()
	}

	if cached, ok := c.cache.Load(goType); ok {
		return cached.(Capability), nil
	}

	st := &compileState{
		pending: make(map[reflect.Type]*deferredCap),
		built:   make(map[reflect.Type]Capability),
	}
	capability, err := c.compile(st, goType, nil)
	if err != nil {
		return nil, err
	}

	// Publish only complete trees so no cached capability holds an
	// unresolved deferred edge.
	for t, built := range st.built {
		c.cache.LoadOrStore(t, built)
	}
	actual, _ := c.cache.LoadOrStore(goType, capability)
	return actual.(Capability), nil
}

func (c *Compiler) compile(st *compileState, t reflect.Type, path []string) (Capability, error) {
	if cached, ok := c.cache.Load(t); ok {
		return cached.(Capability), nil
	}
	if built, ok := st.built[t]; ok {
		return built, nil
	}
	if d, ok := st.pending[t]; ok {
		return d, nil
	}

	d := &deferredCap{head: headOf(t)}
	st.pending[t] = d

	capability, err := c.build(st, t, path)
	delete(st.pending, t)
	if err != nil {
		return nil, err
	}
	d.target = capability
	st.built[t] = capability
	return capability, nil
}

func (c *Compiler) build(st *compileState, t reflect.Type, path []string) (Capability, error) {
	switch t.Kind() {
	case reflect.Bool:
		return &boolCap{head: headOf(t)}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return &scalarCap{head: headOf(t)}, nil

	case reflect.String:
		return &stringCap{head: headOf(t)}, nil

	case reflect.Slice:
		elem, err := c.compile(st, t.Elem(), appendPath(path, "[elem]"))
		if err != nil {
			return nil, err
		}
		return &sliceCap{head: headOf(t), elem: elem}, nil

	case reflect.Array:
		elem, err := c.compile(st, t.Elem(), appendPath(path, "[elem]"))
		if err != nil {
			return nil, err
		}
		return &arrayCap{head: headOf(t), elem: elem, n: t.Len()}, nil

	case reflect.Pointer:
		elem, err := c.compile(st, t.Elem(), appendPath(path, "*"))
		if err != nil {
			return nil, err
		}
		return &pointerCap{head: headOf(t), elem: elem}, nil

	case reflect.Struct:
		return c.compileStruct(st, t, path)

	case reflect.Map:
		return nil, errors.Unsupported(errors.PhaseCompile, path, t.String(), "maps have no flat layout; tag the field region:\"-\"")
	case reflect.Interface:
		return nil, errors.Unsupported(errors.PhaseCompile, path, t.String(), "interfaces have no static layout; tag the field region:\"-\"")
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return nil, errors.Unsupported(errors.PhaseCompile, path, t.String(), t.Kind().String()+" cannot be placed in a region")
	default:
		return nil, errors.Unsupported(errors.PhaseCompile, path, t.String(), "unsupported kind "+t.Kind().String())
	}
}

func (c *Compiler) compileStruct(st *compileState, t reflect.Type, path []string) (Capability, error) {
	fields := make([]Field, 0, t.NumField())
	pure := true
	needWalk := false

	tagIndex := -1
	var declared []uint64
	hasCases := false

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fieldPath := appendPath(path, sf.Name)
		tag := parseTag(sf.Tag.Get(TagName))

		f := Field{
			Name:   sf.Name,
			Offset: sf.Offset,
		}

		switch {
		case tag.skip:
			f.Cap = &skipCap{head: headOf(sf.Type)}
		case tag.tag:
			if tagIndex >= 0 {
				return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
					Path(fieldPath...).
					GoType(t.String()).
					Detail("union has more than one discriminant field").
					Build()
			}
			if !abi.IsInteger(sf.Type.Kind()) {
				return nil, errors.Unsupported(errors.PhaseCompile, fieldPath, sf.Type.String(), "discriminant must be an integer")
			}
			if tag.cases != "" {
				vals, err := parseCases(tag.cases, sf.Type.Kind(), fieldPath)
				if err != nil {
					return nil, err
				}
				declared = appendUnique(declared, vals...)
			}
			tagIndex = i
			f.Tag = true
			f.Cap = &scalarCap{head: headOf(sf.Type)}
		default:
			fc, err := c.compile(st, sf.Type, fieldPath)
			if err != nil {
				return nil, err
			}
			f.Cap = fc
		}

		if tag.cases != "" && !tag.tag {
			// Case values are parsed once the discriminant kind is known.
			hasCases = true
		}

		if !f.Cap.Pure() {
			pure = false
		}
		if f.Cap.checked() {
			needWalk = true
		}
		fields = append(fields, f)
	}

	if hasCases && tagIndex < 0 {
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			GoType(t.String()).
			Detail("case fields require a region:\"tag\" discriminant").
			Build()
	}

	sc := structCap{
		head:     headOf(t),
		fields:   fields,
		pure:     pure,
		needWalk: needWalk,
	}
	if tagIndex < 0 {
		return &sc, nil
	}

	tagField := t.Field(tagIndex)
	for i := range sc.fields {
		raw := parseTag(t.Field(i).Tag.Get(TagName))
		if raw.tag || raw.cases == "" {
			continue
		}
		vals, err := parseCases(raw.cases, tagField.Type.Kind(), appendPath(path, sc.fields[i].Name))
		if err != nil {
			return nil, err
		}
		sc.fields[i].Cases = vals
		declared = appendUnique(declared, vals...)
	}
	if len(declared) == 0 {
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			GoType(t.String()).
			Detail("union declares no cases").
			Build()
	}
	// Inactive fields are cleared, so a union always has work to do.
	sc.pure = false

	return &unionCap{
		structCap: sc,
		tagKind:   tagField.Type.Kind(),
		tagOffset: tagField.Offset,
		cases:     declared,
	}, nil
}

type fieldTag struct {
	cases string
	skip  bool
	tag   bool
}

func parseTag(s string) fieldTag {
	var ft fieldTag
	if s == "" {
		return ft
	}
	if s == "-" {
		ft.skip = true
		return ft
	}
	for _, part := range strings.Split(s, ",") {
		key, val, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch key {
		case "tag":
			ft.tag = true
			ft.cases = val
		case "case":
			ft.cases = val
		}
	}
	return ft
}

func parseCases(s string, kind reflect.Kind, path []string) ([]uint64, error) {
	parts := strings.Split(s, "|")
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		var v uint64
		var err error
		if abi.IsSigned(kind) {
			var n int64
			n, err = strconv.ParseInt(p, 0, 64)
			v = uint64(n)
		} else {
			v, err = strconv.ParseUint(p, 0, 64)
		}
		if err != nil {
			return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
				Path(path...).
				Cause(err).
				Detail("invalid case value %q", p).
				Build()
		}
		out = append(out, v)
	}
	return out, nil
}

func appendUnique(dst []uint64, vals ...uint64) []uint64 {
	for _, v := range vals {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

func appendPath(path []string, seg string) []string {
	return append(append(make([]string, 0, len(path)+1), path...), seg)
}

func toKebabCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				result.WriteByte('-')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
