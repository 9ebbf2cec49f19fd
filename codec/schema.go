package codec

import (
	"reflect"
	"strconv"

	"github.com/wippyai/region-codec/codec/internal/abi"
	"go.bytecodealliance.org/wit"
)

// Schema describes a capability tree as WIT types. Structs become records,
// slices lists, pointers options, arrays tuples and unions a record whose
// "active" field is a variant over the declared discriminants. Skipped fields
// and discriminant fields are omitted.
func Schema(c Capability) wit.Type {
	b := schemaBuilder{seen: make(map[Capability]*wit.TypeDef)}
	return b.build(c)
}

type schemaBuilder struct {
	seen map[Capability]*wit.TypeDef
}

func (b *schemaBuilder) build(c Capability) wit.Type {
	c = resolve(c)
	switch cc := c.(type) {
	case *boolCap:
		return wit.Bool{}
	case *scalarCap:
		return scalarSchema(cc.typ.Kind())
	case *stringCap:
		return wit.String{}
	}

	if td, ok := b.seen[c]; ok {
		return td
	}
	td := &wit.TypeDef{}
	if name := c.Type().Name(); name != "" {
		kebab := toKebabCase(name)
		td.Name = &kebab
	}
	b.seen[c] = td

	switch cc := c.(type) {
	case *sliceCap:
		td.Kind = &wit.List{Type: b.build(cc.elem)}
	case *pointerCap:
		td.Kind = &wit.Option{Type: b.build(cc.elem)}
	case *arrayCap:
		elem := b.build(cc.elem)
		types := make([]wit.Type, cc.n)
		for i := range types {
			types[i] = elem
		}
		td.Kind = &wit.Tuple{Types: types}
	case *unionCap:
		rec := b.record(cc.fields, func(f *Field) bool { return f.Cases == nil })
		cases := make([]wit.Case, 0, len(cc.cases))
		for _, disc := range cc.cases {
			active := b.record(cc.fields, func(f *Field) bool {
				return f.Cases != nil && f.activeFor(disc)
			})
			wc := wit.Case{Name: "case-" + discName(disc, cc.tagKind)}
			if len(active.Fields) > 0 {
				wc.Type = &wit.TypeDef{Kind: active}
			}
			cases = append(cases, wc)
		}
		rec.Fields = append(rec.Fields, wit.Field{
			Name: "active",
			Type: &wit.TypeDef{Kind: &wit.Variant{Cases: cases}},
		})
		td.Kind = rec
	case *structCap:
		td.Kind = b.record(cc.fields, func(*Field) bool { return true })
	}
	return td
}

func (b *schemaBuilder) record(fields []Field, include func(*Field) bool) *wit.Record {
	rec := &wit.Record{}
	for i := range fields {
		f := &fields[i]
		if f.Tag || f.Cap.Kind() == KindSkip || !include(f) {
			continue
		}
		rec.Fields = append(rec.Fields, wit.Field{
			Name: toKebabCase(f.Name),
			Type: b.build(f.Cap),
		})
	}
	return rec
}

func discName(disc uint64, kind reflect.Kind) string {
	if disc>>63 == 1 && abi.IsSigned(kind) {
		return "neg" + strconv.FormatInt(-int64(disc), 10)
	}
	return strconv.FormatUint(disc, 10)
}

func scalarSchema(k reflect.Kind) wit.Type {
	switch k {
	case reflect.Int8:
		return wit.S8{}
	case reflect.Int16:
		return wit.S16{}
	case reflect.Int32:
		return wit.S32{}
	case reflect.Int, reflect.Int64:
		return wit.S64{}
	case reflect.Uint8:
		return wit.U8{}
	case reflect.Uint16:
		return wit.U16{}
	case reflect.Uint32:
		return wit.U32{}
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return wit.U64{}
	case reflect.Float32:
		return wit.F32{}
	case reflect.Float64:
		return wit.F64{}
	case reflect.Complex64:
		return &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.F32{}, wit.F32{}}}}
	case reflect.Complex128:
		return &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.F64{}, wit.F64{}}}}
	}
	return wit.U64{}
}
