package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bytecodealliance.org/wit"
)

func recordOf(t *testing.T, typ wit.Type) (*wit.TypeDef, *wit.Record) {
	t.Helper()
	td, ok := typ.(*wit.TypeDef)
	require.True(t, ok, "expected *wit.TypeDef, got %T", typ)
	rec, ok := td.Kind.(*wit.Record)
	require.True(t, ok, "expected record, got %T", td.Kind)
	return td, rec
}

func kindOf(t *testing.T, typ wit.Type) wit.TypeDefKind {
	t.Helper()
	td, ok := typ.(*wit.TypeDef)
	require.True(t, ok, "expected *wit.TypeDef, got %T", typ)
	return td.Kind
}

func TestSchema_Struct(t *testing.T) {
	td, rec := recordOf(t, MustNew[Log]().Schema())
	require.NotNil(t, td.Name)
	assert.Equal(t, "log", *td.Name)

	names := make([]string, len(rec.Fields))
	for i, f := range rec.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"host", "status", "secure", "tags", "meta", "sizes"}, names)

	assert.Equal(t, wit.String{}, rec.Fields[0].Type)
	assert.Equal(t, wit.S32{}, rec.Fields[1].Type)
	assert.Equal(t, wit.Bool{}, rec.Fields[2].Type)

	list, ok := kindOf(t, rec.Fields[3].Type).(*wit.List)
	require.True(t, ok)
	assert.Equal(t, wit.String{}, list.Type)

	opt, ok := kindOf(t, rec.Fields[4].Type).(*wit.Option)
	require.True(t, ok)
	meta, metaRec := recordOf(t, opt.Type)
	assert.Equal(t, "meta", *meta.Name)
	require.Len(t, metaRec.Fields, 2)
	assert.Equal(t, "weight", metaRec.Fields[1].Name)
	assert.Equal(t, wit.F64{}, metaRec.Fields[1].Type)

	tuple, ok := kindOf(t, rec.Fields[5].Type).(*wit.Tuple)
	require.True(t, ok)
	assert.Equal(t, []wit.Type{wit.U16{}, wit.U16{}, wit.U16{}}, tuple.Types)
}

func TestSchema_Scalars(t *testing.T) {
	tests := []struct {
		name string
		got  wit.Type
		want wit.Type
	}{
		{"int8", MustNew[int8]().Schema(), wit.S8{}},
		{"int", MustNew[int]().Schema(), wit.S64{}},
		{"uint32", MustNew[uint32]().Schema(), wit.U32{}},
		{"float32", MustNew[float32]().Schema(), wit.F32{}},
		{"bool", MustNew[bool]().Schema(), wit.Bool{}},
		{"string", MustNew[string]().Schema(), wit.String{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	tuple, ok := kindOf(t, MustNew[complex128]().Schema()).(*wit.Tuple)
	require.True(t, ok)
	assert.Equal(t, []wit.Type{wit.F64{}, wit.F64{}}, tuple.Types)
}

func TestSchema_Union(t *testing.T) {
	_, rec := recordOf(t, MustNew[Shape]().Schema())
	require.Len(t, rec.Fields, 2)
	assert.Equal(t, "name", rec.Fields[0].Name)
	assert.Equal(t, "active", rec.Fields[1].Name)

	v, ok := kindOf(t, rec.Fields[1].Type).(*wit.Variant)
	require.True(t, ok)
	require.Len(t, v.Cases, 3)
	assert.Equal(t, "case-0", v.Cases[0].Name)
	assert.Nil(t, v.Cases[0].Type)

	assert.Equal(t, "case-1", v.Cases[1].Name)
	_, circle := recordOf(t, v.Cases[1].Type)
	require.Len(t, circle.Fields, 2)
	assert.Equal(t, "radius", circle.Fields[0].Name)
	assert.Equal(t, "label", circle.Fields[1].Name)

	_, poly := recordOf(t, v.Cases[2].Type)
	require.Len(t, poly.Fields, 2)
	assert.Equal(t, "points", poly.Fields[0].Name)
}

func TestSchema_NegativeCase(t *testing.T) {
	_, rec := recordOf(t, MustNew[Signed]().Schema())
	v, ok := kindOf(t, rec.Fields[0].Type).(*wit.Variant)
	require.True(t, ok)
	require.Len(t, v.Cases, 2)
	assert.Equal(t, "case-neg1", v.Cases[0].Name)
	assert.Equal(t, "case-3", v.Cases[1].Name)
}

func TestSchema_SkipOmitted(t *testing.T) {
	type Cached struct {
		Key   uint64
		Cache []byte `region:"-"`
	}
	_, rec := recordOf(t, MustNew[Cached]().Schema())
	require.Len(t, rec.Fields, 1)
	assert.Equal(t, "key", rec.Fields[0].Name)
}

func TestSchema_Recursive(t *testing.T) {
	type Node struct {
		Val  int32
		Next *Node
	}
	td, rec := recordOf(t, MustNew[Node]().Schema())
	opt, ok := kindOf(t, rec.Fields[1].Type).(*wit.Option)
	require.True(t, ok)
	assert.Same(t, td, opt.Type)
}
