package codec

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wippyai/region-codec/errors"
	"github.com/wippyai/region-codec/region"
)

type Point struct{ X, Y float64 }

type Shape struct {
	Kind   uint8 `region:"tag=0"`
	Name   string
	Radius float64 `region:"case=1"`
	Points []Point `region:"case=2"`
	Label  string  `region:"case=1|2"`
}

type Signed struct {
	Op  int16  `region:"tag"`
	Arg string `region:"case=-1"`
	Val int64  `region:"case=3"`
}

func TestUnion_RoundTrip(t *testing.T) {
	c := MustNew[Shape]()

	tests := []struct {
		name string
		in   Shape
		want Shape
	}{
		{
			name: "circle",
			in:   Shape{Kind: 1, Name: "c", Radius: 2.5, Label: "round", Points: []Point{{1, 1}}},
			want: Shape{Kind: 1, Name: "c", Radius: 2.5, Label: "round"},
		},
		{
			name: "polygon",
			in:   Shape{Kind: 2, Name: "p", Radius: 9, Points: []Point{{0, 0}, {1, 0}, {0, 1}}, Label: "tri"},
			want: Shape{Kind: 2, Name: "p", Points: []Point{{0, 0}, {1, 0}, {0, 1}}, Label: "tri"},
		},
		{
			name: "empty case",
			in:   Shape{Kind: 0, Name: "none", Radius: 1, Label: "dropped"},
			want: Shape{Kind: 0, Name: "none"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := region.New()
			require.NoError(t, c.Encode(r, &tt.in))

			n, err := c.Measure(&tt.in)
			require.NoError(t, err)
			assert.Equal(t, r.Len(), n)

			got, rest, err := c.Decode(r.Bytes())
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestUnion_InactiveFieldsZeroedInRegion(t *testing.T) {
	c := MustNew[Shape]()
	r := region.New()

	in := Shape{Kind: 1, Radius: 3, Points: []Point{{5, 5}}}
	require.NoError(t, c.Encode(r, &in))

	off := int(unsafe.Offsetof(Shape{}.Points))
	head := r.Bytes()[off : off+int(unsafe.Sizeof([]Point{}))]
	assert.Equal(t, make([]byte, len(head)), head)
	assert.Equal(t, int(unsafe.Sizeof(Shape{})), r.Len(), "inactive payload is not written")
}

func TestUnion_UnknownDiscriminantOnEncode(t *testing.T) {
	c := MustNew[Shape]()
	r := region.New()
	require.NoError(t, c.Encode(r, &Shape{Kind: 1}))
	before := bytes.Clone(r.Bytes())

	err := c.Encode(r, &Shape{Kind: 9, Name: "bad"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidVariant)
	assert.Equal(t, before, r.Bytes())

	_, err = c.Measure(&Shape{Kind: 9})
	assert.ErrorIs(t, err, errors.ErrInvalidVariant)
}

func TestUnion_UnknownDiscriminantOnDecode(t *testing.T) {
	c := MustNew[Shape]()
	r := region.New()
	require.NoError(t, c.Encode(r, &Shape{Kind: 2, Points: []Point{{1, 2}}}))

	buf := r.Bytes()
	buf[unsafe.Offsetof(Shape{}.Kind)] = 7
	snapshot := bytes.Clone(buf)

	_, _, err := c.Decode(buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidVariant)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, uint64(7), e.Value)
	assert.Equal(t, snapshot, buf)
}

func TestUnion_DecodeClearsInactiveBytes(t *testing.T) {
	c := MustNew[Shape]()
	r := region.New()
	require.NoError(t, c.Encode(r, &Shape{Kind: 1, Radius: 1}))

	// Garbage in an inactive reference field must not survive into the view.
	buf := r.Bytes()
	putWord(buf, int(unsafe.Offsetof(Shape{}.Points)), 0xbad)

	got, _, err := c.Decode(buf)
	require.NoError(t, err)
	assert.Nil(t, got.Points)
}

func TestUnion_SignedDiscriminant(t *testing.T) {
	c := MustNew[Signed]()
	r := region.New()

	in := []Signed{{Op: -1, Arg: "neg"}, {Op: 3, Val: 42, Arg: "ignored"}}
	require.NoError(t, c.EncodeAll(r, in))

	got, err := c.DecodeAll(r.Bytes())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Signed{Op: -1, Arg: "neg"}, *got[0])
	assert.Equal(t, Signed{Op: 3, Val: 42}, *got[1])

	err = c.Encode(r, &Signed{Op: 2})
	assert.ErrorIs(t, err, errors.ErrInvalidVariant)
}

func TestUnion_Capability(t *testing.T) {
	c := MustNew[Shape]()
	u, ok := c.Capability().(*unionCap)
	require.True(t, ok)
	assert.Equal(t, KindUnion, u.Kind())
	assert.ElementsMatch(t, []uint64{0, 1, 2}, u.cases)
	assert.False(t, u.Pure())
}

func TestUnion_InsideSlice(t *testing.T) {
	type Drawing struct {
		Title  string
		Shapes []Shape
	}
	c := MustNew[Drawing]()
	r := region.New()

	in := Drawing{
		Title: "d",
		Shapes: []Shape{
			{Kind: 1, Radius: 1, Label: "a"},
			{Kind: 2, Points: []Point{{3, 4}}},
		},
	}
	require.NoError(t, c.Encode(r, &in))

	got, _, err := c.Decode(r.Bytes())
	require.NoError(t, err)
	assert.Equal(t, in, *got)
}
