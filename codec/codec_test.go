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

type Meta struct {
	Region string
	Weight float64
}

type Log struct {
	Host   string
	Status int32
	Secure bool
	Tags   []string
	Meta   *Meta
	Sizes  [3]uint16
}

func sampleLog() Log {
	return Log{
		Host:   "example.com",
		Status: 200,
		Secure: true,
		Tags:   []string{"edge", "", "cache-hit"},
		Meta:   &Meta{Region: "eu-west", Weight: 0.75},
		Sizes:  [3]uint16{1, 2, 3},
	}
}

func word(b []byte, off int) uintptr {
	return *(*uintptr)(unsafe.Pointer(&b[off]))
}

func putWord(b []byte, off int, v uintptr) {
	*(*uintptr)(unsafe.Pointer(&b[off])) = v
}

func TestRoundTrip(t *testing.T) {
	c := MustNew[Log]()
	r := region.New()

	want := sampleLog()
	require.NoError(t, c.Encode(r, &want))

	got, rest, err := c.Decode(r.Bytes())
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, want, *got)
}

func TestRoundTrip_ZeroValue(t *testing.T) {
	c := MustNew[Log]()
	r := region.New()

	var want Log
	require.NoError(t, c.Encode(r, &want))
	assert.Equal(t, int(unsafe.Sizeof(Log{})), r.Len(), "zero value has no payload")

	got, rest, err := c.Decode(r.Bytes())
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, want, *got)
	assert.Nil(t, got.Tags)
	assert.Nil(t, got.Meta)
}

func TestEncode_DoesNotModifySource(t *testing.T) {
	c := MustNew[Log]()
	r := region.New()

	v := sampleLog()
	hostData := unsafe.StringData(v.Host)
	tagsData := unsafe.SliceData(v.Tags)
	meta := v.Meta

	require.NoError(t, c.Encode(r, &v))
	assert.Equal(t, sampleLog(), v)
	assert.Equal(t, hostData, unsafe.StringData(v.Host))
	assert.Equal(t, tagsData, unsafe.SliceData(v.Tags))
	assert.Same(t, meta, v.Meta)
}

func TestDecode_ViewAliasesBuffer(t *testing.T) {
	c := MustNew[Log]()
	r := region.New()
	v := sampleLog()
	require.NoError(t, c.Encode(r, &v))

	buf := r.Bytes()
	got, _, err := c.Decode(buf)
	require.NoError(t, err)

	start := uintptr(unsafe.Pointer(&buf[0]))
	end := start + uintptr(len(buf))
	inside := func(p unsafe.Pointer) bool {
		a := uintptr(p)
		return a >= start && a < end
	}
	assert.True(t, inside(unsafe.Pointer(got)))
	assert.True(t, inside(unsafe.Pointer(unsafe.StringData(got.Host))))
	assert.True(t, inside(unsafe.Pointer(unsafe.SliceData(got.Tags))))
	assert.True(t, inside(unsafe.Pointer(got.Meta)))
	assert.True(t, inside(unsafe.Pointer(unsafe.StringData(got.Meta.Region))))
}

func TestScenario_ExampleDotCom(t *testing.T) {
	c := MustNew[string]()
	r := region.New()

	s := "example.com"
	require.NoError(t, c.Encode(r, &s))

	buf := r.Bytes()
	require.Equal(t, 16+11, len(buf))
	assert.Equal(t, SlotPresent, word(buf, 0))
	assert.Equal(t, uintptr(11), word(buf, 8))
	assert.Equal(t, "example.com", string(buf[16:]))

	got, rest, err := c.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, "example.com", *got)
	assert.Len(t, rest, 0)
	assert.Equal(t, &buf[16], unsafe.StringData(*got))
}

func TestScenario_Int32Slice(t *testing.T) {
	c := MustNew[[]int32]()
	r := region.New()

	v := []int32{1, 2, 3}
	require.NoError(t, c.Encode(r, &v))

	buf := r.Bytes()
	require.Equal(t, 24+12, len(buf), "head then three element heads, nothing else")
	assert.Equal(t, SlotPresent, word(buf, 0))
	assert.Equal(t, uintptr(3), word(buf, 8))
	assert.Equal(t, uintptr(3), word(buf, 16))

	got, rest, err := c.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, *got)
	assert.Equal(t, 3, cap(*got))
	assert.Empty(t, rest)
}

func TestScenario_StructWrappedString(t *testing.T) {
	type Entry struct{ Host string }
	c := MustNew[Entry]()
	r := region.New()

	v := Entry{Host: "example.com"}
	require.NoError(t, c.Encode(r, &v))

	buf := r.Bytes()
	require.Equal(t, 16+11, len(buf))
	assert.Equal(t, SlotPresent, word(buf, 0))
	assert.Equal(t, uintptr(11), word(buf, 8))
	assert.Equal(t, "example.com", string(buf[16:]))

	got, rest, err := c.Decode(buf)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, v, *got)
}

func TestScenario_StructWrappedSlice(t *testing.T) {
	type Series struct{ N []int64 }
	c := MustNew[Series]()
	r := region.New()

	v := Series{N: []int64{1, 2, 3}}
	require.NoError(t, c.Encode(r, &v))

	buf := r.Bytes()
	require.Equal(t, 24+24, len(buf))
	assert.Equal(t, SlotPresent, word(buf, 0))
	assert.Equal(t, uintptr(3), word(buf, 8))
	assert.Equal(t, uintptr(3), word(buf, 16))
	for i := 0; i < 3; i++ {
		assert.Equal(t, uintptr(i+1), word(buf, 24+8*i), "element %d", i)
	}

	got, rest, err := c.Decode(buf)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, v, *got)
}

func TestHeadDeterminism(t *testing.T) {
	c := MustNew[Log]()
	v := sampleLog()

	r1 := region.New()
	r2 := region.New(region.WithCapacity(4096))
	require.NoError(t, c.Encode(r1, &v))
	require.NoError(t, c.Encode(r2, &v))

	assert.True(t, bytes.Equal(r1.Bytes(), r2.Bytes()))
}

func TestCapacityNormalized(t *testing.T) {
	c := MustNew[[]uint64]()
	r := region.New()

	v := make([]uint64, 2, 16)
	v[0], v[1] = 7, 9
	require.NoError(t, c.Encode(r, &v))

	got, _, err := c.Decode(r.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 9}, *got)
	assert.Equal(t, 2, cap(*got))
}

func TestEmptyVersusNil(t *testing.T) {
	type Holder struct {
		Nil   []string
		Empty []string
		Unit  *struct{}
		None  *struct{}
		Zeros []struct{}
	}
	c := MustNew[Holder]()
	r := region.New()

	v := Holder{Empty: []string{}, Unit: &struct{}{}, Zeros: make([]struct{}, 4)}
	require.NoError(t, c.Encode(r, &v))

	got, _, err := c.Decode(r.Bytes())
	require.NoError(t, err)
	assert.Nil(t, got.Nil)
	assert.NotNil(t, got.Empty)
	assert.Len(t, got.Empty, 0)
	assert.NotNil(t, got.Unit)
	assert.Nil(t, got.None)
	assert.Len(t, got.Zeros, 4)
}

func TestBatchRoundTrip(t *testing.T) {
	c := MustNew[Log]()
	r := region.New()

	logs := []Log{sampleLog(), {Host: "a"}, {Tags: []string{"x"}, Sizes: [3]uint16{9, 9, 9}}}
	require.NoError(t, c.EncodeAll(r, logs))

	got, err := c.DecodeAll(r.Bytes())
	require.NoError(t, err)
	require.Len(t, got, len(logs))
	for i := range logs {
		assert.Equal(t, logs[i], *got[i], "record %d", i)
	}
}

func TestBatch_Iterator(t *testing.T) {
	c := MustNew[Log]()
	r := region.New()
	for i := 0; i < 5; i++ {
		v := Log{Status: int32(i), Host: "h"}
		require.NoError(t, c.Encode(r, &v))
	}

	var statuses []int32
	for v, err := range c.All(r.Bytes()) {
		require.NoError(t, err)
		statuses = append(statuses, v.Status)
	}
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, statuses)
}

func TestBatch_ZeroSizeRecords(t *testing.T) {
	c := MustNew[struct{}]()

	t.Run("non-empty buffer", func(t *testing.T) {
		got, err := c.DecodeAll([]byte{0})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidData)
		assert.Nil(t, got)

		var errs int
		for v, err := range c.All([]byte{0}) {
			assert.Nil(t, v)
			assert.ErrorIs(t, err, errors.ErrInvalidData)
			errs++
		}
		assert.Equal(t, 1, errs)
	})

	t.Run("three records", func(t *testing.T) {
		r := region.New()
		require.NoError(t, c.EncodeAll(r, make([]struct{}, 3)))
		assert.Equal(t, 0, r.Len())

		got, err := c.DecodeAll(r.Bytes())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("zero-length array", func(t *testing.T) {
		ac := MustNew[[0]int64]()
		got, err := ac.DecodeAll(make([]byte, 8))
		assert.ErrorIs(t, err, errors.ErrInvalidData)
		assert.Nil(t, got)
	})
}

func TestBatch_MixedTypes(t *testing.T) {
	small := MustNew[uint8]()
	logs := MustNew[Log]()
	r := region.New()

	b := uint8(42)
	v := sampleLog()
	require.NoError(t, small.Encode(r, &b))
	require.NoError(t, logs.Encode(r, &v))
	require.NoError(t, small.Encode(r, &b))

	gotB, rest, err := small.Decode(r.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint8(42), *gotB)

	gotLog, rest, err := logs.Decode(rest)
	require.NoError(t, err)
	assert.Equal(t, v, *gotLog)

	gotB, rest, err = small.Decode(rest)
	require.NoError(t, err)
	assert.Equal(t, uint8(42), *gotB)
	assert.Empty(t, rest)
}

func TestDecode_ThroughLoad(t *testing.T) {
	c := MustNew[Log]()
	src := region.New()
	v := sampleLog()
	require.NoError(t, c.Encode(src, &v))

	copied := bytes.Clone(src.Bytes())
	dst := region.New()
	require.NoError(t, dst.Load(copied))

	got, _, err := c.Decode(dst.Bytes())
	require.NoError(t, err)
	assert.Equal(t, v, *got)
}

func TestEncodeAll_RollsBackWholeBatch(t *testing.T) {
	type Choice struct {
		Kind uint8  `region:"tag"`
		Text string `region:"case=1"`
	}
	c := MustNew[Choice]()
	r := region.New()

	prefix := Choice{Kind: 1, Text: "kept"}
	require.NoError(t, c.Encode(r, &prefix))
	before := bytes.Clone(r.Bytes())

	err := c.EncodeAll(r, []Choice{{Kind: 1, Text: "a"}, {Kind: 5}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidVariant)
	assert.Equal(t, before, r.Bytes())
}

func TestEncode_AllocationFailureRollsBack(t *testing.T) {
	c := MustNew[string]()
	r := region.New(region.WithStore(region.NewHeapStore(64)))

	small := "hi"
	require.NoError(t, c.Encode(r, &small))
	require.Equal(t, 18, r.Len())

	big := string(bytes.Repeat([]byte{'x'}, 100))
	err := c.Encode(r, &big)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAllocation)
	assert.Equal(t, 18, r.Len(), "no partial record is observable")

	got, rest, err := c.Decode(r.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "hi", *got)
	assert.Empty(t, rest)
}

func TestEncode_NilValue(t *testing.T) {
	c := MustNew[Log]()
	err := c.Encode(region.New(), nil)
	require.Error(t, err)
	kind, ok := errors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindNilPointer, kind)
}

func TestMeasure(t *testing.T) {
	c := MustNew[Log]()
	values := []Log{{}, sampleLog(), {Tags: []string{}}, {Meta: &Meta{}}}
	for i := range values {
		r := region.New()
		require.NoError(t, c.Encode(r, &values[i]))
		n, err := c.Measure(&values[i])
		require.NoError(t, err)
		assert.Equal(t, r.Len(), n, "value %d", i)
	}
}

func TestVerify(t *testing.T) {
	c := MustNew[Log]()
	r := region.New()
	v := sampleLog()
	require.NoError(t, c.Encode(r, &v))
	require.NoError(t, c.Encode(r, &v))

	before := bytes.Clone(r.Bytes())
	n, err := c.Verify(r.Bytes())
	require.NoError(t, err)
	assert.Equal(t, r.Len()/2, n)
	assert.Equal(t, before, r.Bytes(), "verify never writes")
}

func TestPackageHelpers(t *testing.T) {
	r := region.New()
	v := sampleLog()
	require.NoError(t, Encode(r, &v))

	got, rest, err := Decode[Log](r.Bytes())
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, v, *got)
}

func TestRecursiveTypes(t *testing.T) {
	type Node struct {
		Name string
		Kids []Node
		Next *Node
	}
	c := MustNew[Node]()
	r := region.New()

	tree := Node{
		Name: "root",
		Kids: []Node{
			{Name: "a", Kids: []Node{{Name: "a1"}}},
			{Name: "b", Next: &Node{Name: "b-next", Next: &Node{Name: "tail"}}},
		},
	}
	require.NoError(t, c.Encode(r, &tree))

	got, rest, err := c.Decode(r.Bytes())
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, tree, *got)
}

type chain struct {
	V    int64
	Next *chain
}

func makeChain(n int) *chain {
	var head *chain
	for i := n; i > 0; i-- {
		head = &chain{V: int64(i), Next: head}
	}
	return head
}

func TestRecursiveTypes_CyclicValue(t *testing.T) {
	c := MustNew[chain]()
	r := region.New()

	loop := chain{V: 1}
	loop.Next = &loop

	err := c.Encode(r, &loop)
	require.Error(t, err)
	kind, ok := errors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindOverflow, kind)
	assert.Equal(t, 0, r.Len(), "failed record must leave no bytes")

	_, err = c.Measure(&loop)
	kind, _ = errors.KindOf(err)
	assert.Equal(t, errors.KindOverflow, kind)
}

func TestRecursiveTypes_DepthLimit(t *testing.T) {
	c := MustNew[chain]()

	// A chain of n nodes follows n-1 recursive references.
	r := region.New()
	deepest := makeChain(MaxDepth + 1)
	require.NoError(t, c.Encode(r, deepest))
	got, rest, err := c.Decode(r.Bytes())
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, int64(MaxDepth+1), got.tail().V)

	r = region.New()
	err = c.Encode(r, makeChain(MaxDepth+2))
	kind, _ := errors.KindOf(err)
	assert.Equal(t, errors.KindOverflow, kind)
	assert.Equal(t, 0, r.Len())
}

func TestDecode_DepthLimit(t *testing.T) {
	c := MustNew[chain]()

	// Hand-built chain one node past the limit: {V, Next} heads packed back
	// to back, every Next present except the last.
	n := MaxDepth + 2
	r := region.New()
	_, err := r.AppendZero(16 * n)
	require.NoError(t, err)
	buf := r.Bytes()
	for i := 0; i < n; i++ {
		putWord(buf, 16*i, uintptr(i+1))
		if i < n-1 {
			putWord(buf, 16*i+8, SlotPresent)
		}
	}
	orig := bytes.Clone(buf)

	_, _, err = c.Decode(buf)
	require.Error(t, err)
	kind, _ := errors.KindOf(err)
	assert.Equal(t, errors.KindOverflow, kind)
	assert.Equal(t, orig, buf, "rejected buffer must not be patched")
}

func (n *chain) tail() *chain {
	for n.Next != nil {
		n = n.Next
	}
	return n
}

func TestSkipFields(t *testing.T) {
	type Cached struct {
		ID    uint64
		Index map[string]int `region:"-"`
		Hook  func()         `region:"-"`
		Any   any            `region:"-"`
		Name  string
	}
	c := MustNew[Cached]()
	r := region.New()

	v := Cached{ID: 7, Index: map[string]int{"a": 1}, Hook: func() {}, Any: 3, Name: "n"}
	require.NoError(t, c.Encode(r, &v))

	got, _, err := c.Decode(r.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.ID)
	assert.Equal(t, "n", got.Name)
	assert.Nil(t, got.Index)
	assert.Nil(t, got.Hook)
	assert.Nil(t, got.Any)
	assert.NotNil(t, v.Index, "source is untouched")
}

func TestUnexportedFields(t *testing.T) {
	type inner struct {
		name  string
		items []int64
	}
	c := MustNew[inner]()
	r := region.New()

	v := inner{name: "hidden", items: []int64{4, 5}}
	require.NoError(t, c.Encode(r, &v))
	got, _, err := c.Decode(r.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "hidden", got.name)
	assert.Equal(t, []int64{4, 5}, got.items)
}

func TestDecode_ZeroAlloc(t *testing.T) {
	c := MustNew[Log]()
	src := region.New()
	v := sampleLog()
	require.NoError(t, c.Encode(src, &v))
	encoded := bytes.Clone(src.Bytes())

	r := region.New(region.WithCapacity(len(encoded)))
	allocs := testing.AllocsPerRun(100, func() {
		_ = r.Load(encoded)
		if _, _, err := c.Decode(r.Bytes()); err != nil {
			t.Fatal(err)
		}
	})
	assert.Zero(t, allocs)
}

func TestEncode_ZeroAllocAfterWarmup(t *testing.T) {
	c := MustNew[Log]()
	r := region.New(region.WithCapacity(1 << 12))
	v := sampleLog()

	allocs := testing.AllocsPerRun(100, func() {
		r.Reset()
		if err := c.Encode(r, &v); err != nil {
			t.Fatal(err)
		}
	})
	assert.Zero(t, allocs)
}
