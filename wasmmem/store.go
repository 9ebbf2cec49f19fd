package wasmmem

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	regioncodec "github.com/wippyai/region-codec"
	"github.com/wippyai/region-codec/errors"
	"go.uber.org/zap"
)

// PageSize is the size of one linear memory page.
const PageSize = 65536

// MaxPages bounds Config.MaxPages so the memory size fits wazero's uint32 size.
const MaxPages = 32768

const (
	defaultMaxPages = 256
	exportName      = "memory"
)

// Config holds configuration for store creation
type Config struct {
	// InitialPages is the number of pages available before the first Grow.
	InitialPages uint32

	// MaxPages caps the memory in pages (64KB each). 0 means 256 pages (16MB).
	MaxPages uint32

	// Preallocate reserves MaxPages up front so the memory never moves on
	// growth and views stay valid until Release.
	Preallocate bool

	// Logger receives growth diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Store is a regioncodec.Store backed by the exported memory of a wazero
// module instance. It is not safe for concurrent use.
type Store struct {
	runtime  wazero.Runtime
	module   api.Module
	mem      api.Memory
	log      *zap.Logger
	maxPages uint32
	closed   bool
}

// New instantiates a memory-only module and returns a store over its memory.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.MaxPages == 0 {
		c.MaxPages = defaultMaxPages
	}
	if c.MaxPages > MaxPages {
		return nil, errors.Overflow(errors.PhaseStore, nil, c.MaxPages, MaxPages)
	}
	if c.InitialPages > c.MaxPages {
		return nil, errors.New(errors.PhaseStore, errors.KindOverflow).
			Detail("initial pages %d exceed max pages %d", c.InitialPages, c.MaxPages).
			Build()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(c.MaxPages)
	if c.Preallocate {
		runtimeCfg = runtimeCfg.WithMemoryCapacityFromMax(true)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	mod, err := rt.Instantiate(ctx, memoryModule(exportName, c.InitialPages, c.MaxPages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseStore, errors.KindAllocation, err, "instantiate memory module")
	}
	mem := mod.ExportedMemory(exportName)
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, errors.New(errors.PhaseStore, errors.KindAllocation).
			Detail("module exports no %q memory", exportName).
			Build()
	}

	return &Store{
		runtime:  rt,
		module:   mod,
		mem:      mem,
		log:      c.Logger,
		maxPages: c.MaxPages,
	}, nil
}

// Memory returns the underlying linear memory. Offsets into a region backed
// by this store are offsets into this memory.
func (s *Store) Memory() api.Memory { return s.mem }

// Pages returns the current memory size in pages.
func (s *Store) Pages() uint32 {
	if s.closed {
		return 0
	}
	return s.mem.Size() / PageSize
}

// Bytes implements regioncodec.Store.
func (s *Store) Bytes() []byte {
	if s.closed {
		return nil
	}
	size := s.mem.Size()
	if size == 0 {
		return nil
	}
	buf, ok := s.mem.Read(0, size)
	if !ok {
		return nil
	}
	return buf
}

// Grow implements regioncodec.Store. Capacity is rounded up to whole pages.
func (s *Store) Grow(n int) ([]byte, error) {
	if s.closed {
		return nil, errors.New(errors.PhaseStore, errors.KindAllocation).
			Detail("store released").
			Build()
	}
	if n <= int(s.mem.Size()) {
		return s.Bytes(), nil
	}
	if n > s.Limit() {
		return nil, errors.AllocationFailed(errors.PhaseStore, n,
			errors.Overflow(errors.PhaseStore, nil, n, s.Limit()))
	}

	need := uint32((n + PageSize - 1) / PageSize)
	have := s.Pages()
	if _, ok := s.mem.Grow(need - have); !ok {
		return nil, errors.AllocationFailed(errors.PhaseStore, n,
			fmt.Errorf("memory.grow by %d pages failed", need-have))
	}
	s.log.Debug("linear memory grew",
		zap.Uint32("from_pages", have),
		zap.Uint32("to_pages", need))
	return s.Bytes(), nil
}

// Limit implements regioncodec.StoreSizer.
func (s *Store) Limit() int { return int(s.maxPages) * PageSize }

// Release implements regioncodec.Releaser.
func (s *Store) Release() error {
	return s.Close(context.Background())
}

// Close tears down the module instance and its runtime. It is idempotent.
func (s *Store) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.module.Close(ctx); err != nil {
		_ = s.runtime.Close(ctx)
		return err
	}
	return s.runtime.Close(ctx)
}

var (
	_ regioncodec.Store      = (*Store)(nil)
	_ regioncodec.StoreSizer = (*Store)(nil)
	_ regioncodec.Releaser   = (*Store)(nil)
)
