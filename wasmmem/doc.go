// Package wasmmem provides a region store backed by WebAssembly linear memory.
//
// The store instantiates a memory-only module in a wazero runtime and grows
// the exported memory page by page as the region needs room. Records encoded
// into such a region live at stable offsets inside guest memory, so a host
// can hand a guest the offset of a record instead of copying it:
//
//	s, err := wasmmem.New(ctx, &wasmmem.Config{MaxPages: 64})
//	if err != nil {
//		return err
//	}
//	defer s.Close(ctx)
//
//	r := region.NewWithStore(s)
//	if err := codec.Encode(r, &v); err != nil {
//		return err
//	}
//
// Growth past MaxPages fails with errors.KindAllocation and leaves the region
// as it was.
package wasmmem
