// Package endian swaps the byte order of buffer elements on a compute device.
//
// The demo flow mirrors what a caller does with any module:
//
//	ctx, _ := compute.OpenContext("host", 0)
//	buf, _ := compute.NewBuffer(4, len(words))
//	host, _ := buf.Map(ctx, compute.MapHostTarget)
//	_ = endian.PutWords32(host, words)
//	mod, _ := endian.NewSwapModule(buf)
//	_ = mod.Launch(ctx)
//	host, _ = buf.Map(ctx, compute.MapHostSource)
//	swapped := endian.Words32(host)
package endian
