package endian

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"golang.org/x/sys/cpu"
)

// HostOrder returns the byte order of the machine the program runs on. Words
// written into a mapped buffer with it have the layout native code would see.
func HostOrder() binary.ByteOrder {
	if cpu.IsBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// PutWords32 writes words into dst in host byte order.
func PutWords32(dst []byte, words []uint32) error {
	if len(dst) < 4*len(words) {
		return fmt.Errorf("put %d words into %d bytes: %w", len(words), len(dst), ErrShortBuffer)
	}
	order := HostOrder()
	for i, w := range words {
		order.PutUint32(dst[4*i:], w)
	}
	return nil
}

// Words32 decodes src as host-order 32-bit words. Trailing bytes are ignored.
func Words32(src []byte) []uint32 {
	order := HostOrder()
	out := make([]uint32, len(src)/4)
	for i := range out {
		out[i] = order.Uint32(src[4*i:])
	}
	return out
}

// SwapBytes reverses the bytes of the first count elements of data in place.
func SwapBytes(data []byte, elemSize, count int) error {
	if count < 0 || elemSize*count > len(data) {
		return fmt.Errorf("swap %d elements of %d bytes in %d bytes: %w", count, elemSize, len(data), ErrShortBuffer)
	}
	switch elemSize {
	case 1:
	case 2:
		for i := 0; i < count; i++ {
			p := data[2*i:]
			binary.LittleEndian.PutUint16(p, bits.ReverseBytes16(binary.LittleEndian.Uint16(p)))
		}
	case 4:
		for i := 0; i < count; i++ {
			p := data[4*i:]
			binary.LittleEndian.PutUint32(p, bits.ReverseBytes32(binary.LittleEndian.Uint32(p)))
		}
	case 8:
		for i := 0; i < count; i++ {
			p := data[8*i:]
			binary.LittleEndian.PutUint64(p, bits.ReverseBytes64(binary.LittleEndian.Uint64(p)))
		}
	default:
		return fmt.Errorf("swap %d-byte elements: %w", elemSize, ErrElementSize)
	}
	return nil
}
