package codegen

import "github.com/roach88/maxim/internal/lir"

// ArrayAccessor reads and writes the liveness bitmap of a bounded array of
// Capacity slots, one bit per slot.
type ArrayAccessor interface {
	GetBitmap(b *lir.Builder, array lir.Value, bitmap lir.Type) lir.Value
	SetBitmap(b *lir.Builder, array, bitmap lir.Value)
}

// DefaultBitmapField is the array struct field holding the bitmap: arrays are
// laid out as {items, bitmap}.
const DefaultBitmapField = 1

// FieldArrayAccessor addresses the bitmap as a struct field of the array.
type FieldArrayAccessor struct {
	BitmapField int
}

// GetBitmap implements ArrayAccessor.
func (a FieldArrayAccessor) GetBitmap(b *lir.Builder, array lir.Value, bitmap lir.Type) lir.Value {
	ptr := b.StructGEP(array, a.BitmapField, "array.bitmap.ptr")
	return b.Load(bitmap, ptr, "array.bitmap")
}

// SetBitmap implements ArrayAccessor.
func (a FieldArrayAccessor) SetBitmap(b *lir.Builder, array, bitmap lir.Value) {
	ptr := b.StructGEP(array, a.BitmapField, "array.bitmap.ptr")
	b.Store(ptr, bitmap)
}
