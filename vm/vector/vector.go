package vector

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/vmkit/vm/vmerr"
)

// InitPolicy selects how newly grown elements are initialized. Go
// always zeroes freshly allocated memory, so DefaultInit and ValueInit
// coincide with the zero value of T unless a non-zero value is given
// explicitly via Resize(n, v)/NewWithCount; NoInit is honored only for
// backings that don't already guarantee zeroed memory (none of the
// three in this package do, since Go's allocator and the OS's
// zero-fill-on-demand pages both zero first use) — it exists so
// callers porting algorithms that rely on the distinction compile
// without change, not because vmkit can actually skip the zero-fill.
type InitPolicy int

const (
	DefaultInit InitPolicy = iota
	ValueInit
	NoInit
)

// Vector is tr_vector/vm_vector: a contiguous sequence of T backed by
// a Storage. T must be TriviallyRelocatable since capacity changes may
// bitwise-relocate every element (a realloc, or a vm_vector view
// expansion/shrink) without running per-element move logic.
type Vector[T TriviallyRelocatable, S Storage] struct {
	storage S
	length  int
}

func elemSize[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// New creates an empty vector over storage.
func New[T TriviallyRelocatable, S Storage](storage S) *Vector[T, S] {
	return &Vector[T, S]{storage: storage}
}

// NewWithCount creates a vector of n elements, each set to value.
func NewWithCount[T TriviallyRelocatable, S Storage](storage S, n int, value T) (*Vector[T, S], error) {
	v := New[T](storage)
	if err := v.ResizeValue(n, value); err != nil {
		return nil, err
	}
	return v, nil
}

// NewFromSlice creates a vector containing a copy of vals, in order.
func NewFromSlice[T TriviallyRelocatable, S Storage](storage S, vals []T) (*Vector[T, S], error) {
	v := New[T](storage)
	if err := v.AppendRange(vals); err != nil {
		return nil, err
	}
	return v, nil
}

func bytesToSlice[T any](b []byte, n int) []T {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)
}

// Slice exposes the live elements as a typed Go slice — the unchecked
// indexing/`data()` equivalent. It is invalidated by any size-changing
// call.
func (v *Vector[T, S]) Slice() []T {
	return bytesToSlice[T](v.storage.Data(), v.length)
}

// Len returns the number of live elements.
func (v *Vector[T, S]) Len() int { return v.length }

// Cap returns the number of elements the current capacity can hold
// without a reallocation/regrow.
func (v *Vector[T, S]) Cap() int { return v.storage.CapacityBytes() / elemSize[T]() }

// Empty reports whether the vector holds no elements.
func (v *Vector[T, S]) Empty() bool { return v.length == 0 }

// Storage returns the backing storage, for allocator-level access
// (e.g. a vm_vector's flush calls against its VMStorage.Underlying()).
func (v *Vector[T, S]) Storage() S { return v.storage }

// At returns the element at i, or ErrOutOfRange if i is out of bounds.
func (v *Vector[T, S]) At(i int) (T, error) {
	var zero T
	if i < 0 || i >= v.length {
		return zero, vmerr.ErrOutOfRange
	}
	return v.Slice()[i], nil
}

// Front returns the first element, if any.
func (v *Vector[T, S]) Front() (T, bool) {
	var zero T
	if v.length == 0 {
		return zero, false
	}
	return v.Slice()[0], true
}

// Back returns the last element, if any.
func (v *Vector[T, S]) Back() (T, bool) {
	var zero T
	if v.length == 0 {
		return zero, false
	}
	return v.Slice()[v.length-1], true
}

// Reserve ensures the vector can hold at least n elements without a
// further capacity change, without altering Len().
func (v *Vector[T, S]) Reserve(n int) error {
	if err := v.storage.ReserveBytes(n * elemSize[T]()); err != nil {
		return fmt.Errorf("vector: reserve: %w: %w", vmerr.ErrAlloc, err)
	}
	return nil
}

// ShrinkToFit releases any capacity beyond Len().
func (v *Vector[T, S]) ShrinkToFit() error {
	if s, ok := any(v.storage).(Shrinkable); ok {
		if err := s.ShrinkToFit(); err != nil {
			return fmt.Errorf("vector: shrink_to_fit: %w", err)
		}
		return nil
	}
	if err := v.storage.ShrinkToBytes(v.length * elemSize[T]()); err != nil {
		return fmt.Errorf("vector: shrink_to_fit: %w", err)
	}
	return nil
}

// GrowTo extends Len() to n, value-initializing the new elements to
// the zero value of T.
func (v *Vector[T, S]) GrowTo(n int) error {
	return v.Resize(n)
}

// GrowBy extends Len() by n elements.
func (v *Vector[T, S]) GrowBy(n int) error {
	return v.GrowTo(v.length + n)
}

// ShrinkTo reduces Len() to n, destroying the trailing elements.
// Capacity is unaffected (ShrinkToFit releases it separately).
func (v *Vector[T, S]) ShrinkTo(n int) error {
	if n < 0 || n > v.length {
		return fmt.Errorf("vector: shrink_to(%d): out of range for len %d", n, v.length)
	}
	if err := v.storage.ShrinkToBytes(n * elemSize[T]()); err != nil {
		return fmt.Errorf("vector: shrink_to: %w", err)
	}
	v.length = n
	return nil
}

// ShrinkBy reduces Len() by n elements.
func (v *Vector[T, S]) ShrinkBy(n int) error {
	return v.ShrinkTo(v.length - n)
}

// Clear empties the vector without releasing capacity.
func (v *Vector[T, S]) Clear() error {
	return v.ShrinkTo(0)
}

// Resize sets Len() to n, growing with the zero value of T or
// shrinking and destroying the trailing elements as needed.
func (v *Vector[T, S]) Resize(n int) error {
	var zero T
	return v.resizeWith(n, zero)
}

// ResizeValue sets Len() to n, growing with copies of value.
func (v *Vector[T, S]) ResizeValue(n int, value T) error {
	return v.resizeWith(n, value)
}

// Go has no function overloading, so the resize-with-fill-value
// variant is exposed as ResizeValue, and the count+value constructor
// reuses it directly.
func (v *Vector[T, S]) resizeWith(n int, value T) error {
	if n <= v.length {
		return v.ShrinkTo(n)
	}
	if err := v.storage.GrowToBytes(n * elemSize[T]()); err != nil {
		return fmt.Errorf("vector: resize: %w: %w", vmerr.ErrAlloc, err)
	}
	old := v.length
	v.length = n
	s := v.Slice()
	for i := old; i < n; i++ {
		s[i] = value
	}
	return nil
}

// PushBack appends value, growing geometrically when capacity is
// exhausted.
func (v *Vector[T, S]) PushBack(value T) error {
	if v.length >= v.Cap() {
		if err := v.storage.GrowToBytes((v.length + 1) * elemSize[T]()); err != nil {
			return fmt.Errorf("vector: push_back: %w: %w", vmerr.ErrAlloc, err)
		}
	}
	v.length++
	v.Slice()[v.length-1] = value
	return nil
}

// PopBack removes and returns the last element, if any.
func (v *Vector[T, S]) PopBack() (T, bool) {
	var zero T
	if v.length == 0 {
		return zero, false
	}
	last := v.Slice()[v.length-1]
	_ = v.ShrinkTo(v.length - 1)
	return last, true
}

// Insert inserts value at pos, shifting [pos, Len()) right by one via
// a single copy (valid because T is TriviallyRelocatable).
func (v *Vector[T, S]) Insert(pos int, value T) error {
	if pos < 0 || pos > v.length {
		return vmerr.ErrOutOfRange
	}
	if err := v.Reserve(v.length + 1); err != nil {
		return err
	}
	if v.length+1 > v.Cap() {
		if err := v.storage.GrowToBytes((v.length + 1) * elemSize[T]()); err != nil {
			return fmt.Errorf("vector: insert: %w: %w", vmerr.ErrAlloc, err)
		}
	}
	v.length++
	s := v.Slice()
	copy(s[pos+1:], s[pos:v.length-1])
	s[pos] = value
	return nil
}

// Erase removes the element at pos, shifting the tail left by one.
func (v *Vector[T, S]) Erase(pos int) error {
	return v.EraseRange(pos, pos+1)
}

// EraseRange removes [first, last), shifting the tail left.
func (v *Vector[T, S]) EraseRange(first, last int) error {
	if first < 0 || last > v.length || first > last {
		return vmerr.ErrOutOfRange
	}
	if first == last {
		return nil
	}
	s := v.Slice()
	copy(s[first:], s[last:v.length])
	return v.ShrinkTo(v.length - (last - first))
}

// AppendRange appends vals in order, reserving capacity up front.
func (v *Vector[T, S]) AppendRange(vals []T) error {
	if len(vals) == 0 {
		return nil
	}
	target := v.length + len(vals)
	if target > v.Cap() {
		if err := v.storage.GrowToBytes(target * elemSize[T]()); err != nil {
			return fmt.Errorf("vector: append_range: %w: %w", vmerr.ErrAlloc, err)
		}
	}
	old := v.length
	v.length = target
	copy(v.Slice()[old:], vals)
	return nil
}

// AssignRange replaces all existing contents with vals.
func (v *Vector[T, S]) AssignRange(vals []T) error {
	if err := v.ShrinkTo(0); err != nil {
		return err
	}
	return v.AppendRange(vals)
}

// InsertRange inserts vals starting at pos, shifting the existing tail
// right by len(vals).
func (v *Vector[T, S]) InsertRange(pos int, vals []T) error {
	if pos < 0 || pos > v.length {
		return vmerr.ErrOutOfRange
	}
	if len(vals) == 0 {
		return nil
	}
	target := v.length + len(vals)
	if target > v.Cap() {
		if err := v.storage.GrowToBytes(target * elemSize[T]()); err != nil {
			return fmt.Errorf("vector: insert_range: %w: %w", vmerr.ErrAlloc, err)
		}
	}
	oldLen := v.length
	v.length = target
	s := v.Slice()
	copy(s[pos+len(vals):], s[pos:oldLen])
	copy(s[pos:pos+len(vals)], vals)
	return nil
}

// HeaderBytes exposes the backing storage's user header span, if any.
func (v *Vector[T, S]) HeaderBytes() []byte { return v.storage.HeaderBytes() }

// Close releases the backing storage's OS resources.
func (v *Vector[T, S]) Close() error { return v.storage.Close() }
