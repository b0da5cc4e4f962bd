package heap

import (
	"context"
	"testing"

	"github.com/wippyai/bespoke-runtime/value"
)

func TestWrapMemory_Nil(t *testing.T) {
	if WrapMemory(nil) != nil {
		t.Error("expected nil for nil memory")
	}
}

func TestMemoryModuleEncoding(t *testing.T) {
	want := []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01,
		0x07, 0x0a, 0x01,
		0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79,
		0x02, 0x00,
	}
	got := memoryModule(1, 0)
	if len(got) != len(want) {
		t.Fatalf("got %d bytes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d: got %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestAppendULEB(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{65536, []byte{0x80, 0x80, 0x04}},
	}
	for _, tt := range tests {
		got := appendULEB(nil, tt.v)
		if string(got) != string(tt.want) {
			t.Errorf("appendULEB(%d) = %x, want %x", tt.v, got, tt.want)
		}
	}
}

func TestWazeroHeap(t *testing.T) {
	ctx := context.Background()
	wm, err := NewWazeroMemory(ctx, 1, 8)
	if err != nil {
		t.Fatalf("NewWazeroMemory failed: %v", err)
	}
	defer wm.Close(ctx)

	h, err := New(wm, value.NewStringTable())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	arr, err := h.Alloc(3*PageSize/2, Alignment)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if got := wm.Size(); got != 2*PageSize {
		t.Errorf("got size %d, want %d", got, 2*PageSize)
	}

	h.InitHeader(arr, value.ArrayVec, false, 0, 2)
	if got := h.Size(arr); got != 2 {
		t.Errorf("got size %d, want 2", got)
	}
	h.Store64(arr+3*PageSize/2-8, 99)
	if got := h.Load64(arr + 3*PageSize/2 - 8); got != 99 {
		t.Errorf("got %d, want 99", got)
	}
}

func TestWazeroGrowLimit(t *testing.T) {
	ctx := context.Background()
	wm, err := NewWazeroMemory(ctx, 1, 1)
	if err != nil {
		t.Fatalf("NewWazeroMemory failed: %v", err)
	}
	defer wm.Close(ctx)

	if _, err := wm.Grow(1); err == nil {
		t.Error("expected growth past max pages to fail")
	}
}
