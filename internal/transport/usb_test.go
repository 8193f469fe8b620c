package transport

import (
	"errors"
	"testing"
)

func TestCtxRefClosesOnLastRelease(t *testing.T) {
	closes := 0
	ref := newCtxRef(func() error {
		closes++
		return nil
	})
	// Two transports plus the opener's initial reference.
	ref.acquire()
	ref.acquire()

	for i := 0; i < 2; i++ {
		if err := ref.release(); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
		if closes != 0 {
			t.Fatalf("closed after release %d, want close on the last only", i)
		}
	}
	if err := ref.release(); err != nil {
		t.Fatalf("final release: %v", err)
	}
	if closes != 1 {
		t.Errorf("close ran %d times, want 1", closes)
	}
}

func TestCtxRefOpenerErrorPathClosesImmediately(t *testing.T) {
	closes := 0
	ref := newCtxRef(func() error {
		closes++
		return nil
	})
	// No transport ever acquired; the opener's deferred release is the
	// only one.
	if err := ref.release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if closes != 1 {
		t.Errorf("close ran %d times, want 1", closes)
	}
}

func TestCtxRefPropagatesCloseError(t *testing.T) {
	wantErr := errors.New("context close failed")
	ref := newCtxRef(func() error { return wantErr })
	ref.acquire()

	if err := ref.release(); err != nil {
		t.Fatalf("non-final release: %v", err)
	}
	if err := ref.release(); !errors.Is(err, wantErr) {
		t.Errorf("final release err = %v, want %v", err, wantErr)
	}
}
