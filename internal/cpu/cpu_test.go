package cpu

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	n := Count()
	if n < 1 {
		t.Fatalf("Count() = %d, want >= 1", n)
	}
	if n > runtime.NumCPU() {
		t.Errorf("Count() = %d exceeds runtime.NumCPU() = %d", n, runtime.NumCPU())
	}
}
