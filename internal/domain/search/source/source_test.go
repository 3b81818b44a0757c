package source

import "testing"

func TestSource_IsValid(t *testing.T) {
	for _, s := range []Source{Intent, Raw, Fallback, Fused} {
		if !s.IsValid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Source("keyword").IsValid() {
		t.Error("unknown source should be invalid")
	}
}
