package internal

import "testing"

func TestNewPasswordLengthAndClasses(t *testing.T) {
	for _, n := range []int{3, 6, 12, 64} {
		for i := 0; i < 50; i++ {
			pw, err := NewPassword(n)
			if err != nil {
				t.Fatalf("NewPassword(%d): %v", n, err)
			}
			if len(pw) != n {
				t.Fatalf("expected length %d, got %d", n, len(pw))
			}
			if !HasClasses(pw) {
				t.Fatalf("missing character class in %q", pw)
			}
		}
	}
}

func TestNewPasswordShortAndInvalid(t *testing.T) {
	if _, err := NewPassword(0); err == nil {
		t.Fatal("expected zero length to fail")
	}
	pw, err := NewPassword(2)
	if err != nil || len(pw) != 2 {
		t.Fatalf("unexpected short password %q err=%v", pw, err)
	}
}

func TestNewPasswordAvoidsLookalikes(t *testing.T) {
	for i := 0; i < 100; i++ {
		pw, err := NewPassword(32)
		if err != nil {
			t.Fatalf("NewPassword: %v", err)
		}
		for _, c := range pw {
			switch c {
			case '0', 'O', '1', 'l', 'I':
				t.Fatalf("look-alike %q in %q", c, pw)
			}
		}
	}
}

func TestNewPasswordIsNotRepeated(t *testing.T) {
	seen := make(map[string]struct{}, 200)
	for i := 0; i < 200; i++ {
		pw, err := NewPassword(16)
		if err != nil {
			t.Fatalf("NewPassword: %v", err)
		}
		if _, dup := seen[pw]; dup {
			t.Fatalf("duplicate password %q", pw)
		}
		seen[pw] = struct{}{}
	}
}

func TestDistinctPositions(t *testing.T) {
	for i := 0; i < 100; i++ {
		pos, err := distinctPositions(5, 3)
		if err != nil {
			t.Fatalf("distinctPositions: %v", err)
		}
		seen := map[int]bool{}
		for _, p := range pos {
			if p < 0 || p >= 5 || seen[p] {
				t.Fatalf("bad positions %v", pos)
			}
			seen[p] = true
		}
	}
}
