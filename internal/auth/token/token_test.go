package token

import "testing"

func TestGenerateRandomTokenUnique(t *testing.T) {
	a, err := GenerateRandomToken(48)
	if err != nil {
		t.Fatalf("GenerateRandomToken: %v", err)
	}
	b, err := GenerateRandomToken(48)
	if err != nil {
		t.Fatalf("GenerateRandomToken: %v", err)
	}
	if a == b {
		t.Fatal("two generated tokens are identical")
	}
	if len(a) == 0 {
		t.Fatal("empty token")
	}
}

func TestHashSHA256Deterministic(t *testing.T) {
	if HashSHA256("refresh-token") != HashSHA256("refresh-token") {
		t.Fatal("same input hashed differently")
	}
	if HashSHA256("a") == HashSHA256("b") {
		t.Fatal("different inputs collided")
	}
	if got := len(HashSHA256("x")); got != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", got)
	}
}
