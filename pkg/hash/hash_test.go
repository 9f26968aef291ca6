package hash

import (
	"testing"
	"time"
)

func TestSHA256Hex(t *testing.T) {
	// Known SHA256 of "hello"
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	got := SHA256Hex("hello")
	if got != want {
		t.Errorf("SHA256Hex(\"hello\") = %s, want %s", got, want)
	}
}

func TestSHA256Hex_Empty(t *testing.T) {
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	got := SHA256Hex("")
	if got != want {
		t.Errorf("SHA256Hex(\"\") = %s, want %s", got, want)
	}
}

func TestIteratedSHA256(t *testing.T) {
	// 1 iteration should equal a single SHA256
	oneIter := IteratedSHA256("test", 1)
	single := SHA256Hex("test")
	if oneIter != single {
		t.Errorf("IteratedSHA256(\"test\", 1) = %s, want %s", oneIter, single)
	}

	multiIter := IteratedSHA256("test", 100)
	if multiIter == single {
		t.Error("100 iterations should differ from single iteration")
	}
	if multiIter != IteratedSHA256("test", 100) {
		t.Error("IteratedSHA256 should be deterministic")
	}
}

func TestHashIP(t *testing.T) {
	ip := "192.168.1.1"
	salt := "random-salt-value"
	hash := HashIP(ip, salt)

	if len(hash) != 64 {
		t.Errorf("HashIP length = %d, want 64", len(hash))
	}
	if hash == HashIP(ip, "different-salt") {
		t.Error("different salts should produce different hashes")
	}
	if hash == HashIP("10.0.0.1", salt) {
		t.Error("different IPs should produce different hashes")
	}
}

func TestEvaluationStamp(t *testing.T) {
	at := time.Unix(1700000000, 42)

	got := EvaluationStamp(42, "llama.gguf", "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", at)
	if len(got) != 64 {
		t.Fatalf("stamp length = %d, want 64", len(got))
	}
	if got != EvaluationStamp(42, "llama.gguf", "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", at) {
		t.Error("same inputs and instant should produce the same stamp")
	}
	if got == EvaluationStamp(42, "llama.gguf", "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", at.Add(time.Nanosecond)) {
		t.Error("a different instant should change the stamp")
	}
}
