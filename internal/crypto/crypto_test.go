package crypto

import "testing"

func TestIssueTokenUniqueness(t *testing.T) {
	codec := NewCodec("test-master-secret")

	token1, _, _, err := codec.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	token2, _, _, err := codec.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	if token1 == token2 {
		t.Error("generated tokens should be unique")
	}

	// 32 bytes raw-URL base64 = 43 chars
	if len(token1) < 40 {
		t.Errorf("token length = %d, want at least 40", len(token1))
	}
}

func TestDigestVerify(t *testing.T) {
	codec := NewCodec("test-master-secret")

	token, digest, prefix, err := codec.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	if codec.Digest(token) != digest {
		t.Error("Digest() should be deterministic")
	}
	if !codec.Verify(token, digest) {
		t.Error("Verify() should return true for matching token")
	}

	other, _, _, _ := codec.IssueToken()
	if codec.Verify(other, digest) {
		t.Error("Verify() should return false for different token")
	}
	if codec.Verify(token, "wrong-digest") {
		t.Error("Verify() should return false for wrong digest")
	}

	if prefix != token[:8] {
		t.Errorf("prefix = %q, want first 8 chars of token", prefix)
	}
}

func TestDigestDependsOnSecret(t *testing.T) {
	a := NewCodec("secret-one-for-tests")
	b := NewCodec("secret-two-for-tests")

	if a.Digest("same-token") == b.Digest("same-token") {
		t.Error("digests must differ across master secrets")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal plaintext")
	}

	if !CheckPassword("correct horse battery staple", hash) {
		t.Error("CheckPassword() should accept the right password")
	}
	if CheckPassword("wrong", hash) {
		t.Error("CheckPassword() should reject a wrong password")
	}
}
