package security

import (
	"testing"
	"time"
)

func TestGenerateVerifyRoundtrip(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	token, hash, exp, err := Generate(opts, "u1", []string{"wallet"})
	if err != nil {
		t.Fatal(err)
	}
	if token == "" || hash == "" {
		t.Fatal("empty token or hash")
	}
	if !exp.After(time.Now()) {
		t.Errorf("expiry %v is in the past", exp)
	}

	claims, err := Verify(opts, token, hash)
	if err != nil {
		t.Fatal(err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub != "u1" {
		t.Errorf("subject = %q, err = %v", sub, err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, _, err := Generate(DefaultOptions([]byte("secret-a")), "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(DefaultOptions([]byte("secret-b")), token, ""); err == nil {
		t.Error("token signed with other secret must be rejected")
	}
}

func TestVerifyHashMismatch(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	token, _, _, err := Generate(opts, "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(opts, token, "sha256:deadbeef"); err == nil {
		t.Error("hash mismatch must be rejected")
	}
}

func TestUnsupportedAlg(t *testing.T) {
	opts := Options{Secret: []byte("x"), Alg: "RS256"}
	if _, _, _, err := Generate(opts, "u1", nil); err == nil {
		t.Error("asymmetric alg must be rejected")
	}
}

func TestHashTokenStable(t *testing.T) {
	a := HashToken("abc")
	b := HashToken("abc")
	if a != b {
		t.Error("hash not deterministic")
	}
	if a == HashToken("abd") {
		t.Error("distinct tokens collide")
	}
}
