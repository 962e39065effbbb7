// AngelaMos | 2026
// security_test.go

package core

import (
	"strings"
	"testing"
)

func TestVerifySecretPlain(t *testing.T) {
	t.Parallel()

	if !VerifySecret("hunter2", "hunter2") {
		t.Error("equal secrets must match")
	}
	if VerifySecret("hunter3", "hunter2") {
		t.Error("different secrets must not match")
	}
	if VerifySecret("", "") {
		t.Error("empty configured secret must match nothing")
	}
	if VerifySecret("anything", "") {
		t.Error("unset secret must reject")
	}
}

func TestVerifySecretHashed(t *testing.T) {
	t.Parallel()

	hash, err := HashSecret("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	if !VerifySecret("hunter2", hash) {
		t.Error("secret must match its hash")
	}
	if VerifySecret("hunter3", hash) {
		t.Error("wrong secret matched hash")
	}
	if VerifySecret(hash, hash) {
		t.Error("the hash itself must not be accepted as the secret")
	}
	if VerifySecret("hunter2", "$argon2id$broken") {
		t.Error("malformed hash must reject")
	}
}
