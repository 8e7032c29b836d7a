package fernet

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("hello backup world, this spans more than one AES block of data")

	token, err := Encrypt("super-secret", plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := Decrypt("super-secret", token)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
	}
}

func TestDecryptWrongSecretFails(t *testing.T) {
	token, err := Encrypt("correct-secret", []byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt("wrong-secret", token); err == nil {
		t.Fatal("expected decryption with wrong secret to fail")
	}
}

func TestDecryptTamperedTokenFails(t *testing.T) {
	token, err := Encrypt("s3cr3t", []byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	tampered := append([]byte(nil), token...)
	tampered[len(tampered)-1] ^= 0x01
	if _, err := Decrypt("s3cr3t", tampered); err == nil {
		t.Fatal("expected tampered token to fail verification")
	}
}

func TestEmptyPlaintextRoundTrips(t *testing.T) {
	token, err := Encrypt("k", nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := Decrypt("k", token)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty plaintext, got %q", got)
	}
}
