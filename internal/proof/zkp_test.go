package proof

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestHashContent(t *testing.T) {
	sum := sha256.Sum256([]byte("my invention"))
	want := hex.EncodeToString(sum[:])
	if got := HashContent("my invention"); got != want {
		t.Fatalf("HashContent = %q, want %q", got, want)
	}
}

func TestProveWithoutToolchainReturnsMock(t *testing.T) {
	p := NewProver(Config{})

	a, err := p.Prove(context.Background(), "secret content")
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if len(a.PublicSignals) != 1 || a.PublicSignals[0] != HashContent("secret content") {
		t.Fatalf("public signals = %v", a.PublicSignals)
	}
	if a.Proof == nil {
		t.Fatal("mock artifact missing proof object")
	}
}

func TestProveMissingArtifactsReturnsMock(t *testing.T) {
	p := NewProver(Config{
		SnarkjsBin:  "/nonexistent/snarkjs",
		CircuitWasm: "/nonexistent/novelty.wasm",
		ProvingKey:  "/nonexistent/novelty.zkey",
	})

	a, err := p.Prove(context.Background(), "content")
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if a.PublicSignals[0] != HashContent("content") {
		t.Fatalf("public signals = %v", a.PublicSignals)
	}
}

func TestProveToolchainFailureSurfacesError(t *testing.T) {
	dir := t.TempDir()
	failing := filepath.Join(dir, "snarkjs")
	if err := os.WriteFile(failing, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	wasm := filepath.Join(dir, "novelty.wasm")
	zkey := filepath.Join(dir, "novelty.zkey")
	os.WriteFile(wasm, []byte("w"), 0o644)
	os.WriteFile(zkey, []byte("z"), 0o644)

	p := NewProver(Config{SnarkjsBin: failing, CircuitWasm: wasm, ProvingKey: zkey})
	if _, err := p.Prove(context.Background(), "content"); err == nil {
		t.Fatal("expected error from failing toolchain")
	}
}

func TestVerify(t *testing.T) {
	hash := HashContent("content")

	if Verify(Artifact{}, hash) {
		t.Fatal("empty artifact must not verify")
	}
	if Verify(Artifact{PublicSignals: []string{"other"}}, hash) {
		t.Fatal("mismatched signal must not verify")
	}
	if !Verify(Artifact{PublicSignals: []string{hash}}, hash) {
		t.Fatal("matching signal must verify")
	}
	if !Verify(Artifact{PublicSignals: []string{hash, "extra"}}, hash) {
		t.Fatal("only the first signal is the commitment")
	}
}
