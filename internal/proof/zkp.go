package proof

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Artifact is a zero-knowledge proof of knowledge of invention content. The
// commitment is carried as the first public signal; the content itself never
// leaves the process.
type Artifact struct {
	Proof         map[string]any `json:"proof"`
	PublicSignals []string       `json:"publicSignals"`
}

// Config points at the snarkjs toolchain. All three paths must exist for the
// live path to run; otherwise Prove returns a mock artifact.
type Config struct {
	SnarkjsBin  string
	CircuitWasm string
	ProvingKey  string
	Timeout     time.Duration
}

type Prover struct {
	cfg Config
}

func NewProver(cfg Config) *Prover {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Prover{cfg: cfg}
}

// HashContent is the SHA-256 hex commitment over the raw content bytes.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Prove generates a proof artifact for the content. Toolchain not configured
// or artifacts missing yields a tagged mock artifact carrying the real
// commitment; a configured toolchain that fails is an error, never silently
// downgraded to mock.
func (p *Prover) Prove(ctx context.Context, content string) (Artifact, error) {
	hash := HashContent(content)
	log.Printf("brain-proof generating content_hash=%s", hash)

	if !p.toolchainConfigured() {
		return mockArtifact(hash), nil
	}
	if missing := p.missingArtifacts(); len(missing) > 0 {
		log.Printf("brain-proof toolchain_artifacts_missing paths=%v", missing)
		return mockArtifact(hash), nil
	}
	return p.runSnarkjs(ctx, content, hash)
}

// Verify checks an artifact against an expected commitment. A nil or empty
// artifact verifies false; it never panics.
func Verify(a Artifact, publicHash string) bool {
	if len(a.PublicSignals) == 0 {
		return false
	}
	return a.PublicSignals[0] == publicHash
}

func (p *Prover) toolchainConfigured() bool {
	return p.cfg.SnarkjsBin != "" && p.cfg.CircuitWasm != "" && p.cfg.ProvingKey != ""
}

func (p *Prover) missingArtifacts() []string {
	missing := []string{}
	for _, path := range []string{p.cfg.SnarkjsBin, p.cfg.CircuitWasm, p.cfg.ProvingKey} {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	return missing
}

func (p *Prover) runSnarkjs(ctx context.Context, content, hash string) (Artifact, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	workDir, err := os.MkdirTemp("", "brain-proof-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("proof workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "input.json")
	witnessPath := filepath.Join(workDir, "witness.wtns")
	proofPath := filepath.Join(workDir, "proof.json")
	publicPath := filepath.Join(workDir, "public.json")

	input, _ := json.Marshal(map[string]string{"contentHash": hash})
	if err := os.WriteFile(inputPath, input, 0o600); err != nil {
		return Artifact{}, fmt.Errorf("write proof input: %w", err)
	}

	steps := [][]string{
		{"wtns", "calculate", p.cfg.CircuitWasm, inputPath, witnessPath},
		{"groth16", "prove", p.cfg.ProvingKey, witnessPath, proofPath, publicPath},
	}
	for _, args := range steps {
		cmd := exec.CommandContext(runCtx, p.cfg.SnarkjsBin, args...)
		cmd.Dir = workDir
		if out, err := cmd.CombinedOutput(); err != nil {
			return Artifact{}, fmt.Errorf("snarkjs %s: %w output=%s", args[0], err, string(out))
		}
	}

	proofJSON, err := os.ReadFile(proofPath)
	if err != nil {
		return Artifact{}, fmt.Errorf("read proof output: %w", err)
	}
	var proofObj map[string]any
	if err := json.Unmarshal(proofJSON, &proofObj); err != nil {
		return Artifact{}, fmt.Errorf("parse proof output: %w", err)
	}

	signals := []string{hash}
	if publicJSON, err := os.ReadFile(publicPath); err == nil {
		var parsed []string
		if err := json.Unmarshal(publicJSON, &parsed); err == nil && len(parsed) > 0 {
			signals = parsed
		}
	}
	return Artifact{Proof: proofObj, PublicSignals: signals}, nil
}

func mockArtifact(hash string) Artifact {
	return Artifact{
		Proof: map[string]any{
			"a": []string{"0x...", "0x..."},
			"b": [][]string{{"0x...", "0x..."}, {"0x...", "0x..."}},
			"c": []string{"0x...", "0x..."},
		},
		PublicSignals: []string{hash},
	}
}
