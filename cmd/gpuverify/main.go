// gpuverify runs identical searches on the CPU and GPU backends and checks
// that both report the same outcome.
package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/sha3"

	"github.com/Amr-9/NonceHunter/internal/logger"
	"github.com/Amr-9/NonceHunter/pkg/miner"
	"github.com/Amr-9/NonceHunter/pkg/miner/gpu"
	"github.com/Amr-9/NonceHunter/pkg/miner/hasher"
	"github.com/Amr-9/NonceHunter/pkg/search"
)

var errMismatch = errors.New("gpu results disagree with the cpu")

// testCase is one search run on both backends.
type testCase struct {
	name   string
	header []byte
	target miner.Target
	bound  uint64
	want   miner.Status
}

// result is the comparison of one test case.
type result struct {
	name  string
	cpu   miner.Outcome
	gpu   miner.Outcome
	err   error
	match bool
}

var (
	device  int
	emulate bool
	level   string
)

func main() {
	cmd := &cobra.Command{
		Use:           "gpuverify",
		Short:         "Compare GPU search results against the CPU backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().IntVarP(&device, "device", "d", 0, "GPU device index")
	cmd.Flags().BoolVar(&emulate, "emulate", !gpu.Available(), "Use the software GPU emulator")
	cmd.Flags().StringVar(&level, "log-level", "warn", "Log level")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	l, err := logger.Setup(level, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("  ║              🔬 GPU Verification Test                             ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	opts := []search.Option{search.WithLogger(l)}
	if emulate {
		fmt.Println("  ⚠  OpenCL GPU not used, comparing against the software emulator")
		opts = append(opts, search.WithOpener(gpu.EmulatorOpener(device+1)))
	}
	fmt.Println("  🔄 Running GPU vs CPU comparison tests...")
	fmt.Println()

	h := hasher.NewKeccak256()
	passed, results := verify(cmd.Context(), h, miner.DeviceSelector(device), cases(h), opts)

	for i, r := range results {
		fmt.Printf("  Test %d: %s\n", i+1, r.name)
		if r.err != nil {
			fmt.Printf("    ❌ Error: %v\n", r.err)
			fmt.Println()
			continue
		}
		fmt.Printf("    💻 CPU: %-9s nonce %-10d digest %s\n", r.cpu.Status, r.cpu.Nonce, r.cpu.Digest)
		fmt.Printf("    🎮 GPU: %-9s nonce %-10d digest %s\n", r.gpu.Status, r.gpu.Nonce, r.gpu.Digest)
		if r.match {
			fmt.Printf("    ✅ MATCH!\n")
		} else {
			fmt.Printf("    ❌ MISMATCH!\n")
		}
		fmt.Println()
	}

	fmt.Println("  ─────────────────────────────────────────────────────────────────")
	if passed {
		fmt.Println("  ✅ ALL TESTS PASSED! GPU results agree with the CPU.")
	} else {
		fmt.Println("  ❌ SOME TESTS FAILED! Review the mismatches above.")
	}
	fmt.Println()

	if !passed {
		return errMismatch
	}
	return nil
}

// caseBound is the nonce range of every case. The target of a success case
// is the smallest digest in the range, so exactly one nonce meets it and
// both backends must report that nonce.
const caseBound = 1 << 14

// cases derives headers of several lengths from a fixed seed, including the
// longest header the OpenCL kernel takes in one block.
func cases(h miner.Hasher) []testCase {
	lengths := []int{1, 32, 76, 80, hasher.MaxSingleBlockHeader}
	out := make([]testCase, 0, len(lengths)+1)
	seed := []byte("gpuverify")
	for i, n := range lengths {
		header := make([]byte, n)
		sha3.ShakeSum256(header, binary.BigEndian.AppendUint32(seed, uint32(i)))
		out = append(out, testCase{
			name:   fmt.Sprintf("%d byte header", n),
			header: header,
			target: minDigest(h, header, caseBound),
			bound:  caseBound,
			want:   miner.Success,
		})
	}
	out = append(out, testCase{
		name:   "exhaustion with a zero target",
		header: make([]byte, 32),
		target: miner.TargetFromUint64(0),
		bound:  caseBound,
		want:   miner.Exhausted,
	})
	return out
}

func minDigest(h miner.Hasher, header []byte, bound uint64) miner.Target {
	best := h.Digest(header, 0)
	for n := uint64(1); n < bound; n++ {
		if d := h.Digest(header, n); bytes.Compare(d[:], best[:]) < 0 {
			best = d
		}
	}
	return miner.TargetFromDigest(best)
}

func verify(ctx context.Context, h miner.Hasher, device miner.DeviceSelector, tcs []testCase, opts []search.Option) (bool, []result) {
	passed := true
	results := make([]result, 0, len(tcs))
	for _, tc := range tcs {
		r := runCase(ctx, h, device, tc, opts)
		passed = passed && r.err == nil && r.match
		results = append(results, r)
	}
	return passed, results
}

func runCase(ctx context.Context, h miner.Hasher, device miner.DeviceSelector, tc testCase, opts []search.Option) result {
	r := result{name: tc.name}

	cfg := miner.NewConfig()
	cfg.Header = tc.header
	cfg.Target = tc.target
	cfg.Bound = miner.Bound(tc.bound)
	cfg.Hasher = h
	cfg.Threads = miner.DefaultThreads()

	var err error
	if r.cpu, err = search.RunCPU(ctx, cfg, opts...); err != nil {
		r.err = fmt.Errorf("cpu: %w", err)
		return r
	}
	cfg.Device = device
	if r.gpu, err = search.RunGPU(ctx, cfg, opts...); err != nil {
		r.err = fmt.Errorf("gpu: %w", err)
		return r
	}
	log.Debug("Compared backends", "case", tc.name, "cpu", r.cpu.Nonce, "gpu", r.gpu.Nonce)

	r.match = r.cpu.Status == tc.want && r.cpu.Status == r.gpu.Status && r.cpu.Nonce == r.gpu.Nonce && r.cpu.Digest == r.gpu.Digest
	return r
}
