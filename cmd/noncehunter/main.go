package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/Amr-9/NonceHunter/internal/config"
	"github.com/Amr-9/NonceHunter/internal/logger"
	"github.com/Amr-9/NonceHunter/internal/ui"
	"github.com/Amr-9/NonceHunter/pkg/miner"
	"github.com/Amr-9/NonceHunter/pkg/miner/gpu"
	"github.com/Amr-9/NonceHunter/pkg/miner/hasher"
	"github.com/Amr-9/NonceHunter/pkg/search"
)

const version = "1.0.0"

// Process exit codes.
const (
	exitSuccess   = 0
	exitError     = 1
	exitExhausted = 2
	exitCancelled = 130
)

var (
	cfg      = config.NewConfig()
	exitCode = exitSuccess
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err)
		os.Exit(exitError)
	}
	os.Exit(exitCode)
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "noncehunter",
		Short: "Proof-of-work nonce search on CPU or GPU",
		Long: `Searches a 64 bit nonce space for a value whose digest, computed over
the header followed by the nonce, does not exceed a 256 bit target.

Device 255 runs the search on CPU worker threads; any other device number
selects that OpenCL GPU. Exit status is 0 when a nonce is found, 2 when the
space is exhausted, 130 when interrupted and 1 on error.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSearch,
	}

	flags := rootCmd.Flags()
	flags.IntVarP(&cfg.Device, "device", "d", cfg.Device, "Device selector: 255 for CPU, otherwise GPU index")
	flags.IntVarP(&cfg.Threads, "threads", "t", cfg.Threads, "CPU worker threads")
	flags.StringVar(&cfg.Header, "header", "", "Search header (hex)")
	flags.StringVarP(&cfg.HeaderFile, "header-file", "F", "", "File containing the search header (hex)")
	flags.StringVar(&cfg.Target, "target", "", "Target as a 256 bit big endian hex value")
	flags.StringVar(&cfg.TargetDec, "target-dec", "", "Target as a decimal value")
	flags.StringVar(&cfg.Bits, "bits", "", "Target as compact difficulty bits (hex, e.g. 1d00ffff)")
	flags.IntVarP(&cfg.ZeroBits, "zero-bits", "z", config.ZeroBitsUnset, "Target as required leading zero bits of the digest")
	flags.StringVarP(&cfg.Bound, "bound", "b", "", "Search nonces [0, bound); default is the full 64 bit space")
	flags.StringVarP(&cfg.Algorithm, "algorithm", "a", cfg.Algorithm, fmt.Sprintf("Digest algorithm %v", hasher.Names()))
	flags.IntVar(&cfg.LocalSize, "local-size", cfg.LocalSize, "GPU work group size")
	flags.IntVar(&cfg.LaunchSize, "launch-size", cfg.LaunchSize, "GPU work items per kernel launch")
	flags.BoolVar(&cfg.EmulateGPU, "emulate-gpu", false, "Run GPU devices on the software emulator")
	flags.BoolVar(&cfg.ListDevices, "list-devices", false, "List available devices and exit")
	flags.BoolVar(&cfg.HighPriority, "high-priority", false, "Raise the process scheduling priority")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (trace, debug, info, warn, error, crit)")
	flags.IntVarP(&cfg.LogInterval, "log-interval", "i", cfg.LogInterval, "Progress interval in seconds, 0 disables progress")

	return rootCmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if _, err := logger.Setup(cfg.LogLevel, os.Stderr); err != nil {
		return err
	}

	if cfg.ListDevices {
		gpus, err := gpu.ListDevices()
		ui.PrintDevices(runtime.NumCPU(), gpus, err)
		return nil
	}

	mc, err := cfg.MinerConfig()
	if err != nil {
		return err
	}

	opts := []search.Option{search.WithGeometry(cfg.Geometry()), search.WithLogger(log.Root())}
	if cfg.EmulateGPU {
		opts = append(opts, search.WithOpener(gpu.EmulatorOpener(int(miner.CPUDevice))))
	}
	backend, err := search.NewBackend(mc, opts...)
	if err != nil {
		return err
	}

	if cfg.HighPriority {
		if err := raisePriority(); err != nil {
			log.Warn("Could not raise process priority", "err", err)
		}
	}

	ui.PrintWelcomeBanner(version)
	ui.PrintSearchInfo(mc, backend.Name())
	log.Debug("Search configured", "device", mc.Device, "target", cfg.GetTargetDescription())

	outcome, err := runWithProgress(backend, mc)
	ui.ClearLine()
	if err != nil {
		exitCode = exitError
		return err
	}

	ui.PrintOutcome(outcome)
	switch outcome.Status {
	case miner.Exhausted:
		exitCode = exitExhausted
	case miner.Cancelled:
		exitCode = exitCancelled
	}
	return nil
}

type searchResult struct {
	outcome miner.Outcome
	err     error
}

// runWithProgress runs the search in the background, printing progress
// until it ends. SIGINT and SIGTERM cancel the search.
func runWithProgress(backend miner.Backend, mc *miner.Config) (miner.Outcome, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	resultChan := make(chan searchResult, 1)
	go func() {
		outcome, err := backend.Run(ctx, mc)
		resultChan <- searchResult{outcome, err}
	}()

	var tick <-chan time.Time
	if cfg.LogInterval > 0 {
		ticker := time.NewTicker(time.Duration(cfg.LogInterval) * time.Second)
		defer ticker.Stop()
		tick = ticker.C
	}

	expected := mc.Target.ExpectedAttempts()
	frame := 0
	for {
		select {
		case r := <-resultChan:
			return r.outcome, r.err

		case <-tick:
			stats := backend.Stats()
			ui.PrintProgress(stats, expected, frame)
			log.Trace("Search progress", "attempts", stats.Attempts, "rate", stats.HashRate)
			frame++

		case <-sigChan:
			ui.ClearLine()
			log.Info("Received interrupt signal, stopping search")
			cancel()
			// Stop printing; the backend observes ctx and returns Cancelled.
			tick = nil
		}
	}
}
