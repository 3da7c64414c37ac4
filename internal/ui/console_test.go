package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Amr-9/NonceHunter/pkg/miner"
	"github.com/Amr-9/NonceHunter/pkg/miner/gpu"
	"github.com/Amr-9/NonceHunter/pkg/miner/minertest"
)

func capture(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	prev := Out
	Out = &buf
	t.Cleanup(func() { Out = prev })
	return &buf
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1,000", FormatNumber(1000))
	assert.Equal(t, "4,294,967,296", FormatNumber(1<<32))
	assert.Equal(t, "18,446,744,073,709,551,615", FormatNumber(^uint64(0)))
}

func TestFormatHashRate(t *testing.T) {
	assert.Equal(t, "12/s", FormatHashRate(12))
	assert.Equal(t, "1.5K/s", FormatHashRate(1500))
	assert.Equal(t, "2.5M/s", FormatHashRate(2500000))
	assert.Equal(t, "3.20G/s", FormatHashRate(3.2e9))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m 5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h 1m", FormatDuration(61*time.Minute))
}

func TestFormatExpected(t *testing.T) {
	assert.Equal(t, "1", FormatExpected(0.5))
	assert.Equal(t, "256", FormatExpected(256))
	assert.Equal(t, "2^256.0", FormatExpected(1.157920892373162e77))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 MiB", FormatBytes(512<<20))
	assert.Equal(t, "8.0 GiB", FormatBytes(8<<30))
}

func TestProgressLine(t *testing.T) {
	line := ProgressLine(miner.Stats{Attempts: 1500, HashRate: 1500, ElapsedSecs: 1}, 1000, 1)
	assert.True(t, strings.HasPrefix(line, "\r"))
	assert.Contains(t, line, "◓")
	assert.Contains(t, line, "1,500")
	assert.Contains(t, line, "1.5K/s")

	empty := ProgressLine(miner.Stats{}, 0, 0)
	assert.Contains(t, empty, strings.Repeat("░", 40))
}

func TestPrintOutcome(t *testing.T) {
	buf := capture(t)
	PrintOutcome(miner.Outcome{
		Status:   miner.Success,
		Nonce:    42,
		Digest:   minertest.NonceDigest(42),
		Attempts: 43,
		Elapsed:  time.Second,
		Backend:  "CPU",
	})
	out := buf.String()
	assert.Contains(t, out, "NONCE FOUND")
	assert.Contains(t, out, "0x000000000000002a")
	assert.Contains(t, out, minertest.NonceDigest(42).String())
	assert.Contains(t, out, "CPU")

	buf.Reset()
	PrintOutcome(miner.Outcome{Status: miner.Exhausted})
	assert.Contains(t, buf.String(), "exhausted")

	buf.Reset()
	PrintOutcome(miner.Outcome{Status: miner.Cancelled})
	assert.Contains(t, buf.String(), "cancelled")
}

func TestPrintSearchInfo(t *testing.T) {
	buf := capture(t)
	cfg := minertest.Config(minertest.NonceHasher{}, miner.TargetFromUint64(255), 1000, 2)
	PrintSearchInfo(cfg, "CPU")
	out := buf.String()
	assert.Contains(t, out, "64 bytes")
	assert.Contains(t, out, "[0, 1000)")
	assert.Contains(t, out, "00000000000000000000000000000000000000000000000000000000000000ff")
}

func TestPrintDevices(t *testing.T) {
	buf := capture(t)
	PrintDevices(8, []gpu.DeviceInfo{{Index: 0, Name: "Test GPU", Vendor: "Acme", ComputeUnits: 40, GlobalMem: 8 << 30}}, nil)
	assert.Contains(t, buf.String(), "CPU (8 cores)")
	assert.Contains(t, buf.String(), "Test GPU")
	assert.Contains(t, buf.String(), "[255]")

	buf.Reset()
	PrintDevices(4, nil, errors.New("GPU support not compiled"))
	assert.Contains(t, buf.String(), "not compiled")
}

func TestBannerAndError(t *testing.T) {
	buf := capture(t)
	PrintWelcomeBanner("1.0.0")
	assert.Contains(t, buf.String(), "v1.0.0")

	buf.Reset()
	PrintError(errors.New("device lost"))
	assert.Contains(t, buf.String(), "device lost")
}
