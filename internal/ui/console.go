package ui

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/Amr-9/NonceHunter/pkg/miner"
	"github.com/Amr-9/NonceHunter/pkg/miner/gpu"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorPurple = "\033[35m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

// Out receives all console output.
var Out io.Writer = os.Stdout

// PrintWelcomeBanner shows the welcome screen
func PrintWelcomeBanner(version string) {
	fmt.Fprintln(Out)
	fmt.Fprintf(Out, "%s%s", ColorCyan, ColorBold)
	fmt.Fprintln(Out, "  ╔══════════════════════════════════════════════════════╗")
	fmt.Fprintln(Out, "  ║   N O N C E   H U N T E R                            ║")
	fmt.Fprintln(Out, "  ╠══════════════════════════════════════════════════════╣")
	fmt.Fprintf(Out, "  ║%s   Proof-of-Work Nonce Search %s• v%-10s%s          ║\n", ColorYellow, ColorDim, version, ColorCyan+ColorBold)
	fmt.Fprintln(Out, "  ╚══════════════════════════════════════════════════════╝")
	fmt.Fprint(Out, ColorReset)
	fmt.Fprintln(Out)
}

// PrintDevices lists the engines a search can run on.
func PrintDevices(cores int, gpus []gpu.DeviceInfo, gpuErr error) {
	fmt.Fprintf(Out, "    %s⚡ DEVICES%s\n", ColorPurple+ColorBold, ColorReset)
	fmt.Fprintf(Out, "    %s[%3d]%s 💻 CPU (%d cores)\n", ColorCyan, miner.CPUDevice, ColorReset, cores)
	if gpuErr != nil {
		fmt.Fprintf(Out, "    %s[  -]%s 🎮 GPU %s(%v)%s\n", ColorCyan, ColorReset, ColorDim, gpuErr, ColorReset)
		return
	}
	for _, d := range gpus {
		fmt.Fprintf(Out, "    %s[%3d]%s 🎮 %s %s(%s, %d CUs, %s)%s\n", ColorCyan, d.Index, ColorReset,
			d.Name, ColorDim, d.Vendor, d.ComputeUnits, FormatBytes(d.GlobalMem), ColorReset)
	}
}

// PrintSearchInfo displays search configuration
func PrintSearchInfo(cfg *miner.Config, backend string) {
	fmt.Fprintf(Out, "\n    %s🚀 SEARCHING%s %s%s%s on %s%s%s\n", ColorGreen+ColorBold, ColorReset,
		ColorBold, cfg.Hasher.Name(), ColorReset, ColorCyan, backend, ColorReset)
	fmt.Fprintf(Out, "    %sheader%s  %d bytes\n", ColorDim, ColorReset, len(cfg.Header))
	fmt.Fprintf(Out, "    %starget%s  %s\n", ColorDim, ColorReset, cfg.Target.String())
	fmt.Fprintf(Out, "    %snonces%s  %s %s(1/%s)%s\n\n", ColorDim, ColorReset, cfg.SpaceString(),
		ColorDim, FormatExpected(cfg.Target.ExpectedAttempts()), ColorReset)
}

// ProgressLine renders one progress line. expected is the mean number of
// attempts needed to meet the target.
func ProgressLine(stats miner.Stats, expected float64, frame int) string {
	spinners := []string{"◐", "◓", "◑", "◒"}
	spinner := spinners[frame%len(spinners)]

	if expected <= 0 {
		expected = 1
	}
	// Probability that a solution has been seen by now.
	progress := 1.0 - math.Exp(-float64(stats.Attempts)/expected)

	barWidth := 40
	filled := min(int(progress*float64(barWidth)), barWidth)
	bar := strings.Repeat("▓", filled) + strings.Repeat("░", barWidth-filled)

	return fmt.Sprintf("\r    %s%s%s %s%s%s %s%s%s │ %s%s%s │ %s",
		ColorCyan, spinner, ColorReset,
		ColorDim, bar, ColorReset,
		ColorGreen+ColorBold, FormatHashRate(stats.HashRate), ColorReset,
		ColorYellow, FormatNumber(stats.Attempts), ColorReset,
		FormatDuration(time.Duration(stats.ElapsedSecs*float64(time.Second))))
}

// PrintProgress shows animated progress bar
func PrintProgress(stats miner.Stats, expected float64, frame int) {
	fmt.Fprint(Out, ProgressLine(stats, expected, frame))
}

// PrintOutcome shows how the search ended.
func PrintOutcome(o miner.Outcome) {
	switch o.Status {
	case miner.Success:
		fmt.Fprintf(Out, "\n    %s%s╔══════════════════════════════════════════════════════════╗%s\n", ColorGreen, ColorBold, ColorReset)
		fmt.Fprintf(Out, "    %s%s║                  ✨ NONCE FOUND! ✨                      ║%s\n", ColorGreen, ColorBold, ColorReset)
		fmt.Fprintf(Out, "    %s%s╚══════════════════════════════════════════════════════════╝%s\n\n", ColorGreen, ColorBold, ColorReset)

		fmt.Fprintf(Out, "    %s🎯 NONCE%s\n", ColorCyan+ColorBold, ColorReset)
		fmt.Fprintf(Out, "       %s%s%d%s  %s(0x%016x)%s\n\n", ColorGreen, ColorBold, o.Nonce, ColorReset, ColorDim, o.Nonce, ColorReset)
		fmt.Fprintf(Out, "    %s🔒 DIGEST%s\n", ColorPurple+ColorBold, ColorReset)
		fmt.Fprintf(Out, "       %s0x%s%s\n\n", ColorYellow, o.Digest, ColorReset)
	case miner.Exhausted:
		fmt.Fprintf(Out, "\n    %s%s✗ Nonce space exhausted, no digest met the target%s\n\n", ColorRed, ColorBold, ColorReset)
	case miner.Cancelled:
		fmt.Fprintf(Out, "\n    %s%s■ Search cancelled%s\n\n", ColorYellow, ColorBold, ColorReset)
	}

	fmt.Fprintf(Out, "    %s⏱   %s%s   %s│   %s📊  %s%s   %s│   %s⚙  %s%s%s\n",
		ColorCyan, ColorReset+ColorBold, FormatDuration(o.Elapsed),
		ColorDim,
		ColorPurple, ColorReset+ColorBold, FormatNumber(o.Attempts),
		ColorDim,
		ColorYellow, ColorReset+ColorBold, o.Backend,
		ColorReset)
}

// PrintError reports a failed search.
func PrintError(err error) {
	fmt.Fprintf(Out, "\n    %s%s✗ %v%s\n", ColorRed, ColorBold, err, ColorReset)
}

// ClearLine clears the current line
func ClearLine() {
	fmt.Fprint(Out, "\r                                                                                              \r")
}

// FormatNumber adds commas to large numbers
func FormatNumber(n uint64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%d", n)
	result := make([]byte, 0, len(s)+(len(s)-1)/3)
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

// FormatExpected formats an expected attempt count, switching to a power of
// two once it no longer fits a uint64.
func FormatExpected(x float64) string {
	if x < 1 {
		return "1"
	}
	if x < math.MaxUint64/2 {
		return FormatNumber(uint64(math.Round(x)))
	}
	return fmt.Sprintf("2^%.1f", math.Log2(x))
}

// FormatHashRate formats hash rate nicely
func FormatHashRate(rate float64) string {
	if rate >= 1e9 {
		return fmt.Sprintf("%.2fG/s", rate/1e9)
	}
	if rate >= 1000000 {
		return fmt.Sprintf("%.1fM/s", rate/1000000)
	}
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	return fmt.Sprintf("%.0f/s", rate)
}

// FormatBytes formats a memory size.
func FormatBytes(n uint64) string {
	const gib = 1 << 30
	if n >= gib {
		return fmt.Sprintf("%.1f GiB", float64(n)/gib)
	}
	return fmt.Sprintf("%d MiB", n>>20)
}

// FormatDuration formats duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}
