package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a titled block with the contract description
func PrintHeader(w io.Writer, title string, c contracts.OptionContract) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", title)
	PrintSeparator(w)
	fmt.Fprintf(w, "  Contract  : %s\n", c.String())
	PrintSeparator(w)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(w io.Writer, message string) {
	fmt.Fprintf(w, "ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// PrintJSON writes v as indented JSON
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatFloat renders a number with 6 decimals
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// greekOrder fixes the display order of known sensitivities
var greekOrder = []string{
	contracts.Delta, contracts.Gamma, contracts.Vega,
	contracts.Theta, contracts.Rho, contracts.Epsilon, contracts.DualDelta,
}

// sortedGreeks returns the keys of g, known Greeks first
func sortedGreeks(g contracts.Greeks) []string {
	keys := make([]string, 0, len(g))
	for _, k := range greekOrder {
		if _, ok := g[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range g {
		known := false
		for _, o := range greekOrder {
			known = known || k == o
		}
		if !known {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// PrintGreeks prints sensitivities one per line
func PrintGreeks(w io.Writer, g contracts.Greeks) {
	for _, k := range sortedGreeks(g) {
		PrintKeyValue(w, k, formatFloat(g[k]), 10)
	}
}

// PrintResults prints one row per engine result
func PrintResults(w io.Writer, results []*contracts.PricingResult) {
	widths := []int{16, 14, 14}
	PrintTableHeader(w, []string{"Method", "NPV", "Early Ex."}, widths)
	for _, r := range results {
		premium := "-"
		if r.EarlyExercisePremium != nil {
			premium = formatFloat(*r.EarlyExercisePremium)
		}
		PrintTableRow(w, []string{string(r.Method), formatFloat(r.NPV), premium}, widths)
	}
}

// PrintDiagnostics prints engine diagnostics sorted by name
func PrintDiagnostics(w io.Writer, d map[string]float64) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		PrintKeyValue(w, k, strconv.FormatFloat(d[k], 'g', 8, 64), 20)
	}
}
