package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/refdata/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(title string, fields [][2]string) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", title)
	if len(fields) > 0 {
		fmt.Println("───────────────────────────────────────────────────────────")
		for _, f := range fields {
			fmt.Printf("  %-10s: %s\n", f[0], f[1])
		}
	}
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintColumns prints ids in fixed-width columns, perRow per line
func PrintColumns(items []string, perRow int) {
	for i, item := range items {
		fmt.Printf("   %-12s", item)
		if (i+1)%perRow == 0 || i == len(items)-1 {
			fmt.Println()
		}
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// isoDate renders d as YYYY-MM-DD
func isoDate(d time.Time) string {
	return contracts.FormatDate(d, contracts.ISODate)
}

// parseDateArg parses a flag date, "" = today
func parseDateArg(raw string) (time.Time, error) {
	if raw == "" {
		return contracts.Day(time.Now()), nil
	}
	d, err := contracts.ParseDate(raw)
	if err != nil {
		return time.Time{}, contracts.Configuration("parse date", "%v", err)
	}
	return d, nil
}

// splitList splits a comma separated flag, dropping blanks
func splitList(raw string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// formatValue renders a record value for table output
func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return fmt.Sprintf("%.4f", x)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// sortedKeys returns the keys of m in order
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedDateKeys returns the keys of m in order
func sortedDateKeys(m map[string]time.Time) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
