// Package util holds small formatting helpers shared by the CLI shell and
// tests: hex dumps of on-medium bytes and byte-level comparisons of
// encoded records.
package util

import (
	"bytes"
	"fmt"
	"strings"
)

// Hexdump formats b the way xxd does: a hex offset column, bytes grouped
// by eight, and an ASCII gutter with unprintable bytes shown as dots.
func Hexdump(b []byte, bytesPerRow int) string {
	var sb strings.Builder
	for start := 0; start < len(b); start += bytesPerRow {
		end := start + bytesPerRow
		if end > len(b) {
			end = len(b)
		}
		row := b[start:end]

		fmt.Fprintf(&sb, "%08x :", start)
		for i := 0; i < bytesPerRow; i++ {
			if i%8 == 0 {
				sb.WriteByte(' ')
			}
			if i < len(row) {
				fmt.Fprintf(&sb, " %02x", row[i])
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString("  ")
		for _, c := range row {
			if c < 32 || c > 126 {
				c = '.'
			}
			sb.WriteByte(c)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DiffDump reports whether a and b differ and, when they do, renders both
// through Hexdump (actual first, expected second) so a failing record
// comparison shows exactly which bytes moved.
func DiffDump(a, b []byte, bytesPerRow int) (different bool, out string) {
	if len(a) == len(b) && bytes.Equal(a, b) {
		return false, ""
	}
	return true, Hexdump(a, bytesPerRow) + "\n" + Hexdump(b, bytesPerRow)
}
