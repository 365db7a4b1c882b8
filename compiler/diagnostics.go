package compiler

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/caffeineduck/gopad/result"
)

// Toolchain diagnostics look like "./main.go:5:9: undefined: foo". Only
// lines naming the user unit are mapped; bootstrap positions would be
// meaningless to the caller.
var diagLine = regexp.MustCompile(`^(?:\./)?main\.go:(\d+)(?::(\d+))?: (.+)$`)

// parseToolOutput converts toolchain output into diagnostics with 0-based
// coordinates into the submitted snippet.
func parseToolOutput(out []byte, lineOffset int, id string, sev result.Severity) []result.CompileError {
	var diags []result.CompileError
	for _, line := range strings.Split(string(out), "\n") {
		m := diagLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		fileLine, _ := strconv.Atoi(m[1])
		col := 1
		if m[2] != "" {
			col, _ = strconv.Atoi(m[2])
		}
		diags = append(diags, result.CompileError{
			Severity: sev,
			ID:       id,
			Message:  m[3],
			Line:     clamp(fileLine - lineOffset - 1),
			Column:   clamp(col - 1),
		})
	}
	return diags
}
