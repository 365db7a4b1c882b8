package host

import (
	"context"

	"github.com/caffeineduck/gopad/toolchain"
)

// Disassembler turns a compiled artifact into display text. It is a pure
// function of the artifact path; the default shells out to the toolchain's
// objdump.
type Disassembler func(ctx context.Context, artifact string) (string, error)

// Objdump returns the default Disassembler.
func Objdump() Disassembler {
	runner := toolchain.Exec{}
	tool := toolchain.Find()
	return func(ctx context.Context, artifact string) (string, error) {
		out, err := runner.Run(ctx, "", nil, tool, "tool", "objdump", artifact)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}
