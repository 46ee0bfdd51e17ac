package sui

import (
	"regexp"
	"strconv"

	"github.com/mtlprog/swapkit/internal/domain"
)

var moveAbortRe = regexp.MustCompile(
	`MoveAbort\(MoveLocation \{ module: ModuleId \{ address: ([0-9a-fA-Fx]+), name: Identifier\("([^"]+)"\) \}, ` +
		`function: \d+, instruction: \d+, function_name: (?:Some\("([^"]+)"\)|None) \}, (\d+)\)`)

// parseAbort extracts a Move abort from an execution status error string.
// It returns nil when the failure is not an abort.
func parseAbort(status string) *domain.AbortError {
	m := moveAbortRe.FindStringSubmatch(status)
	if m == nil {
		return nil
	}
	code, err := strconv.ParseUint(m[4], 10, 64)
	if err != nil {
		return nil
	}
	return domain.NewAbortError(m[2], m[3], code)
}
