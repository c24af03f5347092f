package upload

import (
	"fmt"

	"github.com/appealai/ticket-intake/internal/common"
)

// Validate checks a candidate against the upload policy before any
// expensive work begins. Pure and synchronous: no I/O, identical results
// for identical inputs.
//
// The size ceiling is checked first, so an oversized file is reported as
// too large regardless of its media type.
func Validate(c Candidate, policy common.Upload) error {
	if c.Size > policy.MaxSizeBytes() {
		return common.NewAppError(
			"FILE_TOO_LARGE",
			fmt.Sprintf("file is %d bytes, limit is %dMB", c.Size, policy.MaxSizeMB),
			common.ErrFileTooLarge,
		)
	}
	if !policy.Allows(c.MediaType) {
		return common.NewAppError(
			"UNSUPPORTED_TYPE",
			fmt.Sprintf("media type %q is not accepted", c.MediaType),
			common.ErrUnsupportedType,
		)
	}
	return nil
}
