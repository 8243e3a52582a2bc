package godive

import "github.com/divewire/godive/internal/constants"

// Re-exported protocol constants, useful to callers wiring up custom
// backends or inspecting transfer sizes.
const (
	PageSize   = constants.PageSize
	Multipage  = constants.Multipage
	MaxRetries = constants.MaxRetries
)
