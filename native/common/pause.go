package common

import "errors"

// ErrModulePaused is returned by mutating operations while governance has
// halted the module.
var ErrModulePaused = errors.New("module paused")
