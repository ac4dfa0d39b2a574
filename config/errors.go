package config

import "errors"

// ErrConfigInvalid is the sentinel for spec.md §7's ConfigInvalid error kind: fatal, the core
// refuses to run until the configuration is corrected.
var ErrConfigInvalid = errors.New("config invalid")
