//go:build tools
// +build tools

// Package tools declares tool dependencies for this module.
//
// These imports are not used at runtime. They keep Go-based tools invoked via
// `go generate` (mockgen for the mocks package) tracked in go.mod.
package community_pulse

import (
	_ "go.uber.org/mock/mockgen"
)
