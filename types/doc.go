// Package types provides the core domain types used across the coworker
// simulation platform: conversations, turns, scenario state, hints, and the
// structured error taxonomy.
//
// This package has ZERO dependencies on other coworker packages to avoid
// circular imports. All other packages should import types from here.
package types
