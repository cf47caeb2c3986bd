// Package cli implements the framebuild command-line interface.
//
// This package provides commands for analyzing Objective-C source trees,
// inspecting their header dependency graphs, and assembling cross-platform
// framework bundles. The CLI is built using cobra and supports verbose
// logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - build: Run the full pipeline and assemble the framework bundle
//   - analyze: Parse headers and report declared symbols and collisions
//   - graph: Export the header dependency graph (DOT, SVG, PNG)
//   - project: Generate the intermediate Xcode project without building
//   - check: Verify the build toolchain is available
//   - cache: Manage the header analysis cache
//
// # Configuration
//
// Commands read defaults from framebuild.toml in the working directory
// when present; flags override file values.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers
// are passed through context.Context to allow structured progress
// tracking.
package cli
