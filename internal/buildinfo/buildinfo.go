// Package buildinfo holds build-time information, kept separate so other
// packages can import it without risking import cycles.
package buildinfo

// Version is the scheduler version, set by the linker's -X flag at build
// time and recorded in every run snapshot's metadata block.
var Version = "v0.1.0-dev"

// GitSHA is the commit being built, set by the linker's -X flag.
var GitSHA string
