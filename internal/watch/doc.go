// Package watch defines the core types and interfaces shared by the keyword
// monitor: run configuration, candidates extracted from a target page, keyword
// hits, and the collaborator contracts the monitor loop drives.
package watch
