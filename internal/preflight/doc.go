// Package preflight provides readiness checks for the filesystem paths,
// frame store, external binaries and object store that cutdiff depends on.
//
// The CLI "cutdiff doctor" command runs RunAll and CheckSystemDeps and
// exits non-zero when a required check fails. Object store checks run only
// when publishing is enabled.
package preflight
