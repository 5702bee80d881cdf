// Package pkgentry contains the PackageEntry type: how one managed software
// package is sourced, installed and run by the update manager.
//
// Entries are plain values; Clone and CloneEntries copy them so that shared
// defaults are never modified through a caller's copy.
package pkgentry
