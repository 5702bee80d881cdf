// Package reload rebuilds the update manager configuration when the user's
// configuration file changes on disk.
package reload
