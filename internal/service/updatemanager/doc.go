// Package updatemanager assembles the base configuration of the update manager.
//
// Two packages are tracked: the moonraker host service and its klipper
// companion. BuildBaseConfig copies the static entries, stamps the requested
// channel and package type on them, reads the klipper location from the
// database and layers the result under the user's configuration.
package updatemanager
