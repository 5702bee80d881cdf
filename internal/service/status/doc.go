// Package status reports on the packages described by a built configuration:
// whether each install path exists and whether its managed services run.
package status
