// Package daemon provides the supporting services for avsessiond.
// It watches the daemon configuration and the simulated hardware profile
// for changes and turns reconciliation failures into desktop alerts.
package daemon
