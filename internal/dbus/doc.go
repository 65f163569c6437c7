// Package dbus exposes the reconciliation engine on the session bus as the
// io.github.jmylchreest.AVSession interface. It provides the server the
// daemon exports, the client the CLI uses, a monitor for the engine's
// signals and a small org.freedesktop.Notifications client for alerts.
package dbus
