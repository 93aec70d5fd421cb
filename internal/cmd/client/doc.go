// Package clientcmd holds the client-facing CLI commands: fetching partition
// ranges and seeding workers with blocks during development.
package clientcmd
