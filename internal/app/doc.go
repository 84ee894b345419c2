// Package app contains the monomatch application logic: it reads problem
// files, runs the selected engine on each of them through a worker pool, and
// reports the outcomes. It is decoupled from the CLI entrypoint.
package app
