// Package cli defines the Cobra command tree for the g2persist CLI. Each file
// in this package registers one top-level command (run, status, watch, etc.)
// with the root command. Commands resolve settings and the logger in the
// root's pre-run hook and delegate the work to the reconcile package.
package cli
