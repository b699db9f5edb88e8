// Package gateway drives the g2_link command utility (g2link_test), which
// injects a URCALL command into the gateway as if it had been keyed from a
// radio. The Adapter interface is the boundary to that external tool;
// ExecAdapter is the process-backed implementation.
package gateway
