// Package module defines the single-letter identifiers used by g2_link for
// repeater modules (ports), and the configurable set of modules a gateway
// serves.
package module
