// Package linkstate reads the g2_link repeater status file, which lists the
// reflector or gateway each local module is currently linked to.
package linkstate
