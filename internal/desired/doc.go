// Package desired derives the persistent link each module should hold from
// the LINK_AT_STARTUP_<module> keys of g2_link.cfg.
package desired
