// Package config resolves the process settings of g2persist: where the
// g2_link install lives, the administrator callsign, per-module idle timers
// and the like. Settings come from built-in defaults, an optional
// ~/.g2persist/settings.yaml, G2PERSIST_* environment variables and command
// flags, in increasing order of precedence. Settings files are checked
// against an embedded JSON schema before they are read.
package config
