// Package reconcile keeps each repeater module on its persistent link.
//
// A run walks every module that has a LINK_AT_STARTUP target. Modules with
// recent local RF traffic are left alone. Idle modules are compared with the
// gateway's status file: an unlinked module is linked to its target, a
// module linked elsewhere is unlinked and then linked to its target, and a
// module already on its target needs nothing. Each run is independent and
// re-reads every input from disk.
package reconcile
