// Package gwconfig reads the g2_link gateway configuration file
// (g2_link.cfg). The format is one KEY=VALUE assignment per line; any line
// that is not an assignment is ignored, which is how the file carries
// comments. A key assigned more than once collects its values into an
// ordered list.
package gwconfig
