// Package doctor runs read-only health checks on a g2_link installation:
// the files and keys a reconciliation pass depends on.
package doctor

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/freestar-tools/g2persist/internal/config"
	"github.com/freestar-tools/g2persist/internal/desired"
	"github.com/freestar-tools/g2persist/internal/gwconfig"
	"github.com/freestar-tools/g2persist/internal/linkstate"
	"github.com/freestar-tools/g2persist/internal/module"
	"github.com/freestar-tools/g2persist/internal/reconcile"
)

// Summary counts check results by severity.
type Summary struct {
	OK       int
	Warnings int
	Failures int
}

// Healthy reports whether no check failed.
func (s Summary) Healthy() bool { return s.Failures == 0 }

type checker struct {
	w       io.Writer
	summary Summary
}

func (c *checker) ok(format string, args ...any) {
	c.summary.OK++
	fmt.Fprintf(c.w, "  [ OK ] "+format+"\n", args...)
}

func (c *checker) warn(format string, args ...any) {
	c.summary.Warnings++
	fmt.Fprintf(c.w, "  [WARN] "+format+"\n", args...)
}

func (c *checker) fail(format string, args ...any) {
	c.summary.Failures++
	fmt.Fprintf(c.w, "  [FAIL] "+format+"\n", args...)
}

// Check runs every check against s and writes one line per result to w.
func Check(w io.Writer, s config.Settings) Summary {
	c := &checker{w: w}

	fmt.Fprintln(w, "Settings check:")
	if s.Source != "" {
		c.ok("settings read from %s", s.Source)
	} else {
		c.ok("using built-in settings")
	}
	modules, err := s.ModuleSet()
	if err != nil {
		c.fail("%v", err)
		return c.summary
	}
	c.ok("modules %s", modules.String())

	fmt.Fprintln(w, "Gateway config check:")
	cfg, err := gwconfig.Parse(s.ConfigPath())
	if err != nil {
		c.fail("%v", err)
		return c.summary
	}
	c.ok("%s (%d keys)", s.ConfigPath(), cfg.Len())

	for _, key := range []string{
		reconcile.KeyFlagsDir,
		reconcile.KeyStatusFile,
		reconcile.KeyExternalIP,
		reconcile.KeyLinkPort,
		reconcile.KeyLoginCall,
	} {
		if v, err := cfg.String(key); err != nil {
			c.fail("%v", err)
		} else {
			c.ok("%s=%s", key, v)
		}
	}

	for _, id := range modules {
		key := desired.Key(id)
		v, err := cfg.String(key)
		if errors.Is(err, gwconfig.ErrMissingKey) || (err == nil && v == "") {
			c.warn("%s not set, module %s has no persistent link", key, id)
			continue
		}
		if err != nil {
			c.fail("%v", err)
			continue
		}
		link, err := desired.ParseSpec(key, v)
		if err != nil {
			c.fail("%v", err)
			continue
		}
		c.ok("module %s persists to %s module %s", id, link.Callsign, link.RemoteModule)
	}

	fmt.Fprintln(w, "Gateway files check:")
	if dir, err := cfg.String(reconcile.KeyFlagsDir); err == nil {
		checkDir(c, dir)
	}
	if path, err := cfg.String(reconcile.KeyStatusFile); err == nil {
		checkStatusFile(c, path, modules)
	}
	checkExecutable(c, s.ToolPath())

	return c.summary
}

func checkDir(c *checker, path string) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		c.warn("%s does not exist, every module will count as idle", path)
	case err != nil:
		c.fail("%s: %v", path, err)
	case !info.IsDir():
		c.fail("%s is not a directory", path)
	default:
		c.ok("%s exists", path)
	}
}

func checkStatusFile(c *checker, path string, modules module.Set) {
	table, err := linkstate.Read(path)
	if err != nil {
		c.fail("%v", err)
		return
	}
	c.ok("%s lists %d link(s)", path, len(table))
	for _, id := range table.Modules() {
		if !modules.Contains(id) {
			c.warn("%s lists module %q, which is not managed (modules %s)", path, id, modules.String())
		}
	}
}

func checkExecutable(c *checker, path string) {
	info, err := os.Stat(path)
	if err != nil {
		c.fail("link tool %s: %v", path, err)
		return
	}
	if info.IsDir() {
		c.fail("link tool %s is a directory", path)
		return
	}
	if info.Mode().Perm()&0o111 == 0 {
		c.fail("link tool %s is not executable (permissions %o)", path, info.Mode().Perm())
		return
	}
	c.ok("link tool %s (permissions %o)", path, info.Mode().Perm())
}
