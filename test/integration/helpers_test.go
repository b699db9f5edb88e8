//go:build integration

package integration_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// gatewayEnv is a sandboxed g2_link install: config file, status file, RF
// flags directory and a fake g2link_test.
type gatewayEnv struct {
	InstallDir string
	FlagsDir   string
	StatusFile string
	ConfigFile string
	Tool       string
	CallsLog   string // one line of tool arguments per invocation
}

// fakeGatewayScript behaves like a gateway that honours every command: it
// records its arguments and then rewrites the status file, adding the
// requested link on LINK and dropping the module's line on UNLINK.
const fakeGatewayScript = `#!/bin/sh
echo "$*" >> %[1]s
status=%[2]s
touch "$status"
grep -v "^$5," "$status" > "$status.tmp"
mv "$status.tmp" "$status"
if [ "$3" = "LINK" ]; then
	cs=$(printf '%%s' "$9" | sed 's/..$//; s/ *$//')
	rm=$(printf '%%s' "$9" | sed 's/.*\(.\).$/\1/')
	echo "$5,$cs,$rm,10.0.0.1,01/01/24,00:00:00" >> "$status"
fi
exit %[3]d
`

// setupGateway creates an isolated install directory. exitCode is what the
// fake tool exits with after doing its work.
func setupGateway(t *testing.T, exitCode int) *gatewayEnv {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	env := &gatewayEnv{
		InstallDir: dir,
		FlagsDir:   filepath.Join(dir, "flags"),
		StatusFile: filepath.Join(dir, "RPT_STATUS.txt"),
		ConfigFile: filepath.Join(dir, "g2_link.cfg"),
		Tool:       filepath.Join(dir, "g2link_test"),
		CallsLog:   filepath.Join(dir, "calls.log"),
	}
	if err := os.MkdirAll(env.FlagsDir, 0755); err != nil {
		t.Fatalf("creating flags dir: %v", err)
	}
	writeFile(t, env.Tool, fmt.Sprintf(fakeGatewayScript, env.CallsLog, env.StatusFile, exitCode))
	if err := os.Chmod(env.Tool, 0755); err != nil {
		t.Fatalf("chmod tool: %v", err)
	}
	return env
}

// writeConfig writes g2_link.cfg with the session keys and the given
// LINK_AT_STARTUP lines.
func (e *gatewayEnv) writeConfig(t *testing.T, links ...string) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "# generated for %s\n", t.Name())
	b.WriteString("LOGIN_CALL = K1ABC\n")
	b.WriteString("TO_G2_EXTERNAL_IP=127.0.0.1\n")
	b.WriteString("MY_G2_LINK_PORT=18997\n")
	fmt.Fprintf(&b, "RF_FLAGS_DIR=%s\n", e.FlagsDir)
	fmt.Fprintf(&b, "STATUS_FILE=%s\n", e.StatusFile)
	for _, l := range links {
		b.WriteString(l + "\n")
	}
	writeFile(t, e.ConfigFile, b.String())
}

// touchMarker marks module as used on RF age ago.
func (e *gatewayEnv) touchMarker(t *testing.T, module string, age time.Duration) {
	t.Helper()
	path := filepath.Join(e.FlagsDir, "local_rf_use_"+module+".txt")
	writeFile(t, path, "")
	when := time.Now().Add(-age)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// calls returns the recorded tool invocations.
func (e *gatewayEnv) calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(e.CallsLog)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading calls log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// writeFile creates a file with the given content, creating parent dirs.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q\ncontent:\n%s", path, substr, string(data))
	}
}
