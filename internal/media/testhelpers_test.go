package media

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// skipIfNoTool skips the test if the named binary is not available.
func skipIfNoTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not found in PATH, skipping test", name)
	}
}

// fakeTool writes an executable shell script and returns its path.
// The script records its arguments, one per line, in a file next to it.
func fakeTool(t *testing.T, body string) (toolPath, argsPath string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools need a POSIX shell")
	}

	dir := t.TempDir()
	toolPath = filepath.Join(dir, "tool")
	argsPath = filepath.Join(dir, "args.txt")

	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > '" + argsPath + "'\n" + body + "\n"
	if err := os.WriteFile(toolPath, []byte(script), 0o755); err != nil { // #nosec G306 - test helper
		t.Fatalf("write fake tool: %v", err)
	}
	return toolPath, argsPath
}

// recordedArgs reads the arguments captured by a fake tool.
func recordedArgs(t *testing.T, argsPath string) []string {
	t.Helper()
	data, err := os.ReadFile(argsPath)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}
