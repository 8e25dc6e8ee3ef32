package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// tree creates:
//
//	root/a.txt        (10 bytes)
//	root/sub/b.go     (20 bytes)
//	root/sub/deep/c   (5 bytes)
func tree(t *testing.T) string {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for path, size := range map[string]int{"a.txt": 10, "sub/b.go": 20, "sub/deep/c": 5} {
		full := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(full, bytes.Repeat([]byte("x"), size), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	return root
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := New("test").Command()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

type jsonResult struct {
	Root string `json:"rootdir"`
	Stat struct {
		Size       string `json:"size"`
		NumFiles   int64  `json:"numFiles"`
		NumDirs    int64  `json:"numDirs"`
		SubFolders []struct {
			Path string `json:"path"`
			Size string `json:"size"`
		} `json:"subFolders"`
	} `json:"stat"`
	Breakdown *struct {
		FileCount int64 `json:"fileCount"`
	} `json:"breakdown"`
}

func decode(t *testing.T, out string) jsonResult {
	t.Helper()

	var result jsonResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}

	return result
}

func TestCommand_JSON(t *testing.T) {
	t.Parallel()

	root := tree(t)

	out, _, err := execute(t, "-o", "json", "--count", "--subfolders", root)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	result := decode(t, out)

	if result.Root != root {
		t.Errorf("rootdir = %q, want %q", result.Root, root)
	}

	if result.Stat.Size != "35" || result.Stat.NumFiles != 3 || result.Stat.NumDirs != 2 {
		t.Errorf("stat = %+v, want size 35, 3 files, 2 dirs", result.Stat)
	}

	if len(result.Stat.SubFolders) != 1 || result.Stat.SubFolders[0].Size != "25" {
		t.Errorf("subFolders = %+v, want one of size 25", result.Stat.SubFolders)
	}
}

func TestCommand_CountingDisabled(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "-o", "json", "--rootdir", tree(t))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	result := decode(t, out)
	if result.Stat.Size != "35" || result.Stat.NumFiles != 0 || result.Stat.NumDirs != 0 {
		t.Errorf("stat = %+v, want size 35 without counts", result.Stat)
	}
}

func TestCommand_Table(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "--count", "--breakdown", tree(t))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	for _, want := range []string{"Directory:", "35 bytes", "Files:", "Top extensions:", ".go", "Elapsed:"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestCommand_List(t *testing.T) {
	t.Parallel()

	root := tree(t)

	out, _, err := execute(t, "-o", "list", "--subfolders", root)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	want := "25 bytes\t" + filepath.Join(root, "sub") + "\n"
	if out != want {
		t.Errorf("list output = %q, want %q", out, want)
	}
}

func TestCommand_File(t *testing.T) {
	t.Parallel()

	root := tree(t)

	out, _, err := execute(t, "-o", "yaml", "--file", filepath.Join(root, "sub", "b.go"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !strings.Contains(out, `size: "20"`) && !strings.Contains(out, "size: 20") {
		t.Errorf("yaml output missing file size:\n%s", out)
	}
}

func TestCommand_Errors(t *testing.T) {
	t.Parallel()

	root := tree(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing path", args: []string{filepath.Join(root, "nope")}, want: "accessing path"},
		{name: "file as root", args: []string{filepath.Join(root, "a.txt")}, want: "not a directory"},
		{name: "bad output", args: []string{"-o", "xml", root}, want: "invalid output format"},
		{name: "bad depth", args: []string{"--name-depth", "0", root}, want: "name-depth"},
		{name: "directory as file", args: []string{"--file", root}, want: "directory"},
		{name: "missing config", args: []string{"--config", filepath.Join(root, "none.yaml"), root}, want: "config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestCommand_ConfigFile(t *testing.T) {
	t.Parallel()

	root := tree(t)
	config := filepath.Join(t.TempDir(), "diskmanager.yaml")

	if err := os.WriteFile(config, []byte("count: true\noutput: json\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, _, err := execute(t, "--config", config, root)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result := decode(t, out); result.Stat.NumFiles != 3 {
		t.Errorf("numFiles = %d, want 3 from config file", result.Stat.NumFiles)
	}
}

func TestCommand_EnvironmentOverriddenByFlag(t *testing.T) {
	t.Setenv("DISKMANAGER_OUTPUT", "xml")
	t.Setenv("DISKMANAGER_COUNT", "true")

	root := tree(t)

	if _, _, err := execute(t, root); err == nil || !strings.Contains(err.Error(), "xml") {
		t.Fatalf("error = %v, want the environment output format to be rejected", err)
	}

	out, _, err := execute(t, "-o", "json", root)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result := decode(t, out); result.Stat.NumFiles != 3 {
		t.Errorf("numFiles = %d, want 3 from the environment", result.Stat.NumFiles)
	}
}

func TestCommand_Version(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if out != "test\n" {
		t.Errorf("version output = %q, want %q", out, "test\n")
	}
}

func TestHumanSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size uint64
		want string
	}{
		{0, "0 bytes"},
		{1023, "1023 bytes"},
		{1024, "1.000 KB"},
		{1536, "1.500 KB"},
		{5 * 1024 * 1024, "5.000 MB"},
		{3 * 1024 * 1024 * 1024, "3.000 GB"},
	}

	for _, tt := range tests {
		if got := HumanSize(tt.size); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestCommand_SymlinkedRootIsResolved(t *testing.T) {
	t.Parallel()

	root := tree(t)
	link := filepath.Join(t.TempDir(), "link")

	if err := os.Symlink(root, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	out, _, err := execute(t, "-o", "json", link)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result := decode(t, out); result.Root != root || result.Stat.Size != "35" {
		t.Errorf("rootdir = %q size = %s, want %q and 35", result.Root, result.Stat.Size, root)
	}
}

func TestCommand_SymlinksBelowRootAreNotFollowed(t *testing.T) {
	t.Parallel()

	root := tree(t)

	if err := os.Symlink(filepath.Join(root, "sub", "b.go"), filepath.Join(root, "link.go")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	out, _, err := execute(t, "-o", "json", "--count", root)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result := decode(t, out); result.Stat.Size != "35" || result.Stat.NumFiles != 3 {
		t.Errorf("stat = %+v, want the link to add nothing", result.Stat)
	}
}

func TestCommand_HelpMentionsSymlinks(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !strings.Contains(out, "Symbolic links below the root are not followed") {
		t.Errorf("help does not describe symlink handling:\n%s", out)
	}
}
