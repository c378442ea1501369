package source

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func collect(t *testing.T, e *Enumerator, root string) []Unit {
	t.Helper()
	var units []Unit
	for u, err := range e.Walk(root) {
		require.NoError(t, err)
		units = append(units, u)
	}
	return units
}

func names(units []Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Name
	}
	return out
}

func TestWalk_ExtensionFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "print(1)")
	writeFile(t, root, "b.go", "package b")
	writeFile(t, root, "README.md", "# r")
	writeFile(t, root, "src/c.java", "class C {}")
	writeFile(t, root, "src/d.PY", "upper")
	writeFile(t, root, "src/e.ts", "let e = 1")

	e, err := New(nil, nil, 10)
	require.NoError(t, err)

	units := collect(t, e, root)
	assert.Equal(t, []string{"a.py", "src/c.java", "src/e.ts"}, names(units))
	for _, u := range units {
		assert.True(t, filepath.IsAbs(u.Path), u.Path)
		assert.Empty(t, u.Content)
	}
}

func TestWalk_Ceiling(t *testing.T) {
	root := t.TempDir()
	const maxFiles = 3
	for i := range maxFiles + 1 {
		writeFile(t, root, fmt.Sprintf("f%d.py", i), "x = 1")
	}

	e, err := New(nil, nil, maxFiles)
	require.NoError(t, err)

	units := collect(t, e, root)
	assert.Equal(t, []string{"f0.py", "f1.py", "f2.py"}, names(units))

	n, err := e.Count(root)
	require.NoError(t, err)
	assert.Equal(t, maxFiles, n)
}

func TestWalk_CeilingIgnoresIneligible(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "")
	writeFile(t, root, "b.txt", "")
	writeFile(t, root, "c.c", "int main(){}")
	writeFile(t, root, "d.cs", "class D {}")

	e, err := New(nil, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c.c", "d.cs"}, names(collect(t, e, root)))
}

func TestWalk_Exclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.js", "")
	writeFile(t, root, "node_modules/lib/index.js", "")
	writeFile(t, root, "src/gen/api.pb.cpp", "")
	writeFile(t, root, "src/main.cpp", "")

	e, err := New(nil, []string{"node_modules", "**/*.pb.cpp"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.js", "src/main.cpp"}, names(collect(t, e, root)))
}

func TestWalk_SymlinkedFiles(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, root, "a.py", "")
	writeFile(t, outside, "shared.py", "")
	writeFile(t, outside, "lib/dep.py", "")
	if err := os.Symlink(filepath.Join(outside, "shared.py"), filepath.Join(root, "link.py")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(outside, "lib"), filepath.Join(root, "lib")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.py"), filepath.Join(root, "dangling.py")))

	e, err := New(nil, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "link.py"}, names(collect(t, e, root)))
}

func TestWalk_CustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "a.py", "")

	e, err := New([]string{".go"}, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, names(collect(t, e, root)))
}

func TestWalk_MissingRoot(t *testing.T) {
	e, err := New(nil, nil, 10)
	require.NoError(t, err)

	var errs []error
	for _, err := range e.Walk(filepath.Join(t.TempDir(), "missing")) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)

	_, err = e.Count(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestWalk_EarlyBreak(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "")
	writeFile(t, root, "b.py", "")

	e, err := New(nil, nil, 10)
	require.NoError(t, err)

	seen := 0
	for range e.Walk(root) {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestNew_InvalidExclude(t *testing.T) {
	_, err := New(nil, []string{"src/[a-"}, 10)
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	e, err := New(nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxFiles, e.maxFiles)
	assert.True(t, e.Eligible("x.cpp"))
	assert.False(t, e.Eligible("x.hpp"))
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "print('hi')\n")

	e, err := New(nil, nil, 10)
	require.NoError(t, err)
	units := collect(t, e, root)
	require.Len(t, units, 1)

	u, err := Load(units[0])
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", u.Content)

	require.NoError(t, os.Remove(units[0].Path))
	_, err = Load(units[0])
	assert.Error(t, err)
}

func TestValidateRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "")
	assert.NoError(t, ValidateRoot(root))
	assert.ErrorIs(t, ValidateRoot(filepath.Join(root, "a.py")), ErrNotDir)
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "python", Language("x/y.py"))
	assert.Equal(t, "csharp", Language("Program.cs"))
	assert.Equal(t, "", Language("notes.txt"))
}
