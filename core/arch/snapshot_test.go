package arch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/triad/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoadSnapshot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":            "*.log\ndist/\n",
		"main.go":               "package main\r\nfunc main() {}\r\n",
		"pkg/util.py":           "x = 1\n",
		"debug.log":             "noise\n",
		"dist/bundle.js":        "var a;\n",
		".git/config":           "[core]\n",
		"node_modules/x/y.js":   "var b;\n",
		"assets/logo.png":       "\x89PNG\x00\x00",
		"vendor/lib/ignored.go": "package lib\n",
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "huge.txt"), []byte(strings.Repeat("a", maxFileSize+1)), 0o644))

	snap, err := LoadSnapshot(context.Background(), root, []string{"node_modules/", "vendor/"})
	require.NoError(t, err)

	var paths []string
	for _, f := range snap.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{".gitignore", "main.go", "pkg/util.py"}, paths)

	f, ok := snap.File("main.go")
	require.True(t, ok)
	assert.Equal(t, []string{"package main", "func main() {}"}, f.Lines())
	assert.Equal(t, ".go", f.Ext())
	assert.Equal(t, ".", f.Module())

	assert.Equal(t, map[string]int{".": 2, "pkg": 1}, snap.FilesByModule())
	assert.Len(t, snap.FilesWithExt(".py", ".go"), 2)
}

func TestLoadSnapshot_Errors(t *testing.T) {
	_, err := LoadSnapshot(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = LoadSnapshot(context.Background(), file, nil)
	assert.ErrorContains(t, err, "not a directory")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.go": "package a\n"})
	_, err = LoadSnapshot(ctx, dir, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSnapshot(t *testing.T) {
	snap := NewSnapshot("/repo", fixedNow, map[string]string{
		"b/x.py": "",
		"a.py":   "one\ntwo",
	})
	require.Len(t, snap.Files, 2)
	assert.Equal(t, "a.py", snap.Files[0].Path)
	assert.Equal(t, []string{"one", "two"}, snap.Files[0].Lines())
	assert.Nil(t, snap.Files[1].Lines())
	assert.Equal(t, fixedNow, snap.Files[1].ModTime)

	_, ok := snap.File("missing.py")
	assert.False(t, ok)
}

func TestApplyGitHistory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":    "package main\n",
		"scratch.go": "package main\n",
	})
	snap, err := LoadSnapshot(context.Background(), root, nil)
	require.NoError(t, err)
	scratch, _ := snap.File("scratch.go")
	fsTime := scratch.ModTime

	repoRoot := filepath.Dir(root)
	committed := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	git := new(contract.MockGitClient)
	git.On("GetRepoRoot", mock.Anything, root).Return(repoRoot, nil)
	git.On("GetLastCommitTimes", mock.Anything, mock.Anything).
		Return(map[string]time.Time{filepath.Base(root) + "/main.go": committed}, nil)
	git.On("GetRepoHash", mock.Anything, mock.Anything).Return("0123abcd", nil)

	assert.Equal(t, "0123abcd", snap.ApplyGitHistory(context.Background(), git))
	mainFile, _ := snap.File("main.go")
	assert.True(t, mainFile.ModTime.Equal(committed))
	assert.True(t, scratch.ModTime.Equal(fsTime), "untracked files keep their filesystem time")
	git.AssertExpectations(t)
}

func TestApplyGitHistory_NotARepository(t *testing.T) {
	snap := NewSnapshot("/work/app", time.Now(), map[string]string{"a.go": "package a\n"})
	git := new(contract.MockGitClient)
	git.On("GetRepoRoot", mock.Anything, "/work/app").Return("", assert.AnError)

	assert.Empty(t, snap.ApplyGitHistory(context.Background(), git))
	git.AssertNotCalled(t, "GetLastCommitTimes", mock.Anything, mock.Anything)
}
