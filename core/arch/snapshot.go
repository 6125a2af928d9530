package arch

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
	ignore "github.com/sabhiram/go-gitignore"
)

// maxFileSize bounds the files loaded into a snapshot.
const maxFileSize = 1 << 20

// SourceFile is one text file of the analyzed tree.
type SourceFile struct {
	Path    string // slash-separated, relative to the snapshot root
	Content []byte
	ModTime time.Time

	lines []string
}

// Ext returns the lower-cased extension of the file.
func (f *SourceFile) Ext() string {
	return strings.ToLower(path.Ext(f.Path))
}

// Base returns the file name.
func (f *SourceFile) Base() string {
	return path.Base(f.Path)
}

// Module returns the directory of the file.
func (f *SourceFile) Module() string {
	return schema.ModuleOfFile(f.Path)
}

// Lines returns the content split into lines without line terminators.
func (f *SourceFile) Lines() []string {
	return f.lines
}

// Snapshot is a read-only view of the analyzed tree shared by every agent of one run.
type Snapshot struct {
	Root    string
	TakenAt time.Time
	Files   []*SourceFile // sorted by path

	byPath map[string]*SourceFile
}

// File returns the file at the relative path.
func (s *Snapshot) File(p string) (*SourceFile, bool) {
	f, ok := s.byPath[p]
	return f, ok
}

// FilesWithExt returns the files whose extension is one of exts, in path order.
func (s *Snapshot) FilesWithExt(exts ...string) []*SourceFile {
	var out []*SourceFile
	for _, f := range s.Files {
		for _, e := range exts {
			if f.Ext() == e {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// FilesByModule returns the number of files per module.
func (s *Snapshot) FilesByModule() map[string]int {
	out := make(map[string]int)
	for _, f := range s.Files {
		out[f.Module()]++
	}
	return out
}

// NewSnapshot builds a snapshot from in-memory files. Used by tests and by the fix loop.
func NewSnapshot(root string, takenAt time.Time, files map[string]string) *Snapshot {
	s := &Snapshot{Root: root, TakenAt: takenAt, byPath: make(map[string]*SourceFile, len(files))}
	for p, content := range files {
		s.add(&SourceFile{Path: p, Content: []byte(content), ModTime: takenAt})
	}
	s.sortFiles()
	return s
}

func (s *Snapshot) add(f *SourceFile) {
	f.lines = splitLines(f.Content)
	s.Files = append(s.Files, f)
	s.byPath[f.Path] = f
}

func (s *Snapshot) sortFiles() {
	sort.Slice(s.Files, func(i, j int) bool { return s.Files[i].Path < s.Files[j].Path })
}

// LoadSnapshot walks root once and loads every text file that is not excluded or ignored by .gitignore.
func LoadSnapshot(ctx context.Context, root string, excludes []string) (*Snapshot, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot read target path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("target path %s is not a directory", root)
	}

	var gitignore *ignore.GitIgnore
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		gitignore = gi
	}

	snap := &Snapshot{Root: root, TakenAt: time.Now(), byPath: make(map[string]*SourceFile)}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			contract.Logger.Debug("skipping unreadable path", "path", p, "err", walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" || contract.ShouldIgnore(rel+"/", excludes) || (gitignore != nil && gitignore.MatchesPath(rel+"/")) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || contract.ShouldIgnore(rel, excludes) || (gitignore != nil && gitignore.MatchesPath(rel)) {
			return nil
		}

		fi, err := d.Info()
		if err != nil || fi.Size() > maxFileSize {
			return nil
		}
		content, err := os.ReadFile(p)
		if err != nil {
			contract.Logger.Debug("skipping unreadable file", "path", rel, "err", err)
			return nil
		}
		if isBinary(content) {
			return nil
		}
		snap.add(&SourceFile{Path: rel, Content: content, ModTime: fi.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	snap.sortFiles()
	return snap, nil
}

// ApplyGitHistory replaces file modification times with the time of the last commit touching each file,
// which survives fresh checkouts. Untracked files keep their filesystem time.
// It returns the HEAD commit, or "" when the root is not inside a Git work tree.
func (s *Snapshot) ApplyGitHistory(ctx context.Context, client contract.GitClient) string {
	repoRoot, err := client.GetRepoRoot(ctx, s.Root)
	if err != nil {
		contract.Logger.Debug("no git history for snapshot", "root", s.Root, "err", err)
		return ""
	}
	times, err := client.GetLastCommitTimes(ctx, repoRoot)
	if err != nil {
		contract.LogWarn("git history unavailable", err)
		return ""
	}

	root := s.Root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if resolved, err := filepath.EvalSymlinks(repoRoot); err == nil {
		repoRoot = resolved
	}
	prefix, err := filepath.Rel(repoRoot, root)
	if err != nil || strings.HasPrefix(prefix, "..") {
		return ""
	}
	prefix = filepath.ToSlash(prefix)

	for _, f := range s.Files {
		key := f.Path
		if prefix != "." {
			key = prefix + "/" + f.Path
		}
		if t, ok := times[key]; ok {
			f.ModTime = t
		}
	}

	hash, err := client.GetRepoHash(ctx, repoRoot)
	if err != nil {
		contract.Logger.Debug("no HEAD commit", "root", repoRoot, "err", err)
		return ""
	}
	return hash
}

// isBinary reports whether content looks like a binary file.
func isBinary(content []byte) bool {
	head := content
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}

func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
