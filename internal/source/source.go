package source

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtensions is the allow-list used when none is configured.
var DefaultExtensions = []string{".py", ".js", ".java", ".cpp", ".cs", ".ts", ".c"}

// DefaultMaxFiles caps how many files one run analyzes.
const DefaultMaxFiles = 50

// Unit is one source file selected for analysis. Content is empty until
// Load is called.
type Unit struct {
	// Path is the absolute path of the file.
	Path string
	// Name is the path relative to the walk root, slash separated.
	Name    string
	Content string
}

// Enumerator selects eligible files under a root directory.
type Enumerator struct {
	extensions []string
	exclude    []string
	maxFiles   int
}

// New creates an Enumerator. Extension matching is case-sensitive and
// includes the leading dot. Exclude patterns are doublestar globs matched
// against the slash-separated path relative to the root.
func New(extensions, exclude []string, maxFiles int) (*Enumerator, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &Enumerator{
		extensions: slices.Clone(extensions),
		exclude:    slices.Clone(exclude),
		maxFiles:   maxFiles,
	}, nil
}

// Eligible reports whether the file name has an allowed extension.
func (e *Enumerator) Eligible(name string) bool {
	return slices.Contains(e.extensions, filepath.Ext(name))
}

func (e *Enumerator) excluded(rel string) bool {
	for _, p := range e.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Walk yields eligible files under root in lexical walk order. It keeps a
// running count of eligible files and stops the traversal as soon as the
// count would exceed the ceiling, so at most MaxFiles units are produced.
// Symlinks to regular files are yielded; symlinked directories are not
// entered. Unreadable directories are skipped. A missing or unreadable root is
// yielded as a single error.
func (e *Enumerator) Walk(root string) iter.Seq2[Unit, error] {
	return func(yield func(Unit, error) bool) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			yield(Unit{}, fmt.Errorf("resolving root: %w", err))
			return
		}
		if err := ValidateRoot(absRoot); err != nil {
			yield(Unit{}, fmt.Errorf("reading root: %w", err))
			return
		}

		count := 0
		_ = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			rel, _ := filepath.Rel(absRoot, path)
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if path != absRoot && e.excluded(rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if !regularFile(path, d) || e.excluded(rel) || !e.Eligible(d.Name()) {
				return nil
			}

			count++
			if count > e.maxFiles {
				return fs.SkipAll
			}
			if !yield(Unit{Path: path, Name: rel}, nil) {
				return fs.SkipAll
			}
			return nil
		})
	}
}

// regularFile reports whether d is a regular file or a symlink to one.
// Symlinked directories are not followed.
func regularFile(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Count returns how many units Walk would yield for root.
func (e *Enumerator) Count(root string) (int, error) {
	n := 0
	for _, err := range e.Walk(root) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Load reads the unit's content.
func Load(u Unit) (Unit, error) {
	data, err := os.ReadFile(u.Path)
	if err != nil {
		return u, fmt.Errorf("reading %s: %w", u.Name, err)
	}
	u.Content = string(data)
	return u, nil
}

// ErrNotDir is returned by ValidateRoot when root is a file.
var ErrNotDir = errors.New("not a directory")

// ValidateRoot checks that root exists and is a directory.
func ValidateRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", root, ErrNotDir)
	}
	return nil
}

var languages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".java": "java",
	".cpp":  "cpp",
	".cc":   "cpp",
	".hpp":  "cpp",
	".c":    "c",
	".h":    "c",
	".cs":   "csharp",
	".go":   "go",
	".rb":   "ruby",
	".rs":   "rust",
	".php":  "php",
	".kt":   "kotlin",
}

// Language returns the fence tag for a file, or "" when unknown.
func Language(name string) string {
	return languages[strings.ToLower(filepath.Ext(name))]
}
