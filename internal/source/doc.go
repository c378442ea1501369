// Package source finds the files a run will analyze.
//
// An Enumerator walks a directory tree with filepath.WalkDir, keeps files
// whose extension is on the allow-list, prunes doublestar exclude globs, and
// stops once the per-run ceiling is reached. Content is read separately by
// Load so that only the file being analyzed is held in memory.
package source
