// Package pipeline drives a run: it enumerates files, gets a reply for each
// one through the retry controller, parses it and aggregates the records.
//
// Files are handled strictly one after another. A file that cannot be read
// or that gets no reply after every retry is logged, counted in [RunState]
// and skipped; the run always continues to the next file.
package pipeline
