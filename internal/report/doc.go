// Package report writes the run's two tables, one row per metric record and
// one per issue, as csv, json or parquet.
//
// Use [NewWriter] with a format name, then [Writer.Write] with the output
// directory and a label such as "gemini-gemini-2.0-flash". [Summarize] and
// [WriteSummary] print the end-of-run overview.
package report
