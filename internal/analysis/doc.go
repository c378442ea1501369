// Package analysis builds the review prompt for one source file and turns
// the backend's reply into metric and issue records.
//
// Parse is tolerant by contract: a reply that cannot be decoded yields no
// records, and a record with missing or malformed fields is kept with
// sentinel values (Unknown scores, line 0, "N/A" text).
package analysis
