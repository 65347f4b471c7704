// Package resolve disambiguates provider lookup results.
//
// Given the candidate list returned by an upstream find-by-foreign-id call,
// Resolve deterministically picks a single best match or reports why it
// could not. It is a pure function: same inputs, same outcome. When two
// candidates are equally strong by every available signal the package fails
// closed and reports an ambiguous outcome rather than guessing.
package resolve
