// Package breakdown reports which file extensions and which individual files account
// for the bytes of a directory tree.
//
// It walks the tree with fastwalk for parallel traversal, independently of the
// per-directory aggregation done by package diskstat.
package breakdown
