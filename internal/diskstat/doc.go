// Package diskstat computes rolled-up disk usage statistics for directory trees.
//
// It offers two traversal modes. The nested mode (Aggregator.StatTree) returns one
// Stat per directory with optional embedded sub-folder detail. The accumulating mode
// (Aggregator.StatInto together with NameBuilder.BuildInto) writes flat, path-keyed
// entries into a per-run Accumulator so that a viewer can navigate a lazily expandable
// name tree while statistics are still being computed.
package diskstat
