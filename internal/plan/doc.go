// Package plan turns packed bins into the artifacts a user acts on: per-disk
// summary lines, a bash script that moves files into diskNNN directories, and
// a YAML manifest of the same plan.
package plan
