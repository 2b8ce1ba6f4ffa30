/*
Package session serializes access to single-writer entities.

An Execution and a Lead each allow one writer at a time: concurrent answers
on the same execution, or concurrent outcome commands on the same lead, must
not lose updates. The Guard hands out per-key mutexes with reference-counted
garbage collection, and can additionally hold a distributed lock when the
service runs with replicas.
*/
package session
