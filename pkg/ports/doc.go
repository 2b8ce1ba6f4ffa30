/*
Package ports defines the collaborator contracts of the qualification core.

Storage, audit and score-refresh are modeled as interfaces so that the engine
and the outcome state machine stay decoupled from any particular backend
(memory, Redis, SQLite). The package also ships reusable contract test suites
that every adapter must pass.
*/
package ports
