/*
Package domain contains the core entities of the lead qualification engine.

It defines the script graph (ScriptDefinition, Node, Option, ActionTrigger),
the traversal records (Execution, Response) and the Lead with its outcome
statuses. This package is kept pure and free of external dependencies like
I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - ScriptDefinition: a finite set of question nodes connected by answer-dependent edges.
  - Node: one question of the script, with its scoring weight and routing edges.
  - Execution: one traversal of a script for a specific lead.
  - Response: one immutable answered-node row, ordered by creation.
  - Lead: the prospect record, governed by the outcome state machine.
*/
package domain
