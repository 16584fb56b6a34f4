/*
Package domain contains the core types of the wit conversation client.

It is kept free of I/O: the transport, stores and front ends live in adapters.

# Key Entities

  - Context: JSON-compatible conversation state, deep-cloned between steps.
  - Instruction: one decoded step of the converse protocol (stop, msg, merge, action, error).
  - Session: the persisted snapshot of a conversation (id, context, turn count).
  - LifecycleHooks: callbacks fired by the step engine for observability.
*/
package domain
