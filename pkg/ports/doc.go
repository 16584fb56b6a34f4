/*
Package ports defines the driven ports (interfaces) of the wit client.

These interfaces decouple the dispatch loop from the HTTP API, the storage
backends and the lock providers, so each can be swapped or faked in tests.

# Key Interfaces

  - Transport: talks to the remote message and converse endpoints.
  - SessionStore: persists and loads session snapshots between turns.
  - DistributedLocker: serialises turns of one session across replicas.
*/
package ports
