/*
Package session implements session management and persistence orchestration.

A Manager serialises the turns of each session, optionally across replicas with a
distributed lock, and persists the context each turn produces.
*/
package session
