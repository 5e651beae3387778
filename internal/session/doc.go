// Package session stores chat transcripts by session id.
//
// Two backends exist: an in-process map (MemoryStore) and Valkey
// (ValkeyStore). Both expire transcripts after a configurable TTL.
package session
