// Package gateway ties the request path together: one borrowed
// configuration runtime, the routing decision, the dispatch across
// provider candidates, and the sealed trace record.
//
// A Runtime pairs a configuration snapshot with the adapter registry
// built from it, published through an atomic pointer. Requests borrow
// the pair once and keep it for their whole lifetime; a reload installs
// a fresh pair and never disturbs in-flight work.
//
// Every request produces exactly one trace record. For non-streaming
// requests the record is sealed when dispatch returns. For streams it
// is sealed when the event channel ends, because only then is the
// attempt log complete and the token usage known.
package gateway
