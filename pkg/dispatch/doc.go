// Package dispatch walks a model's provider candidates until one of
// them serves the request.
//
// # Candidate order
//
// Candidates come pre-sorted from the configuration snapshot, ascending
// by priority with declaration order breaking ties. A candidate whose
// provider is missing from the registry is skipped outright and does
// not count as an attempt; the registry only holds enabled providers.
//
// # Failure classes
//
// Every attempt failure is classified before the next step is chosen.
// Transient classes (timeouts, 408, 429, 5xx, auth rejections before
// response bytes, transport faults) move dispatch to the next
// candidate. A permanent class (any other 4xx) fails the dispatch
// immediately, since retrying the same request elsewhere cannot help.
// When all candidates fail transiently the caller gets an
// AllProvidersFailedError carrying each classified attempt in order.
//
// # Streaming
//
// A stream becomes the dispatch's single outcome the moment its first
// event is handed to the caller. Until then a failed stream attempt
// fails over like any other; after that an upstream failure is
// forwarded as the terminal error event on the channel and no other
// candidate is tried, because the caller has already seen partial
// output that cannot be unsent.
//
// # Authentication
//
// Credentials are resolved per attempt: static API keys straight from
// the provider configuration, OAuth access tokens through a
// TokenSource that may refresh them. A token that cannot be resolved
// classifies as a transient auth failure, so dispatch moves on rather
// than giving up.
package dispatch
