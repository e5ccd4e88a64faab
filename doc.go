// Package iptree maintains a running hit count against IPv4 and IPv6
// addresses while keeping the set of tracked entities bounded.
//
// Individual addresses are inserted as leaves of a binary prefix trie,
// one trie per address family. Whenever the number of distinct leaves
// below a configured checkpoint depth exceeds that checkpoint's limit,
// the leaves below it collapse into a single aggregate node which
// continues to absorb hits to any address in its range.
//
// The package keeps no locks and suspends nothing: every Add, Find and
// Remove call is synchronous, and callers needing concurrent access
// must serialize it themselves (one writer, or many readers, never
// both at once).
package iptree
