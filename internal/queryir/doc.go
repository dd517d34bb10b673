// Package queryir provides the fragment intermediate representation (IR)
// produced by condition resolution and consumed by query backends.
//
// A Fragment is the unit of query-building output: a set of column
// conditions plus the nested join structure required to apply them.
//
//	[name] → [resolver] → [Fragment] → [SQL backend]
//
// JOIN TREES:
//
// JoinTree is a nested map from association name to the joins made through
// that association. An empty child is a leaf join. Multi-hop joins nest
// strictly:
//
//	comments_author_name_equals  →  {comments: {}}
//	posts_with_active_author     →  {posts: {author: {}}}
//
// Trees are merged by path concatenation; merging never drops a branch that
// already exists on either side.
//
// SEALED INTERFACES:
//
// Predicate is a sealed interface using the marker method pattern. Only
// types in this package can implement it. Backends switch exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Compare:
//	...
//	}
//
// NATIVE FRAGMENTS:
//
// NativeFragment is the shape an entity's own filter returns before the
// resolver rewrites it. It carries a ReadOnly marker; fragments handed out
// for composition always have it cleared.
package queryir
