// Package condition defines the condition vocabulary: the known condition
// kinds (equals, greater_than, like, ...) with their argument arity, their
// advisory argument type, and the predicate each one builds.
//
// Kinds are either primary or alias. An alias (eq, gt, contains) always
// names the primary kind it stands for and builds exactly the same
// predicate. The vocabulary keeps kinds in declaration order because name
// matching is order sensitive.
package condition
