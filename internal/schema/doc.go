// Package schema loads entity metadata and implements the entity
// collaborator the resolver consumes.
//
// Schemas are written in CUE (loaded with cuelang.org/go) or YAML:
//
//	entity: Post: {
//		table: "posts"
//		columns: { id: "int", title: "string", author_id: "int" }
//		associations: {
//			comments: { target: "Comment", kind: "has_many" }
//			author:   { target: "User", kind: "belongs_to" }
//		}
//		scopes: {
//			titled: { where: [{ column: "title", condition: "not_null" }] }
//		}
//	}
//
// A Catalog compiles a schema into Entities. Each Entity answers its own
// scopes and column conditions (title_equals, title_eq, ...) and hands every
// other name to its resolver, so association conditions such as
// comments_body_like and author_name_equals work on any entity without
// being declared.
package schema
