// Package ir provides the value and schema types shared by every condscope
// package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps IR the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types in filter arguments - use int64 for numbers
//   - Dates travel as ISO-8601 IRString values
//   - All JSON/YAML tags use snake_case
package ir
