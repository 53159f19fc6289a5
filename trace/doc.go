// Package trace defines the entity types for captured pipeline executions.
//
// This package contains type definitions and deep-copy helpers only. All
// other packages import trace; trace imports nothing from this module. This
// keeps the data model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Payload fields (input, output, data, context values) are opaque Value
//     unions - the core never interprets them, only passes them through
//   - All JSON tags use camelCase
//   - An Execution exclusively owns its Steps and their Evaluations; sharing
//     across executions is never valid. Clone produces a fully decoupled copy
//   - Step.EndTime stays zero until the step reaches a terminal status
package trace
