// Package closure implements closure conversion over HIR method bodies.
//
// The pass runs in four steps over one method:
//
//   - BuildScopeTree walks the body once and records the lexical scope tree,
//     the lambdas and local functions (closures) and their raw captures.
//   - ComputeLambdaScopesAndFrameCaptures places every closure at the
//     shallowest scope that declares something it captures and computes which
//     scopes need a link to an enclosing frame and which cannot be structs.
//   - SynthesizeEnvironments creates one display class or struct per scope
//     that holds captured state and a synthesized method per closure.
//   - Rewrite produces the new body: environments are allocated on scope
//     entry, captured variables become field accesses, closures become
//     delegate creations or direct calls of the synthesized methods.
//
// A Session carries state shared by all methods of a compilation (the shared
// singleton environments, the debug-id allocator, the synthesizer) and is safe
// for concurrent use. Everything else is owned by a single Rewrite call.
package closure
