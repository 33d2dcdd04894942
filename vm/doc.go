// Package vm implements the seedcore execution engine.
//
// This package contains:
//   - The tagged Object model shared by the analyzer and the interpreter
//   - The Type registry with its lazily populated dispatch caches
//   - Declaration scopes and the pattern Matcher
//   - The Executor (Evaluate, ExecCall, ExecDynamic)
//   - The dynamic-operation dispatcher (construct, copy, destroy, ord, in)
//   - The failure channel, call stack reporting and interrupt handling
//   - A compact primitive action library
package vm
