// Package plugins resolves plugin references listed in a build configuration.
//
// A reference resolves when it names a known builtin package or points at a
// Starlark file (*.star) that loads cleanly and defines a plugin function.
// Starlark files are loaded in a sandboxed thread: load() is rejected, print
// output is suppressed and loading is bounded by a timeout. The plugin
// function itself is never called; running plugins belongs to the style tool.
package plugins
