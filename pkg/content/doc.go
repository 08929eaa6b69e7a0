// Package content matches content globs against source trees.
//
// Content globs tell the style generation tool which files to scan for
// utility-class usage. This package compiles them with github.com/gobwas/glob
// and adds the path semantics build tools expect: "**/" may match zero
// directories, a leading "./" is ignored and "!" excludes.
//
//	m, err := content.Compile([]string{"./src/**/*.{html,js,svelte,ts}"})
//	if err != nil {
//	    return err
//	}
//	m.Match("src/App.svelte") // true
//	m.Match("README.md")      // false
//
// Scanner walks a directory and reports which files each pattern selects,
// which is how zero-match globs are detected.
package content
