package config

// Default returns the built-in configuration. Each call returns a fresh copy.
func Default() *BuildConfiguration {
	return &BuildConfiguration{
		Content: []string{"./src/**/*.{html,js,svelte,ts}"},
		Theme: Theme{
			Extend: Extensions{
				CategoryColors: TokenSet{
					"primary":   Scaled("#821528", map[string]string{"light": "#a13346"}),
					"secondary": Solid("#687998"),
					"accent":    Solid("#404dbf"),
					"neutral":   Solid("#8fbc94"),
				},
			},
		},
		Plugins: []string{},
	}
}
