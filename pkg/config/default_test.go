package config

import (
	"slices"
	"testing"
)

func TestDefault_Colors(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		want Token
	}{
		{"primary", Scaled("#821528", map[string]string{"light": "#a13346"})},
		{"secondary", Solid("#687998")},
		{"accent", Solid("#404dbf")},
		{"neutral", Solid("#8fbc94")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cfg.Color(tt.name)
			if !ok {
				t.Fatalf("color %s not present", tt.name)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	for _, unknown := range []string{"tertiary", "Primary", ""} {
		if tok, ok := cfg.Color(unknown); ok {
			t.Errorf("unknown color %q must not be present, got %v", unknown, tok)
		}
	}
	if _, ok := cfg.Token("spacing", "primary"); ok {
		t.Error("unknown category must not be present")
	}
}

func TestDefault_Content(t *testing.T) {
	cfg := Default()

	if len(cfg.Content) != 1 {
		t.Fatalf("expected 1 content glob, got %d", len(cfg.Content))
	}
	if cfg.Content[0] != "./src/**/*.{html,js,svelte,ts}" {
		t.Errorf("unexpected content glob %q", cfg.Content[0])
	}
}

func TestDefault_Plugins(t *testing.T) {
	cfg := Default()

	if cfg.Plugins == nil || len(cfg.Plugins) != 0 {
		t.Fatalf("expected empty plugin list, got %#v", cfg.Plugins)
	}

	next := cfg.WithPlugin("@tailwindcss/forms").WithPlugin("./plugins/brand.star").WithPlugin("@tailwindcss/typography")
	want := []string{"@tailwindcss/forms", "./plugins/brand.star", "@tailwindcss/typography"}
	if !slices.Equal(next.Plugins, want) {
		t.Errorf("expected plugins %v, got %v", want, next.Plugins)
	}

	if len(cfg.Plugins) != 0 {
		t.Errorf("WithPlugin modified the receiver: %v", cfg.Plugins)
	}
}

func TestDefault_ReturnsFreshCopy(t *testing.T) {
	a := Default()
	a.Content[0] = "changed"
	a.Theme.Extend[CategoryColors]["accent"] = Solid("#000000")

	b := Default()
	if b.Content[0] == "changed" {
		t.Error("content shared between calls")
	}
	if tok, _ := b.Color("accent"); tok.Value() != "#404dbf" {
		t.Errorf("theme shared between calls: accent=%v", tok)
	}
}

func TestBuildConfiguration_Clone(t *testing.T) {
	orig := Default()
	clone := orig.Clone()

	clone.Theme.Extend[CategoryColors]["primary"] = Solid("#ffffff")
	clone.Content = append(clone.Content, "./lib/**/*.js")

	if tok, _ := orig.Color("primary"); !tok.IsScaled() {
		t.Error("clone shares token sets with original")
	}
	if len(orig.Content) != 1 {
		t.Error("clone shares content with original")
	}
}
