package orchestrator

import (
	"fmt"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// WithThemeSelector wires a go-theme selector into the pipeline. Active
// themes contribute their partial table as resolution aliases and expose
// tokens, CSS variables, and the asset resolver to templates under the
// "theme" key.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(o *Orchestrator) {
		o.themeSelector = selector
	}
}

// WithTheme sets the theme and variant resolved when a request does not name
// its own.
func WithTheme(name, variant string) Option {
	return func(o *Orchestrator) {
		o.themeName = name
		o.themeVariant = variant
	}
}

// WithThemeFallbacks registers partial aliases applied beneath the selected
// theme's own template table, so a theme only has to override the partials it
// restyles.
func WithThemeFallbacks(fallbacks map[string]string) Option {
	return func(o *Orchestrator) {
		if len(fallbacks) == 0 {
			return
		}
		if o.themeFallbacks == nil {
			o.themeFallbacks = make(map[string]string, len(fallbacks))
		}
		for name, target := range fallbacks {
			o.themeFallbacks[name] = target
		}
	}
}

// selectTheme resolves the theme for one request. Returns nil when no
// selector is configured; renders then run unthemed.
func (o *Orchestrator) selectTheme(req Request) (*theme.RendererConfig, error) {
	if o.themeSelector == nil {
		return nil, nil
	}

	name := req.ThemeName
	if name == "" {
		name = o.themeName
	}
	variant := req.ThemeVariant
	if variant == "" {
		variant = o.themeVariant
	}

	selection, err := o.themeSelector.Select(name, variant)
	if err != nil {
		return nil, fmt.Errorf("partial: select theme %q: %w", name, err)
	}
	if selection == nil {
		return nil, nil
	}
	return rendererConfig(selection, o.themeFallbacks), nil
}

// rendererConfig derives the merged partial table, tokens, CSS variables, and
// asset resolver from a theme selection. Variant values override the base
// manifest, which overrides the configured fallbacks.
func rendererConfig(selection *theme.Selection, fallbacks map[string]string) *theme.RendererConfig {
	cfg := &theme.RendererConfig{
		Theme:   selection.Theme,
		Variant: selection.Variant,
	}

	partials := make(map[string]string, len(fallbacks))
	for name, target := range fallbacks {
		partials[name] = target
	}
	tokens := map[string]string{}
	assetPrefix := ""
	assetFiles := map[string]string{}

	if manifest := selection.Manifest; manifest != nil {
		for name, target := range manifest.Templates {
			partials[name] = target
		}
		for key, value := range manifest.Tokens {
			tokens[key] = value
		}
		assetPrefix = manifest.Assets.Prefix
		for key, file := range manifest.Assets.Files {
			assetFiles[key] = file
		}

		if variant, ok := manifest.Variants[selection.Variant]; ok {
			for name, target := range variant.Templates {
				partials[name] = target
			}
			for key, value := range variant.Tokens {
				tokens[key] = value
			}
			if variant.Assets.Prefix != "" {
				assetPrefix = variant.Assets.Prefix
			}
			for key, file := range variant.Assets.Files {
				assetFiles[key] = file
			}
		}
	}

	cfg.Partials = partials
	cfg.Tokens = tokens

	cssVars := make(map[string]string, len(tokens))
	for key, value := range tokens {
		cssVars["--"+key] = value
	}
	cfg.CSSVars = cssVars

	prefix := strings.TrimSuffix(assetPrefix, "/")
	cfg.AssetURL = func(key string) string {
		file := assetFiles[key]
		if file == "" {
			return ""
		}
		if prefix == "" {
			return file
		}
		return prefix + "/" + file
	}

	return cfg
}

// themeVars exposes the active theme to templates under the "theme" key.
func themeVars(cfg *theme.RendererConfig) map[string]any {
	if cfg == nil {
		return nil
	}
	return map[string]any{
		"name":     cfg.Theme,
		"variant":  cfg.Variant,
		"tokens":   cfg.Tokens,
		"css_vars": cfg.CSSVars,
		"asset":    cfg.AssetURL,
	}
}
