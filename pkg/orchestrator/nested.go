package orchestrator

import (
	"context"

	"github.com/goliatone/go-partial/pkg/view"
)

// nestedCall is the callable installed under the "partial" view-data key so
// templates can render child partials inline:
//
//	{{ partial("_row", item)|safe }}
//
// Each call runs the full pipeline against the invoking render's own child
// context, so path-relative references resolve from the template that issued
// them and view-data chains through unchanged.
type nestedCall struct {
	orch         *Orchestrator
	ctx          context.Context
	ambient      *view.Context
	themeName    string
	themeVariant string
}

// render is invoked by the template engine. The optional second argument
// becomes the child's model.
func (n *nestedCall) render(name string, model ...any) (string, error) {
	req := Request{
		Name:         name,
		Ambient:      n.ambient,
		ThemeName:    n.themeName,
		ThemeVariant: n.themeVariant,
	}
	if len(model) > 0 {
		req.Model = &view.Expression{Value: model[0]}
	}

	result, err := n.orch.Render(n.ctx, req)
	if err != nil {
		return "", err
	}
	return string(result.Content), nil
}
