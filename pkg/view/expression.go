package view

import "strings"

// Expression binds a value extracted from the caller's model to the field name
// it was addressed by. Partials receive the bound value as their model and use
// the field name to extend the inherited field prefix.
type Expression struct {
	// Value is the evaluated model payload handed to the partial.
	Value any
	// FieldName is the dotted path fragment that addressed Value on the
	// caller's model. Empty when the expression carries a whole-model binding.
	FieldName string
}

// JoinFieldPrefix combines a parent prefix with a child field name using the
// dotted-path convention shared by renderers and validators.
func JoinFieldPrefix(parent, child string) string {
	parent = strings.TrimSpace(parent)
	child = strings.TrimSpace(child)
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}
