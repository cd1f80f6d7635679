package assistant

import (
	"fmt"

	"google.golang.org/genai"

	"consultai/internal/tools"
)

// BuildDeclarations converts the registry's tool schemas into genai function
// declarations. Order follows the registry's sorted listing, so the
// declaration set sent to the model is stable.
func BuildDeclarations(reg *tools.Registry) []*genai.FunctionDeclaration {
	all := reg.All()
	decls := make([]*genai.FunctionDeclaration, 0, len(all))
	for _, tool := range all {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  schemaFor(tool),
		})
	}
	return decls
}

func schemaFor(tool *tools.Tool) *genai.Schema {
	properties := make(map[string]*genai.Schema, len(tool.Schema.Properties))
	for name, prop := range tool.Schema.Properties {
		properties[name] = propertySchema(prop)
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: properties,
		Required:   append([]string(nil), tool.Schema.Required...),
	}
}

func propertySchema(prop tools.Property) *genai.Schema {
	s := &genai.Schema{
		Type:        schemaType(prop.Type),
		Description: prop.Description,
	}
	for _, v := range prop.Enum {
		s.Enum = append(s.Enum, fmt.Sprintf("%v", v))
	}
	if prop.Items != nil {
		s.Items = &genai.Schema{Type: schemaType(prop.Items.Type)}
	}
	return s
}

func schemaType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
