// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "BrokerReport", "PolicyDocument")
	Description string        // System prompt describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// FieldNames returns the JSON field names in declaration order.
func (s ExtractionSchema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// BuildExtractionPrompt constructs the user prompt from schema, a context header and input text.
// The schema Description is meant to be sent separately as the system prompt.
func BuildExtractionPrompt(schema ExtractionSchema, header, inputText string) string {
	var sb strings.Builder

	if header != "" {
		sb.WriteString(header)
		sb.WriteString("\n\n")
	}

	// Output schema
	sb.WriteString("请以JSON格式返回，结构如下：\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "\"string\""
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (必填)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("要求：\n")
	sb.WriteString("- 只依据原文提取信息，不要编造。\n")
	sb.WriteString("- 原文未提及的字段留空。\n\n")

	sb.WriteString("原文：\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}
