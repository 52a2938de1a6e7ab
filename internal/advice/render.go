package advice

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/stock-research-agent/internal/types"
)

// NoInfo stands in for a document whose extraction produced nothing.
const NoInfo = "无有效信息"

// BuildSummary renders every document as a header line followed by its flattened data.
func BuildSummary(docs []types.ExtractedInfo) string {
	var sb strings.Builder
	for i, doc := range docs {
		title := doc.Title
		if title == "" {
			title = types.UnknownTitle
		}
		sb.WriteString(fmt.Sprintf("文档%d：【%s】(%s)\n%s\n\n", i+1, title, doc.URL, RenderInfo(doc.Data)))
	}
	return sb.String()
}

// RenderInfo flattens extracted data into plain text. Objects become "- key: value"
// lines with keys sorted, and list values become indented bullet sub-lists.
func RenderInfo(data any) string {
	switch v := data.(type) {
	case nil:
		return NoInfo
	case map[string]any:
		return renderMap(v, "")
	case []any:
		var sb strings.Builder
		for _, item := range v {
			sb.WriteString("- ")
			sb.WriteString(renderValue(item, ""))
			sb.WriteString("\n")
		}
		return sb.String()
	default:
		return scalar(v)
	}
}

func renderMap(m map[string]any, indent string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(indent)
		sb.WriteString("- ")
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(renderValue(m[k], indent))
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderValue renders a value that follows "key: " or "- " at the given indent.
func renderValue(v any, indent string) string {
	switch val := v.(type) {
	case []any:
		var sb strings.Builder
		for _, item := range val {
			sb.WriteString("\n")
			sb.WriteString(indent)
			sb.WriteString("  - ")
			sb.WriteString(renderValue(item, indent+"  "))
		}
		return sb.String()
	case map[string]any:
		return "\n" + strings.TrimSuffix(renderMap(val, indent+"  "), "\n")
	default:
		return scalar(val)
	}
}

func scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return "无"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
