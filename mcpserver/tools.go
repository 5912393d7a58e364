package mcpserver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/marioser/dolibarr-mcp/catalog"
)

// ToolFor builds the MCP tool of one descriptor. Cacheable operations are
// read-only and idempotent; delete_ operations are destructive.
func ToolFor(d catalog.Descriptor) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(toolDescription(d)),
		mcp.WithReadOnlyHintAnnotation(d.Cacheable),
		mcp.WithIdempotentHintAnnotation(d.Cacheable),
		mcp.WithDestructiveHintAnnotation(strings.HasPrefix(d.Name, "delete_")),
		mcp.WithOpenWorldHintAnnotation(d.Target.Raw),
	}
	for _, p := range d.Params {
		opts = append(opts, paramOption(p))
	}
	return mcp.NewTool(d.Name, opts...)
}

func toolDescription(d catalog.Descriptor) string {
	if !d.Cacheable {
		return d.Description
	}
	return fmt.Sprintf("%s (cached %ds)", d.Description, d.TTLSeconds())
}

func paramOption(p catalog.Param) mcp.ToolOption {
	props := []mcp.PropertyOption{mcp.Description(p.Description)}
	if p.Required {
		props = append(props, mcp.Required())
	}

	switch p.Type {
	case catalog.IntegerParam, catalog.NumberParam:
		if p.Type == catalog.IntegerParam {
			props = append(props, integerType)
		}
		if n, ok := toFloat(p.Default); ok {
			props = append(props, mcp.DefaultNumber(n))
		}
		if len(p.Enum) > 0 {
			props = append(props, numericEnum(p.Enum))
		}
		return mcp.WithNumber(p.Name, props...)
	case catalog.BooleanParam:
		if b, ok := p.Default.(bool); ok {
			props = append(props, mcp.DefaultBool(b))
		}
		return mcp.WithBoolean(p.Name, props...)
	case catalog.ObjectParam:
		return mcp.WithObject(p.Name, props...)
	case catalog.ArrayParam:
		return mcp.WithArray(p.Name, props...)
	default:
		if s, ok := p.Default.(string); ok {
			props = append(props, mcp.DefaultString(s))
		}
		if len(p.Enum) > 0 {
			props = append(props, mcp.Enum(p.Enum...))
		}
		return mcp.WithString(p.Name, props...)
	}
}

func integerType(schema map[string]any) {
	schema["type"] = "integer"
}

// numericEnum turns string enum values into numbers, dropping any that do
// not parse.
func numericEnum(values []string) mcp.PropertyOption {
	return func(schema map[string]any) {
		var nums []any
		for _, v := range values {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				nums = append(nums, n)
			}
		}
		if len(nums) > 0 {
			schema["enum"] = nums
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
