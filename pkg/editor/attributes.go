package editor

import "strings"

// MergeAttributes merges HTML attribute maps the way the editor core does:
// later maps win, except "class" values are concatenated without
// duplicates and "style" declarations are joined with "; ". Nil maps are
// skipped. The inputs are not modified.
func MergeAttributes(attrs ...map[string]any) map[string]any {
	merged := make(map[string]any)

	for _, item := range attrs {
		for key, value := range item {
			existing, ok := merged[key]
			if !ok {
				merged[key] = value
				continue
			}

			switch key {
			case "class":
				merged[key] = mergeClasses(toString(existing), toString(value))
			case "style":
				merged[key] = mergeStyles(toString(existing), toString(value))
			default:
				merged[key] = value
			}
		}
	}

	return merged
}

func mergeClasses(a, b string) string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range append(strings.Fields(a), strings.Fields(b)...) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return strings.Join(out, " ")
}

func mergeStyles(a, b string) string {
	var out []string
	for _, s := range []string{a, b} {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";"))
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "; ")
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
