package llm

import (
	"regexp"
	"strings"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/store"
)

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render substitutes {{name}} placeholders in template with the supplied
// values. Declared variables marked required must be present; placeholders
// without a value are left untouched.
func Render(template string, declared []models.Variable, values map[string]string) (string, error) {
	var missing []string
	for _, v := range declared {
		if !v.Required {
			continue
		}
		if _, ok := values[v.Name]; !ok {
			missing = append(missing, v.Name)
		}
	}
	if len(missing) > 0 {
		return "", store.Invalidf("missing required variables: %s", strings.Join(missing, ", "))
	}

	rendered := variablePattern.ReplaceAllStringFunc(template, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		if val, ok := values[name]; ok {
			return val
		}
		return match
	})
	return rendered, nil
}

// ExtractVariables returns the distinct placeholder names in template, in
// order of first appearance.
func ExtractVariables(template string) []string {
	matches := variablePattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool)
	var names []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
