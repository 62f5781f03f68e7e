package engine

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// restSuffix marks a placeholder that captures the remainder of the path,
// including separators: <name:path>. It is only valid as the final element
// of a template.
const restSuffix = ":path"

// pathTemplate is a compiled path template. Placeholders of the form <name>
// match one or more characters excluding "/"; a trailing <name:path>
// placeholder matches the rest of the path including "/" and may be empty.
// Literal segments are matched character-for-character and the compiled
// expression is anchored to the full path.
type pathTemplate struct {
	// template is the original template string.
	template string
	// regexp is the compiled anchored expression.
	regexp *regexp.Regexp
	// params are the placeholder names in left-to-right order.
	params []string
}

// compileTemplate parses tpl and returns the compiled template. Malformed
// templates (unterminated or empty placeholders, nested brackets, duplicate
// names, a non-trailing rest placeholder) are registration errors.
func compileTemplate(tpl string) (*pathTemplate, error) {
	idxs, err := bracketIndices(tpl)
	if err != nil {
		return nil, err
	}

	var (
		pattern strings.Builder
		params  []string
		end     int
	)

	pattern.WriteByte('^')

	for i := 0; i < len(idxs); i += 2 {
		raw := tpl[end:idxs[i]]
		end = idxs[i+1]

		name := tpl[idxs[i]+1 : end-1]
		rest := strings.HasSuffix(name, restSuffix)
		if rest {
			name = strings.TrimSuffix(name, restSuffix)
		}

		if name == "" {
			return nil, fmt.Errorf("engine: empty placeholder %q in template %q", tpl[idxs[i]:end], tpl)
		}
		if strings.Contains(name, ":") {
			return nil, fmt.Errorf("engine: unknown placeholder modifier in %q from template %q", tpl[idxs[i]:end], tpl)
		}
		if rest && end != len(tpl) {
			return nil, fmt.Errorf("engine: rest placeholder <%s%s> must be the last element of template %q", name, restSuffix, tpl)
		}

		pattern.WriteString(regexp.QuoteMeta(raw))
		if rest {
			pattern.WriteString("(.*)")
		} else {
			pattern.WriteString("([^/]+)")
		}

		params = append(params, name)
	}

	pattern.WriteString(regexp.QuoteMeta(tpl[end:]))
	pattern.WriteByte('$')

	if err := checkDuplicateParams(params, tpl); err != nil {
		return nil, err
	}

	re, err := compileRegexp(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("engine: compile template %q: %w", tpl, err)
	}

	return &pathTemplate{
		template: tpl,
		regexp:   re,
		params:   params,
	}, nil
}

// match tests a concrete path against the template and returns the
// placeholder values in declaration order.
func (t *pathTemplate) match(path string) ([]string, bool) {
	m := t.regexp.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

// bracketIndices returns the start and end+1 indices of each <...> pair
// in s. Unterminated, unopened, or nested brackets are an error.
func bracketIndices(s string) ([]int, error) {
	var idxs []int
	open := -1

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			if open != -1 {
				return nil, fmt.Errorf("engine: nested placeholder in template %q", s)
			}
			open = i
		case '>':
			if open == -1 {
				return nil, fmt.Errorf("engine: unmatched '>' in template %q", s)
			}
			idxs = append(idxs, open, i+1)
			open = -1
		}
	}

	if open != -1 {
		return nil, fmt.Errorf("engine: unterminated placeholder in template %q", s)
	}

	return idxs, nil
}

// Identical templates across routes (a static and a proxy route sharing a
// prefix shape, re-registered engines in tests) produce identical patterns,
// so compiled expressions are memoized for the process lifetime.
var (
	regexpMemoMu sync.Mutex
	regexpMemo   = map[string]*regexp.Regexp{}
)

func compileRegexp(pattern string) (*regexp.Regexp, error) {
	regexpMemoMu.Lock()
	defer regexpMemoMu.Unlock()

	if re, ok := regexpMemo[pattern]; ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexpMemo[pattern] = re

	return re, nil
}

// checkDuplicateParams returns an error if any placeholder name is repeated.
func checkDuplicateParams(params []string, tpl string) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if seen[p] {
			return fmt.Errorf("engine: duplicated placeholder %q in template %q", p, tpl)
		}
		seen[p] = true
	}
	return nil
}
