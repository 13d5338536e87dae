// Package subst implements the two token-substitution primitives every
// code-fragment rewrite in this generator is built from: name
// substitution and call substitution (§4.2).
package subst

import (
	"strconv"
	"strings"
)

// Resolver decides, given a parsed token's parts, whether it recognizes
// the token and what to replace it with. parts[0] is the bare name for a
// name token, or the pseudo-call name for a call token; parts[1:] are the
// call's positional arguments.
type Resolver func(parts []string) (replacement string, ok bool)

// Rewrite performs one left-to-right pass over fragment, replacing every
// well-formed $(...) token resolver accepts. Tokens resolver rejects are
// left untouched — unrecognized tokens pass through for the user's
// compiler to flag (Testable Property 5). The scan advances past each
// token's original extent in the *input*, never re-entering a
// replacement's text, so substitutions never recurse into
// already-substituted output (§4.2).
func Rewrite(fragment string, resolver Resolver) string {
	var out strings.Builder
	i := 0
	for i < len(fragment) {
		start := strings.Index(fragment[i:], "$(")
		if start < 0 {
			out.WriteString(fragment[i:])
			break
		}
		start += i
		out.WriteString(fragment[i:start])

		end, ok := matchParen(fragment, start+2)
		if !ok {
			out.WriteString(fragment[start:])
			break
		}

		inner := fragment[start+2 : end]
		parts := splitTopLevel(inner)
		if repl, matched := resolver(parts); matched {
			out.WriteString(repl)
		} else {
			out.WriteString(fragment[start : end+1])
		}
		i = end + 1
	}
	return out.String()
}

// matchParen returns the index of the ')' that closes the '(' whose
// contents start at openIdx, honoring nested parens.
func matchParen(s string, openIdx int) (int, bool) {
	depth := 1
	for i := openIdx; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return -1, false
}

// splitTopLevel splits s on commas not nested inside parens, trimming
// surrounding whitespace from each resulting part.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[last:i]))
				last = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[last:]))
	return parts
}

// Name rewrites every whole-token occurrence of $(n) for n in names into
// phi(n). Tokens with more than one comma-separated part are left alone —
// name substitution never matches a call token.
func Name(fragment string, names map[string]bool, phi func(name string) string) string {
	return Rewrite(fragment, func(parts []string) (string, bool) {
		if len(parts) != 1 {
			return "", false
		}
		n := parts[0]
		if !names[n] {
			return "", false
		}
		return phi(n), true
	})
}

// Call rewrites every occurrence of $(name, a0, ..., a{arity-1}) by
// instantiating template's $(0)..$(arity-1) placeholders with the
// positional arguments taken verbatim from the call site.
func Call(fragment string, name string, arity int, template string) string {
	return Rewrite(fragment, func(parts []string) (string, bool) {
		if len(parts) != arity+1 || parts[0] != name {
			return "", false
		}
		return instantiate(template, parts[1:]), true
	})
}

func instantiate(template string, args []string) string {
	return Rewrite(template, func(parts []string) (string, bool) {
		if len(parts) != 1 {
			return "", false
		}
		idx, err := strconv.Atoi(parts[0])
		if err != nil || idx < 0 || idx >= len(args) {
			return "", false
		}
		return args[idx], true
	})
}
