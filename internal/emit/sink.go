// Package emit provides the append-only text buffer every code-generation
// pass writes into: an emission sink with scoped block bracketing.
//
// A Sink is not safe for concurrent use — it is owned by exactly one
// generation pass at a time (§5, single-threaded cooperative generator).
package emit

import (
	"fmt"
	"strings"
)

// ErrUnbalancedScope is returned by Finish when a Sink's scope stack or
// labelled-bracket stack is not empty. This is a programming error in an
// emitter pass, not a user-facing error (§7) — codegen.Generate returns
// it wrapped with the name of the pass whose sink was left unbalanced.
type ErrUnbalancedScope struct {
	OpenScopes int
	OpenLabels []int
}

func (e *ErrUnbalancedScope) Error() string {
	switch {
	case e.OpenScopes > 0 && len(e.OpenLabels) > 0:
		return fmt.Sprintf("emit: %d unclosed scope(s), unclosed labelled bracket(s) %v", e.OpenScopes, e.OpenLabels)
	case e.OpenScopes > 0:
		return fmt.Sprintf("emit: %d unclosed scope(s)", e.OpenScopes)
	default:
		return fmt.Sprintf("emit: unclosed labelled bracket(s) %v", e.OpenLabels)
	}
}

// Sink is an append-only text buffer with scoped block bracketing.
//
// OpenScope/CloseScope emit `{`/`}` and must balance by the time Finish is
// called. OpenLabelled/CloseLabelled do the same but are addressed by an
// arbitrary integer tag so a guard whose open and close are textually far
// apart (e.g. on either side of a user code fragment, §4.7) can still be
// paired reliably; a tag opened twice, or closed without having been
// opened, is a programming error and panics immediately rather than
// producing silently-wrong output.
type Sink struct {
	buf         strings.Builder
	indent      int
	scopeDepth  int
	openLabels  []int // stack order in which labels were opened
	labelOffset map[int]int
}

// New returns an empty Sink.
func New() *Sink {
	return &Sink{labelOffset: make(map[int]int)}
}

// String returns the buffer contents so far, regardless of balance.
// Callers that need the balance guarantee should use Finish instead.
func (s *Sink) String() string {
	return s.buf.String()
}

// Printf appends a formatted, indented line terminated with a newline.
func (s *Sink) Printf(format string, args ...any) {
	s.writeIndent()
	fmt.Fprintf(&s.buf, format, args...)
	s.buf.WriteByte('\n')
}

// Raw appends text verbatim, with no indentation or trailing newline.
// Used to splice already-substituted user fragments inline.
func (s *Sink) Raw(text string) {
	s.buf.WriteString(text)
}

func (s *Sink) writeIndent() {
	for i := 0; i < s.indent; i++ {
		s.buf.WriteString("    ")
	}
}

// OpenScope emits `{`, increases indentation, and pushes a scope.
func (s *Sink) OpenScope() {
	s.writeIndent()
	s.buf.WriteString("{\n")
	s.indent++
	s.scopeDepth++
}

// CloseScope emits `}` and pops the most recently opened scope.
//
// Panics if there is no open scope to close — a mismatched CloseScope is
// always a bug in the calling emitter, never a property of the input IR.
func (s *Sink) CloseScope() {
	if s.scopeDepth == 0 {
		panic("emit: CloseScope with no open scope")
	}
	s.indent--
	s.scopeDepth--
	s.writeIndent()
	s.buf.WriteString("}\n")
}

// OpenLabelled emits `{` tagged with an arbitrary integer, for guards
// whose open and close sides are emitted far apart in the calling code
// (§4.7's event/bitmask guards).
//
// Panics if tag is already open.
func (s *Sink) OpenLabelled(tag int) {
	if _, open := s.labelOffset[tag]; open {
		panic(fmt.Sprintf("emit: OpenLabelled(%d) while already open", tag))
	}
	s.labelOffset[tag] = s.buf.Len()
	s.openLabels = append(s.openLabels, tag)
	s.OpenScope()
}

// CloseLabelled closes the bracket opened by OpenLabelled(tag).
//
// Panics if tag is not currently open — a mismatched tag close is a
// programming error in the emitter, not a property of the IR (§4.1).
func (s *Sink) CloseLabelled(tag int) {
	if _, open := s.labelOffset[tag]; !open {
		panic(fmt.Sprintf("emit: CloseLabelled(%d) without matching OpenLabelled", tag))
	}
	delete(s.labelOffset, tag)
	for i := len(s.openLabels) - 1; i >= 0; i-- {
		if s.openLabels[i] == tag {
			s.openLabels = append(s.openLabels[:i], s.openLabels[i+1:]...)
			break
		}
	}
	s.CloseScope()
}

// Finish returns the accumulated text, or an *ErrUnbalancedScope if any
// scope or labelled bracket was left open (Testable Property 1).
func (s *Sink) Finish() (string, error) {
	if s.scopeDepth != 0 || len(s.openLabels) != 0 {
		labels := append([]int(nil), s.openLabels...)
		return s.buf.String(), &ErrUnbalancedScope{OpenScopes: s.scopeDepth, OpenLabels: labels}
	}
	return s.buf.String(), nil
}
