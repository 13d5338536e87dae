package ir

// Severity classifies a Diagnostic. Warnings never stop generation;
// nothing above Warning is representable here — a fatal condition is
// always a GenerationError, never a Diagnostic (§7).
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a non-fatal generation-time observation surfaced by a
// pass emitter (neuronpass, synapsepass) alongside its emitted text.
// The core packages themselves never log — they return Diagnostics as
// data, and only the runner mirrors them to the ambient structured
// logger (§10.1).
type Diagnostic struct {
	Severity Severity
	Group    string
	Message  string
}
