// Package delay resolves read/write offsets into circular per-population
// spike and state queues (§4.5).
package delay

import "fmt"

// Ring describes one population's circular delay buffer: D slots of N
// entries each, addressed through an advancing slot pointer.
type Ring struct {
	N int // population size
	D int // queue depth
}

// ReadOffset returns the expression for reading the previous step's
// state: ((quePtr + D - 1) % D) * N (Testable Property 7).
func (r Ring) ReadOffset(quePtr string) string {
	return fmt.Sprintf("(((%s + %d) %% %d) * %d)", quePtr, r.D-1, r.D, r.N)
}

// WriteOffset returns the expression for writing this step's state:
// quePtr * N (Testable Property 7).
func (r Ring) WriteOffset(quePtr string) string {
	return fmt.Sprintf("(%s * %d)", quePtr, r.N)
}

// SlotAtDelay returns the slot holding the state from delaySteps
// timesteps ago: (quePtr + D - delaySteps) % D.
func (r Ring) SlotAtDelay(quePtr string, delaySteps int) string {
	return fmt.Sprintf("((%s + %d) %% %d)", quePtr, r.D-delaySteps, r.D)
}

// OffsetAtDelay is SlotAtDelay scaled by the population size N — the
// preReadDelayOffset / postReadDelayOffset of §4.5.
func (r Ring) OffsetAtDelay(quePtr string, delaySteps int) string {
	return fmt.Sprintf("(%s * %d)", r.SlotAtDelay(quePtr, delaySteps), r.N)
}

// DendriticOffset resolves the dendritic-delay ring offset for a delay
// amount `d` (an arbitrary expression, typically a user-fragment
// argument) on a synapse group whose dendritic buffer has maxSlots slots
// of targetSize entries each, fed by a front pointer variable frontVar:
// ((frontVar + d) % maxSlots) * targetSize.
func DendriticOffset(frontVar, d string, maxSlots, targetSize int) string {
	return fmt.Sprintf("(((%s + %s) %% %d) * %d)", frontVar, d, maxSlots, targetSize)
}
