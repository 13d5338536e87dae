package delay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_ReadWriteOffsets(t *testing.T) {
	r := Ring{N: 10, D: 3}
	assert.Equal(t, "(((spkQuePtrpop + 2) % 3) * 10)", r.ReadOffset("spkQuePtrpop"))
	assert.Equal(t, "(spkQuePtrpop * 10)", r.WriteOffset("spkQuePtrpop"))
}

func TestRing_SlotAndOffsetAtDelay(t *testing.T) {
	r := Ring{N: 10, D: 5}
	assert.Equal(t, "((spkQuePtrpop + 3) % 5)", r.SlotAtDelay("spkQuePtrpop", 2))
	assert.Equal(t, "(((spkQuePtrpop + 3) % 5) * 10)", r.OffsetAtDelay("spkQuePtrpop", 2))
}

func TestDendriticOffset(t *testing.T) {
	got := DendriticOffset("dendFrontsyn", "d", 4, 10)
	assert.Equal(t, "(((dendFrontsyn + d) % 4) * 10)", got)
}
