package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderIsReset(t *testing.T) {
	b := GetBuilder()
	b.WriteString("leftover")
	PutBuilder(b)

	again := GetBuilder()
	assert.Zero(t, again.Len())
	PutBuilder(again)
}

func TestIDSetIsCleared(t *testing.T) {
	m := GetIDSet()
	m[1] = true
	PutIDSet(m)

	again := GetIDSet()
	assert.Empty(t, again)
	PutIDSet(again)
}
