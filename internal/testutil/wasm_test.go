package testutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestULEB(t *testing.T) {
	assert.Equal(t, []byte{0x00}, uleb(0))
	assert.Equal(t, []byte{0x7f}, uleb(127))
	assert.Equal(t, []byte{0x80, 0x01}, uleb(128))
	assert.Equal(t, []byte{0xac, 0x02}, uleb(300))
}

func TestModule_Header(t *testing.T) {
	m := Module()
	assert.True(t, bytes.HasPrefix(m, []byte("\x00asm\x01\x00\x00\x00")))
	assert.True(t, bytes.Contains(m, []byte("extism:host/env")))
}
