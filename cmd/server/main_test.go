package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, splitList([]string{"http://a.test, http://b.test"}))
	assert.Equal(t, []string{"*"}, splitList([]string{"*"}))
	assert.Nil(t, splitList([]string{" , "}))
}
