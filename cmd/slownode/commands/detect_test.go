package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jianzi123/slow-node/pkg/types"
)

func TestDetectMethods(t *testing.T) {
	assert.Equal(t, []string{"bisection"}, detectMethods(types.ModeBisection))
	assert.Equal(t, []string{"pairwise"}, detectMethods(types.ModePairwise))
	assert.Equal(t, []string{"bisection", "pairwise"}, detectMethods(types.ModeBoth))
}

func TestExitCodeErrorSilentByDefault(t *testing.T) {
	err := &ExitCodeError{Code: 1}
	assert.Empty(t, err.Error())

	err = &ExitCodeError{Code: 2, Msg: "bad roster"}
	assert.Equal(t, "bad roster", err.Error())
}
