package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCmd_RejectsInvalidInput(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"user", "--username", "ab", "--email", "not-an-email", "--password", "short"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input")
	assert.Contains(t, err.Error(), "Email: email")
	assert.Contains(t, err.Error(), "Password: min")
}

func TestTokenCmd_RequiresUserID(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user-id")
}
