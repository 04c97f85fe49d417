package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIngestHelpWarnsAboutBaseNames(t *testing.T) {
	cmd := ingestCmd()
	assert.Contains(t, cmd.Long, "base names must be unique per collection")
	assert.Contains(t, cmd.Long, "replaces the first document's chunks")
}
