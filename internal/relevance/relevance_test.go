package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	assert.True(t, Matches("A Model Context Protocol server for filesystems"))
	assert.True(t, Matches("", "works with Claude Desktop"))
	assert.True(t, Matches("some-mcp-server"))
	assert.True(t, Matches("MCP filesystem tool"))

	assert.False(t, Matches("a generic web scraper"))
	assert.False(t, Matches("pmcpy is a python packaging helper"))
	assert.False(t, Matches(""))
}
