package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsWellFormed(t *testing.T) {
	body := "### Name\nHalo Infinite\n### Date\n01/01/2030\n### Size\n80"

	fields := Fields(body)

	require.Len(t, fields, 3)
	assert.Equal(t, "Halo Infinite", fields["name"])
	assert.Equal(t, "01/01/2030", fields["date"])
	assert.Equal(t, "80", fields["size"])
}

func TestFieldsLowercasesAndTrimsKeys(t *testing.T) {
	fields := Fields("###   Source URL  \nhttp://example.com")

	require.Len(t, fields, 1)
	assert.Equal(t, "http://example.com", fields["source url"])
}

func TestFieldsNoHeadings(t *testing.T) {
	assert.Empty(t, Fields("just some free text\nwith no structure"))
	assert.Empty(t, Fields(""))
}

func TestFieldsMultilineValue(t *testing.T) {
	body := "### Notes\nline one\n\nline three\n### Name\nX"

	fields := Fields(body)

	assert.Equal(t, "line one\n\nline three", fields["notes"])
	assert.Equal(t, "X", fields["name"])
}

func TestFieldsDuplicateHeadingFirstWins(t *testing.T) {
	body := "### Name\nfirst\n### Name\nsecond"

	fields := Fields(body)

	require.Len(t, fields, 1)
	assert.Equal(t, "first", fields["name"])
}

func TestFieldsCRLFBody(t *testing.T) {
	body := "### Name\r\nHalo\r\n### Date\r\n01/01/2030\r\n"

	fields := Fields(body)

	assert.Equal(t, "Halo", fields["name"])
	assert.Equal(t, "01/01/2030", fields["date"])
}

func TestFieldsArbitraryBytes(t *testing.T) {
	assert.NotPanics(t, func() {
		Fields("### \n\x00\xff\n###")
		Fields("###")
		Fields("### Name")
	})
}
