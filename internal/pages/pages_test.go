package pages

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShare_EscapesTitle(t *testing.T) {
	var buf bytes.Buffer
	shot := Shot{
		ID:        "abcdefghij",
		Title:     `<script>alert(1)</script>.png`,
		ImageURL:  "http://cdn.test/abcdefghij.png",
		Width:     800,
		Height:    600,
		Views:     3,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	require.NoError(t, Share(shot).Render(context.Background(), &buf))

	html := buf.String()
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, `src="http://cdn.test/abcdefghij.png"`)
	assert.Contains(t, html, `width="800" height="600"`)
	assert.Contains(t, html, "3 views")
	assert.Contains(t, html, "never expires")
}

func TestNotFound_LinksHome(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NotFound().Render(context.Background(), &buf))

	assert.Contains(t, buf.String(), "not found or expired")
	assert.Contains(t, buf.String(), `href="/"`)
}
