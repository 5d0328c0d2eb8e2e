package blockpage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calloway/swgate/internal/swg/domain"
)

func TestRenderDefaultPage(t *testing.T) {
	r := New()
	html, err := r.Render("social.example.com", domain.Category("Social Media"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "social.example.com")
	assert.Contains(t, string(html), "Social Media")
	assert.Contains(t, string(html), "Access Denied")
}

func TestRenderEscapesDomain(t *testing.T) {
	r := New()
	html, err := r.Render("<script>alert(1)</script>", "News")
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>alert(1)</script>")
}

func TestRenderOmitsEmptyCategory(t *testing.T) {
	r := New()
	html, err := r.Render("a.example.com", "")
	require.NoError(t, err)
	assert.NotContains(t, string(html), "Category:")
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.html")
	require.NoError(t, os.WriteFile(path, []byte("<h1>No: {{.Domain}}</h1>"), 0o600))

	r, err := NewFromFile(path)
	require.NoError(t, err)
	html, err := r.Render("b.example.com", "News")
	require.NoError(t, err)
	assert.Equal(t, "<h1>No: b.example.com</h1>", string(html))
}

func TestNewFromFileMissing(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "nope.html"))
	assert.Error(t, err)
}
