package templates_test

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/swastyasetu/internal/adapter/driving/web/templates"
)

func TestLayout_RendersNavAndBody(t *testing.T) {
	nav := []templates.NavLink{
		{Label: "Login", Href: "/", Active: false},
		{Label: "Console", Href: "/console", Active: true},
	}
	body := templ.Raw("<p>page body</p>")

	var sb strings.Builder
	err := templates.Layout("Query <Console>", nav, body).Render(context.Background(), &sb)
	require.NoError(t, err)

	html := sb.String()
	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, "<title>Query &lt;Console&gt;</title>")
	assert.Contains(t, html, `<a class="nav-link" href="/">Login</a>`)
	assert.Contains(t, html, `<a class="nav-link active" href="/console">Console</a>`)
	assert.Contains(t, html, `<main class="container"><p>page body</p></main>`)
}
