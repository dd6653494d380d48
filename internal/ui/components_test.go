package ui_test

import (
	"bytes"
	"context"
	"testing"

	"cdnlocal/internal/ui"

	"github.com/stretchr/testify/require"
)

func TestSchemesPageEscapesAndLabels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := ui.SchemesPage([]ui.Scheme{
		{Name: "serve", Template: "http://cdn/serve/{{bucket}}?a=1&b=2"},
		{Name: "crop", Template: "http://img/crop/{{width}}", Processing: true},
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "<!DOCTYPE html>")
	require.Contains(t, out, "?a=1&amp;b=2", "templates must be HTML-escaped")
	require.Contains(t, out, "<td>process</td>")
	require.Contains(t, out, "<td>serve</td>")
}

func TestSchemesPageEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, ui.SchemesPage(nil).Render(context.Background(), &buf))
	require.Contains(t, buf.String(), "No schemes configured.")
}
