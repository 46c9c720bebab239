package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/linkstash/internal/api"
)

var created = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func strPtr(v string) *string { return &v }

func samplePage() api.ListContentResponse {
	return api.ListContentResponse{
		Items: []api.ContentSummary{
			{ID: 2, URL: "https://example.com/b", Title: strPtr("Bee"), CreatedAt: created},
			{ID: 1, URL: "https://example.com/a", Author: strPtr("Ann"), CreatedAt: created},
		},
		Total: 7,
		Limit: 2,
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := New(&bytes.Buffer{}, "yaml")
	require.ErrorIs(t, err, ErrInvalidFormat)

	p, err := New(&bytes.Buffer{}, " JSON ")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, p.format)

	p, err = New(&bytes.Buffer{}, "")
	require.NoError(t, err)
	require.Contains(t, []string{FormatTable, FormatJSON}, p.format)
}

func TestListTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p, err := New(&buf, FormatTable)
	require.NoError(t, err)
	require.NoError(t, p.List(samplePage()))

	out := buf.String()
	require.Contains(t, out, "ID  CREATED")
	require.Contains(t, out, "https://example.com/b")
	require.Contains(t, out, "2024-05-06T07:08:09Z")
	require.Contains(t, out, "Bee")
	require.Contains(t, out, "showing 2 of 7 (limit 2)")
}

func TestListJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p, err := New(&buf, FormatJSON)
	require.NoError(t, err)
	require.NoError(t, p.List(samplePage()))

	var decoded api.ListContentResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, samplePage(), decoded)
}

func TestListQuiet(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p, err := New(&buf, FormatQuiet)
	require.NoError(t, err)
	require.NoError(t, p.List(samplePage()))
	require.Equal(t, "2\n1\n", buf.String())
}

func TestItemAndCreated(t *testing.T) {
	t.Parallel()

	item := api.ContentItem{
		ContentSummary: api.ContentSummary{ID: 3, URL: "https://example.com/c", CreatedAt: created},
		Body:           strPtr("hello"),
	}

	var buf bytes.Buffer
	p, err := New(&buf, FormatTable)
	require.NoError(t, err)
	require.NoError(t, p.Item(item))
	require.Contains(t, buf.String(), "URL      https://example.com/c")
	require.Contains(t, buf.String(), "TITLE    -")
	require.Contains(t, buf.String(), "\nhello\n")

	buf.Reset()
	require.NoError(t, p.Created(api.CreateContentResponse{ID: 3}))
	require.Equal(t, "3\n", buf.String())

	buf.Reset()
	p, err = New(&buf, FormatJSON)
	require.NoError(t, err)
	require.NoError(t, p.Created(api.CreateContentResponse{ID: 3}))
	require.JSONEq(t, `{"id":3}`, buf.String())
}
