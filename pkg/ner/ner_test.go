package ner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starkeys-go/internal/config"
)

func TestDictionaryTagger_WholeWordCaseInsensitive(t *testing.T) {
	tagger := NewDictionaryTagger("dict", map[string]string{
		"glucose":        "CHEMICAL",
		"glucose uptake": "PROCESS",
	})

	spans, err := tagger.Tag(context.Background(), "Glucose uptake; glucosel is not glucose.")
	require.NoError(t, err)

	assert.Equal(t, []Span{
		{Start: 0, End: 7, Label: "CHEMICAL", Source: "dict"},
		{Start: 32, End: 39, Label: "CHEMICAL", Source: "dict"},
		{Start: 0, End: 14, Label: "PROCESS", Source: "dict"},
	}, spans)
}

func TestDictionaryTagger_RuneOffsets(t *testing.T) {
	tagger := NewDictionaryTagger("dict", map[string]string{"β-cell": "CELL"})

	spans, err := tagger.Tag(context.Background(), "αβ β-cell")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, 3, spans[0].Start)
	assert.Equal(t, 9, spans[0].End)
}

func TestHTTPTagger_Tag(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tagRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "aspirin helps", req.Text)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ents":[{"start":0,"end":7,"label":"CHEMICAL"}]}`))
	}))
	defer ts.Close()

	tagger := NewHTTPTagger(config.TaggerConfig{Name: "bc5cdr", Endpoint: ts.URL})
	spans, err := tagger.Tag(context.Background(), "aspirin helps")
	require.NoError(t, err)
	assert.Equal(t, []Span{{Start: 0, End: 7, Label: "CHEMICAL", Source: "bc5cdr"}}, spans)
}

func TestHTTPTagger_Non200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	tagger := NewHTTPTagger(config.TaggerConfig{Name: "bc5cdr", Endpoint: ts.URL})
	_, err := tagger.Tag(context.Background(), "x")
	assert.Error(t, err)
}

func TestNewTaggers(t *testing.T) {
	taggers, err := NewTaggers([]config.TaggerConfig{
		{Name: "a", Type: "http", Endpoint: "http://localhost:1/ner"},
		{Name: "b", Type: "dictionary", Terms: map[string]string{"x": "Y"}},
	})
	require.NoError(t, err)
	require.Len(t, taggers, 2)
	assert.Equal(t, "a", taggers[0].Name())
	assert.Equal(t, "b", taggers[1].Name())

	_, err = NewTaggers([]config.TaggerConfig{{Name: "c", Type: "http"}})
	assert.Error(t, err)

	_, err = NewTaggers([]config.TaggerConfig{{Name: "d", Type: "grpc"}})
	assert.Error(t, err)

	_, err = NewTaggers(nil)
	assert.Error(t, err)
}
