package intent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/starseeker/internal/sky"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want sky.Request
	}{
		{"json", `{"object": "Mars", "type": "Planet"}`, sky.Request{Name: "Mars", Category: sky.CategoryPlanet}},
		{"json extra fields", `{"object":"11767","type":"star","confidence":0.9}`, sky.Request{Name: "11767", Category: sky.CategoryStar}},
		{"fenced json", "```json\n{\"object\": \"ISS (ZARYA)\", \"type\": \"Satellite\"}\n```", sky.Request{Name: "ISS (ZARYA)", Category: sky.CategorySatellite}},
		{"legacy line", "32349,Star", sky.Request{Name: "32349", Category: sky.CategoryStar}},
		{"legacy with prose", "Sure!\nMoon, Moon\n", sky.Request{Name: "Moon", Category: sky.CategoryMoon}},
		{"legacy quoted", `"Sun", "Star".`, sky.Request{Name: "Sun", Category: sky.CategoryStar}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"I would love to show you Mars",
		`{"object": "Mars"}`,
		`{"object": "", "type": "Planet"}`,
		`{"object": 42, "type": "Planet"}`,
		`{"object": "Mars", "type": "Planet"`,
		`[ "Mars", "Planet" ]`,
		" ,Planet",
	} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, sky.ErrMalformedRequest, "input %q", in)
	}
}

func TestParseUnknownCategory(t *testing.T) {
	_, err := Parse(`{"object": "Halley", "type": "Comet"}`)
	assert.ErrorIs(t, err, sky.ErrUnknownCategory)
	_, err = Parse("Halley,Comet")
	assert.ErrorIs(t, err, sky.ErrUnknownCategory)
}

func TestOllamaInterpreter(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: `{"object":"Jupiter","type":"Planet"}`}})
	}))
	defer server.Close()

	o := NewOllamaInterpreter(server.URL, "", 0, time.Second)
	req, err := o.Interpret(context.Background(), "Zeig mir den Jupiter")
	require.NoError(t, err)
	assert.Equal(t, sky.Request{Name: "Jupiter", Category: sky.CategoryPlanet}, req)

	assert.Equal(t, "llama3.2", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, "json", got.Format)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "Zeig mir den Jupiter")
}

func TestOllamaInterpreterMalformedReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Content: "I cannot help with that."}})
	}))
	defer server.Close()

	_, err := NewOllamaInterpreter(server.URL, "", 0, time.Second).Interpret(context.Background(), "hello")
	assert.ErrorIs(t, err, sky.ErrMalformedRequest)
}

func TestOllamaInterpreterHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewOllamaInterpreter(server.URL, "", 0, time.Second).Interpret(context.Background(), "hello")
	require.Error(t, err)
	assert.NotErrorIs(t, err, sky.ErrMalformedRequest)
}

func TestDirect(t *testing.T) {
	req, err := Direct{}.Interpret(context.Background(), "Vega,Star")
	require.NoError(t, err)
	assert.Equal(t, "Vega", req.Name)
}
