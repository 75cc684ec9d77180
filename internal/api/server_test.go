package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/star/starseeker/internal/audio"
	"github.com/star/starseeker/internal/auth"
	"github.com/star/starseeker/internal/health"
	"github.com/star/starseeker/internal/journal"
	"github.com/star/starseeker/internal/mount"
	"github.com/star/starseeker/internal/pointing"
	"github.com/star/starseeker/internal/sky"
	"github.com/star/starseeker/internal/tle"
	"github.com/star/starseeker/internal/transmit"
	"github.com/star/starseeker/internal/voice"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type fakePointer struct {
	mu       sync.Mutex
	err      error
	calls    []pointing.Options
	requests []sky.Request
	conv     *pointing.Converter
	sink     bool
}

func newFakePointer(t *testing.T) *fakePointer {
	t.Helper()
	conv, err := pointing.NewConverter(mount.DefaultLaw())
	if err != nil {
		t.Fatal(err)
	}
	return &fakePointer{conv: conv, sink: true}
}

func (f *fakePointer) Point(_ context.Context, req sky.Request, opts pointing.Options) (pointing.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	f.requests = append(f.requests, req)
	if f.err != nil {
		return pointing.Result{Request: req}, f.err
	}
	return pointing.Result{
		Request:     req,
		Instant:     time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC),
		Equatorial:  sky.Equatorial{RAHours: 6.75, DecDeg: -16.7},
		Raw:         sky.Horizontal{AzimuthDeg: 180, AltitudeDeg: 20},
		Mount:       sky.Horizontal{AzimuthDeg: 0, AltitudeDeg: 160},
		Transmitted: opts.Transmit,
	}, nil
}

func (f *fakePointer) Converter() *pointing.Converter { return f.conv }
func (f *fakePointer) CanTransmit() bool              { return f.sink }

func (f *fakePointer) lastOptions() pointing.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeVoice struct {
	text string
	clip audio.Clip
	err  error
}

func (f *fakeVoice) HandleText(_ context.Context, text string, transmit bool) (voice.Outcome, error) {
	f.text = text
	return voice.Outcome{Transcript: text, Message: "ok", Kind: sky.KindOf(f.err)}, f.err
}

func (f *fakeVoice) HandleClip(_ context.Context, clip audio.Clip) (voice.Outcome, error) {
	f.clip = clip
	return voice.Outcome{Transcript: "Vega,Star", Message: "ok"}, f.err
}

type fakeJournal struct {
	enabled bool
	limit   int
}

func (f *fakeJournal) Enabled() bool { return f.enabled }

func (f *fakeJournal) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	f.limit = limit
	return []journal.Entry{{ID: 1, Name: "Mars", Category: "planet", Outcome: sky.KindNone}}, nil
}

func serve(t *testing.T, deps Deps, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(Config{Addr: ":0"}, deps, testLogger())
	req := httptest.NewRequest(method, target, body)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected error field in response")
	}
	return resp
}

func TestResolve(t *testing.T) {
	p := newFakePointer(t)
	w := serve(t, Deps{Pointer: p}, "GET", "/api/v1/resolve?name=Sirius&category=STAR", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res pointing.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Request.Name != "Sirius" || res.Request.Category != sky.CategoryStar {
		t.Errorf("request = %+v", res.Request)
	}
	if res.Equatorial.RAHours != 6.75 {
		t.Errorf("ra = %v", res.Equatorial.RAHours)
	}
	if got := p.lastOptions(); got.Transmit || got.Source != "http" {
		t.Errorf("options = %+v, want no transmit from http", got)
	}
}

func TestResolveBadInput(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantKind string
	}{
		{"missing name", "?category=planet", sky.KindMalformedRequest},
		{"blank name", "?name=%20&category=planet", sky.KindMalformedRequest},
		{"unknown category", "?name=Halley&category=comet", sky.KindUnknownCategory},
		{"missing category", "?name=Mars", sky.KindUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, Deps{Pointer: newFakePointer(t)}, "GET", "/api/v1/resolve"+tt.query, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if got := decodeError(t, w).Kind; got != tt.wantKind {
				t.Errorf("kind = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestPointErrorStatus(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{fmt.Errorf("%w: vulcan", sky.ErrUnknownObject), http.StatusNotFound},
		{sky.ErrUnknownCategory, http.StatusBadRequest},
		{sky.ErrConversionInputInvalid, http.StatusUnprocessableEntity},
		{fmt.Errorf("fetch: %w", sky.ErrReferenceDataUnavailable), http.StatusServiceUnavailable},
		{transmit.ErrRejected, http.StatusBadGateway},
		{pointing.ErrTransmitDisabled, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(sky.KindOf(tt.err), func(t *testing.T) {
			p := newFakePointer(t)
			p.err = tt.err
			w := serve(t, Deps{Pointer: p}, "POST", "/api/v1/point", strings.NewReader(`{"name":"Mars","category":"planet"}`))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := decodeError(t, w).Kind; got != sky.KindOf(tt.err) {
				t.Errorf("kind = %q, want %q", got, sky.KindOf(tt.err))
			}
		})
	}
}

func TestPointTransmitFlag(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{`{"name":"Mars","category":"planet"}`, true},
		{`{"name":"Mars","category":"planet","transmit":false}`, false},
		{`{"name":"Mars","category":"planet","transmit":true}`, true},
	}
	for _, tt := range tests {
		p := newFakePointer(t)
		w := serve(t, Deps{Pointer: p}, "POST", "/api/v1/point", strings.NewReader(tt.body))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.body, w.Code)
		}
		if got := p.lastOptions().Transmit; got != tt.want {
			t.Errorf("%s: transmit = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestPointBadBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind string
	}{
		{"not json", `Mars,Planet`, sky.KindMalformedRequest},
		{"unknown field", `{"name":"Mars","category":"planet","extra":1}`, sky.KindMalformedRequest},
		{"comet", `{"name":"Halley","category":"comet"}`, sky.KindUnknownCategory},
		{"no category", `{"name":"Mars"}`, sky.KindUnknownCategory},
		{"no name", `{"category":"planet"}`, sky.KindMalformedRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePointer(t)
			w := serve(t, Deps{Pointer: p}, "POST", "/api/v1/point", strings.NewReader(tt.body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if got := decodeError(t, w).Kind; got != tt.wantKind {
				t.Errorf("kind = %q, want %q", got, tt.wantKind)
			}
			if len(p.calls) != 0 {
				t.Error("pointer should not be called for a bad body")
			}
		})
	}
}

func TestInterpret(t *testing.T) {
	p := newFakePointer(t)
	w := serve(t, Deps{Pointer: p}, "POST", "/api/v1/interpret", strings.NewReader(`{"text":"Mars,Planet"}`))
	if w.Code != http.StatusNotImplemented {
		t.Errorf("without voice: status = %d, want 501", w.Code)
	}

	v := &fakeVoice{}
	w = serve(t, Deps{Pointer: p, Voice: v}, "POST", "/api/v1/interpret", strings.NewReader(`{"text":"show me Mars"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if v.text != "show me Mars" {
		t.Errorf("text = %q", v.text)
	}

	v.err = fmt.Errorf("interpreting: %w", sky.ErrMalformedRequest)
	w = serve(t, Deps{Pointer: p, Voice: v}, "POST", "/api/v1/interpret", strings.NewReader(`{"text":"hello"}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed: status = %d, want 400", w.Code)
	}
}

func TestVoice(t *testing.T) {
	p := newFakePointer(t)
	v := &fakeVoice{}
	wav, err := audio.FromSamples("tone", make([]float64, 1600), 16000, 1).WAV()
	if err != nil {
		t.Fatal(err)
	}

	w := serve(t, Deps{Pointer: p, Voice: v}, "POST", "/api/v1/voice", bytes.NewReader(wav))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if v.clip.SampleRate() != 16000 {
		t.Errorf("sample rate = %d", v.clip.SampleRate())
	}

	w = serve(t, Deps{Pointer: p, Voice: v}, "POST", "/api/v1/voice", strings.NewReader("not audio"))
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("non-wav: status = %d, want 415", w.Code)
	}
}

func TestSatellites(t *testing.T) {
	p := newFakePointer(t)
	w := serve(t, Deps{Pointer: p}, "GET", "/api/v1/satellites", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("no store: status = %d, want 501", w.Code)
	}

	store := tle.NewStore()
	w = serve(t, Deps{Pointer: p, Satellites: store}, "GET", "/api/v1/satellites", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("empty store: status = %d, want 503", w.Code)
	}

	epoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	store.Set(tle.NewDataset("test", time.Now(), []tle.TLEEntry{{NORADID: 25544, Name: "ISS (ZARYA)", Epoch: epoch}}))
	w = serve(t, Deps{Pointer: p, Satellites: store}, "GET", "/api/v1/satellites", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["count"] != float64(1) || resp["source"] != "test" {
		t.Errorf("resp = %v", resp)
	}
}

func TestMount(t *testing.T) {
	p := newFakePointer(t)
	w := serve(t, Deps{Pointer: p}, "GET", "/api/v1/mount", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp mountResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Law != mount.DefaultLaw() {
		t.Errorf("law = %+v", resp.Law)
	}
	if resp.Range.AltitudeMax != 180 || !resp.CanTransmit {
		t.Errorf("resp = %+v", resp)
	}
}

func TestJournal(t *testing.T) {
	p := newFakePointer(t)
	tests := []struct {
		name       string
		journal    JournalReader
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"nil journal", nil, "", http.StatusNotImplemented, 0},
		{"disabled", &fakeJournal{}, "", http.StatusNotImplemented, 0},
		{"default limit", &fakeJournal{enabled: true}, "", http.StatusOK, defaultLimit},
		{"explicit limit", &fakeJournal{enabled: true}, "?limit=5", http.StatusOK, 5},
		{"zero limit", &fakeJournal{enabled: true}, "?limit=0", http.StatusBadRequest, 0},
		{"huge limit", &fakeJournal{enabled: true}, "?limit=100000", http.StatusBadRequest, 0},
		{"not a number", &fakeJournal{enabled: true}, "?limit=ten", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, Deps{Pointer: p, Journal: tt.journal}, "GET", "/api/v1/journal"+tt.query, nil)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if fj, ok := tt.journal.(*fakeJournal); ok && fj.limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", fj.limit, tt.wantLimit)
			}
		})
	}
}

func TestAuthAndProbes(t *testing.T) {
	p := newFakePointer(t)
	failing := health.Check{Name: "catalog", Fn: func(context.Context) error { return errors.New("not loaded") }}
	srv := NewServer(Config{Auth: auth.Config{Enabled: true, Token: "t0ken"}},
		Deps{Pointer: p, Ready: []health.Check{failing}}, testLogger())

	tests := []struct {
		path       string
		token      string
		wantStatus int
	}{
		{"/healthz", "", http.StatusOK},
		{"/readyz", "", http.StatusServiceUnavailable},
		{"/metrics", "", http.StatusOK},
		{"/api/v1/mount", "", http.StatusUnauthorized},
		{"/api/v1/mount", "t0ken", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path+"_"+tt.token, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	w := serve(t, Deps{Pointer: newFakePointer(t)}, "GET", "/api/v1/point", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
