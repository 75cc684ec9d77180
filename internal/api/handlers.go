package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/star/starseeker/internal/audio"
	"github.com/star/starseeker/internal/mount"
	"github.com/star/starseeker/internal/pointing"
	"github.com/star/starseeker/internal/sky"
)

const (
	maxJSONBody   = 64 << 10
	maxAudioBody  = 32 << 20
	defaultLimit  = 50
	maxLimit      = 1000
	kindDisabled  = "disabled"
	kindMediaType = "unsupported_media_type"
)

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

type pointRequest struct {
	Name     string       `json:"name"`
	Category sky.Category `json:"category"`
	Transmit *bool        `json:"transmit,omitempty"`
}

type interpretRequest struct {
	Text     string `json:"text"`
	Transmit *bool  `json:"transmit,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

// writeFailure answers with the status belonging to err's kind.
func writeFailure(w http.ResponseWriter, err error) {
	kind := sky.KindOf(err)
	writeError(w, statusFor(kind), kind, err.Error())
}

func statusFor(kind string) int {
	switch kind {
	case sky.KindUnknownCategory, sky.KindMalformedRequest:
		return http.StatusBadRequest
	case sky.KindUnknownObject:
		return http.StatusNotFound
	case sky.KindConversionInputInvalid:
		return http.StatusUnprocessableEntity
	case sky.KindReferenceDataUnavailable:
		return http.StatusServiceUnavailable
	case sky.KindTransmitFailed:
		return http.StatusBadGateway
	case sky.KindTimeout:
		return http.StatusGatewayTimeout
	case sky.KindCanceled:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *handlers) resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, sky.KindMalformedRequest, "name is required")
		return
	}
	c, err := sky.ParseCategory(q.Get("category"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	res, err := h.deps.Pointer.Point(r.Context(), sky.Request{Name: name, Category: c}, pointing.Options{Source: "http"})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) point(w http.ResponseWriter, r *http.Request) {
	var body pointRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeFailure(w, err)
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, sky.KindMalformedRequest, "name is required")
		return
	}
	if !body.Category.Valid() {
		writeFailure(w, fmt.Errorf("%w: category is required", sky.ErrUnknownCategory))
		return
	}
	opts := pointing.Options{Transmit: boolOr(body.Transmit, true), Source: "http"}
	res, err := h.deps.Pointer.Point(r.Context(), sky.Request{Name: body.Name, Category: body.Category}, opts)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) interpret(w http.ResponseWriter, r *http.Request) {
	if h.deps.Voice == nil {
		writeError(w, http.StatusNotImplemented, kindDisabled, "interpreter is not configured")
		return
	}
	var body interpretRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeFailure(w, err)
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, sky.KindMalformedRequest, "text is required")
		return
	}
	out, err := h.deps.Voice.HandleText(r.Context(), body.Text, boolOr(body.Transmit, true))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) voice(w http.ResponseWriter, r *http.Request) {
	if h.deps.Voice == nil {
		writeError(w, http.StatusNotImplemented, kindDisabled, "voice pipeline is not configured")
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, sky.KindMalformedRequest, err.Error())
		return
	}
	clip, err := audio.DecodeWAV("http", bytes.NewReader(data))
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, kindMediaType, err.Error())
		return
	}
	out, err := h.deps.Voice.HandleClip(r.Context(), clip)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) satellites(w http.ResponseWriter, r *http.Request) {
	if h.deps.Satellites == nil {
		writeError(w, http.StatusNotImplemented, kindDisabled, "satellite elements are not configured")
		return
	}
	ds := h.deps.Satellites.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, sky.KindReferenceDataUnavailable, "no element set fetched yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":      ds.Source,
		"fetched_at":  ds.FetchedAt,
		"stale":       ds.Stale,
		"epoch_range": ds.EpochRange,
		"count":       len(ds.Satellites),
		"age_seconds": h.deps.Satellites.AgeSeconds(),
	})
}

type mountResponse struct {
	Law         mount.Law   `json:"law"`
	Range       mount.Range `json:"range"`
	CanTransmit bool        `json:"can_transmit"`
}

func (h *handlers) mount(w http.ResponseWriter, r *http.Request) {
	law := h.deps.Pointer.Converter().Law()
	writeJSON(w, http.StatusOK, mountResponse{Law: law, Range: law.Range(), CanTransmit: h.deps.Pointer.CanTransmit()})
}

func (h *handlers) journal(w http.ResponseWriter, r *http.Request) {
	if h.deps.Journal == nil || !h.deps.Journal.Enabled() {
		writeError(w, http.StatusNotImplemented, kindDisabled, "journal is disabled")
		return
	}
	limit := defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxLimit {
			writeError(w, http.StatusBadRequest, sky.KindMalformedRequest,
				fmt.Sprintf("limit must be an integer in [1,%d]", maxLimit))
			return
		}
		limit = n
	}
	entries, err := h.deps.Journal.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("reading journal", "component", "api", "error", err)
		writeError(w, http.StatusInternalServerError, sky.KindInternal, "reading journal failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// decodeJSON reads a bounded JSON body. Category errors keep their kind;
// everything else is a malformed request.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, sky.ErrUnknownCategory) {
			return err
		}
		return fmt.Errorf("%w: %v", sky.ErrMalformedRequest, err)
	}
	return nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
