package bus

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/star/starseeker/internal/config"
	"github.com/star/starseeker/internal/sky"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDisabledPublisher(t *testing.T) {
	p, err := Connect(context.Background(), config.BusConfig{}, testLogger())
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.True(t, p.Healthy())
	assert.Equal(t, DefaultSubject, p.Subject())
	assert.NoError(t, p.Publish(context.Background(), PointingEvent{Name: "vega"}))
	p.Close()
}

func TestConnectUnreachable(t *testing.T) {
	_, err := Connect(context.Background(), config.BusConfig{
		Servers:        []string{"nats://127.0.0.1:1"},
		ConnectTimeout: 200,
	}, testLogger())
	assert.Error(t, err)
}

func TestNewMessage(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	ev := PointingEvent{
		Time:       time.Date(2025, 1, 1, 21, 0, 0, 0, time.UTC),
		Source:     "voice",
		Name:       "vega",
		Category:   "star",
		Outcome:    sky.KindNone,
		Equatorial: &sky.Equatorial{RAHours: 18.6, DecDeg: 38.8},
		Mount:      &sky.Horizontal{AzimuthDeg: -10, AltitudeDeg: 120},
	}
	msg, err := NewMessage(ctx, "starseeker.pointing", ev)
	require.NoError(t, err)

	assert.Equal(t, "starseeker.pointing", msg.Subject)
	assert.Equal(t, "application/json", msg.Header.Get("Content-Type"))
	assert.Contains(t, msg.Header.Get("Traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")

	var decoded PointingEvent
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, ev.Name, decoded.Name)
	assert.Equal(t, 120.0, decoded.Mount.AltitudeDeg)
	assert.Nil(t, decoded.Horizontal)
}
