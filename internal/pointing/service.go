package pointing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/star/starseeker/internal/bus"
	"github.com/star/starseeker/internal/journal"
	"github.com/star/starseeker/internal/sky"
)

// Resolver resolves a name and category to equatorial coordinates.
type Resolver interface {
	Resolve(ctx context.Context, name string, category sky.Category, instant time.Time) (sky.Equatorial, error)
}

// Transmitter sends mount angles to the sink and returns its status code.
type Transmitter interface {
	Transmit(ctx context.Context, m sky.Horizontal) (int, error)
}

// Publisher announces pointing events.
type Publisher interface {
	Publish(ctx context.Context, ev bus.PointingEvent) error
}

// Journal records requests.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) error
}

// ErrTransmitDisabled is returned when a transmission is requested but no sink is configured.
var ErrTransmitDisabled = fmt.Errorf("%w: no sink configured", sky.ErrTransmitFailed)

// Options controls one Point call.
type Options struct {
	Transmit   bool
	Source     string // http, voice, cli
	Transcript string
}

// Result is the outcome of one pointing request.
type Result struct {
	Request      sky.Request    `json:"request"`
	Instant      time.Time      `json:"instant"`
	Observer     sky.Location   `json:"observer"`
	Equatorial   sky.Equatorial `json:"equatorial"`
	Raw          sky.Horizontal `json:"horizontal"`
	Mount        sky.Horizontal `json:"mount"`
	BelowHorizon bool           `json:"below_horizon"`
	Transmitted  bool           `json:"transmitted"`
	SinkStatus   int            `json:"sink_status,omitempty"`
}

// Service runs resolve, convert and transmit for one request at a time.
// It is safe for concurrent use.
type Service struct {
	resolver  Resolver
	converter *Converter
	observer  sky.Location
	sink      Transmitter
	publisher Publisher
	journal   Journal
	clock     func() time.Time
	logger    *slog.Logger
	tracer    trace.Tracer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTransmitter sets the sink. Without one, transmission requests fail.
func WithTransmitter(t Transmitter) ServiceOption { return func(s *Service) { s.sink = t } }

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) ServiceOption { return func(s *Service) { s.publisher = p } }

// WithJournal sets the request journal.
func WithJournal(j Journal) ServiceOption { return func(s *Service) { s.journal = j } }

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) ServiceOption { return func(s *Service) { s.clock = clock } }

// NewService creates a Service for a fixed observer.
func NewService(r Resolver, c *Converter, observer sky.Location, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		resolver:  r,
		converter: c,
		observer:  observer,
		clock:     time.Now,
		logger:    logger,
		tracer:    otel.Tracer("github.com/star/starseeker/internal/pointing"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Observer returns the configured observer location.
func (s *Service) Observer() sky.Location { return s.observer }

// Converter returns the converter whose law is in use.
func (s *Service) Converter() *Converter { return s.converter }

// CanTransmit reports whether a sink is configured.
func (s *Service) CanTransmit() bool { return s.sink != nil }

// Point resolves req at the current instant, converts it for the observer
// and, if asked, transmits the mount angles. Targets below the horizon are
// flagged but still returned and transmitted.
func (s *Service) Point(ctx context.Context, req sky.Request, opts Options) (Result, error) {
	instant := s.clock().UTC()
	ctx, span := s.tracer.Start(ctx, "pointing.Point", trace.WithAttributes(
		attribute.String("object.name", req.Name),
		attribute.String("object.category", req.Category.String()),
		attribute.Bool("transmit", opts.Transmit),
	))
	defer span.End()

	res := Result{Request: req, Instant: instant, Observer: s.observer}
	err := s.point(ctx, req, instant, opts, &res)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, sky.KindOf(err))
	}
	s.record(context.WithoutCancel(ctx), res, opts, err)

	logAttrs := []any{"component", "pointing", "name", req.Name, "category", req.Category.String(),
		"source", opts.Source, "outcome", sky.KindOf(err)}
	if err != nil {
		s.logger.Warn("pointing failed", append(logAttrs, "error", err)...)
		return res, err
	}
	s.logger.Info("pointing computed", append(logAttrs,
		"ra_hours", res.Equatorial.RAHours, "dec_deg", res.Equatorial.DecDeg,
		"az", res.Raw.AzimuthDeg, "alt", res.Raw.AltitudeDeg,
		"mount_az", res.Mount.AzimuthDeg, "mount_alt", res.Mount.AltitudeDeg,
		"below_horizon", res.BelowHorizon, "transmitted", res.Transmitted)...)
	return res, nil
}

func (s *Service) point(ctx context.Context, req sky.Request, instant time.Time, opts Options, res *Result) error {
	eq, err := s.resolver.Resolve(ctx, req.Name, req.Category, instant)
	if err != nil {
		return err
	}
	res.Equatorial = eq

	_, convSpan := s.tracer.Start(ctx, "pointing.Convert")
	p, err := s.converter.Convert(eq, s.observer, instant)
	convSpan.End()
	if err != nil {
		return err
	}
	res.Raw, res.Mount = p.Raw, p.Mount
	res.BelowHorizon = p.Raw.AltitudeDeg < 0

	if !opts.Transmit {
		return nil
	}
	if s.sink == nil {
		return ErrTransmitDisabled
	}
	code, err := s.sink.Transmit(ctx, p.Mount)
	res.SinkStatus = code
	if err != nil {
		return err
	}
	res.Transmitted = true
	return nil
}

// record publishes and journals the outcome. Failures here are logged only.
func (s *Service) record(ctx context.Context, res Result, opts Options, err error) {
	kind := sky.KindOf(err)
	resolved := res.Equatorial != (sky.Equatorial{}) || err == nil
	converted := res.Raw != (sky.Horizontal{}) || res.Mount != (sky.Horizontal{})

	if s.publisher != nil {
		ev := bus.PointingEvent{
			Time:         res.Instant,
			Source:       opts.Source,
			Name:         res.Request.Name,
			Category:     res.Request.Category.String(),
			Outcome:      kind,
			BelowHorizon: res.BelowHorizon,
			Transmitted:  res.Transmitted,
			SinkStatus:   res.SinkStatus,
		}
		if resolved {
			eq := res.Equatorial
			ev.Equatorial = &eq
		}
		if converted {
			raw, m := res.Raw, res.Mount
			ev.Horizontal, ev.Mount = &raw, &m
		}
		if perr := s.publisher.Publish(ctx, ev); perr != nil {
			s.logger.Warn("publish pointing event failed", "component", "pointing", "error", perr)
		}
	}

	if s.journal != nil {
		entry := journal.Entry{
			CreatedAt:   res.Instant,
			Source:      opts.Source,
			Transcript:  opts.Transcript,
			Name:        res.Request.Name,
			Category:    res.Request.Category.String(),
			Outcome:     kind,
			RAHours:     res.Equatorial.RAHours,
			DecDeg:      res.Equatorial.DecDeg,
			AzimuthDeg:  res.Raw.AzimuthDeg,
			AltitudeDeg: res.Raw.AltitudeDeg,
			MountAzDeg:  res.Mount.AzimuthDeg,
			MountAltDeg: res.Mount.AltitudeDeg,
			SinkStatus:  res.SinkStatus,
		}
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			entry.TraceID = sc.TraceID().String()
		}
		if jerr := s.journal.Record(ctx, entry); jerr != nil {
			s.logger.Warn("journal record failed", "component", "pointing", "error", jerr)
		}
	}
}
