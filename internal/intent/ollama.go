package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/star/starseeker/internal/sky"
)

// Interpreter maps free text to a pointing request.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (sky.Request, error)
}

// SystemPrompt instructs the model to answer with the strict reply object.
const SystemPrompt = "You will be given a request, possibly not in English, naming an astronomical object " +
	"someone wants to see. Answer with a single JSON object and nothing else: " +
	`{"object": "<name>", "type": "<Star|Planet|Moon|Satellite>"}. ` +
	"Use the English common name of the object. " +
	"For a star other than the Sun, use its Hipparcos catalogue number as the object. " +
	"For the Sun use type Star. For a satellite use its catalogue name, for example ISS (ZARYA). " +
	`Examples: "Zeige mir den Stern Sirius" -> {"object": "32349", "type": "Star"}; ` +
	`"Ich möchte den Polarstern sehen" -> {"object": "11767", "type": "Star"}; ` +
	`"Bitte zeige mir die Sonne" -> {"object": "Sun", "type": "Star"}.`

// OllamaInterpreter asks an Ollama chat model to interpret the text.
type OllamaInterpreter struct {
	endpoint    string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewOllamaInterpreter creates an interpreter for the Ollama server at endpoint.
func NewOllamaInterpreter(endpoint, model string, temperature float64, timeout time.Duration) *OllamaInterpreter {
	if model == "" {
		model = "llama3.2"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaInterpreter{
		endpoint:    strings.TrimRight(endpoint, "/"),
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  chatOptions   `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

func (o *OllamaInterpreter) Interpret(ctx context.Context, text string) (sky.Request, error) {
	ctx, span := otel.Tracer("github.com/star/starseeker/internal/intent").Start(ctx, "intent.Interpret")
	defer span.End()

	payload := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: "Your message is: " + text},
		},
		Format:  "json",
		Options: chatOptions{Temperature: o.temperature},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return sky.Request{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return sky.Request{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return sky.Request{}, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return sky.Request{}, fmt.Errorf("ollama returned status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return sky.Request{}, fmt.Errorf("decoding ollama response: %w", err)
	}
	span.SetAttributes(attribute.String("llm.reply", out.Message.Content))

	r, err := Parse(out.Message.Content)
	if err != nil {
		span.RecordError(err)
		return sky.Request{}, err
	}
	span.SetAttributes(attribute.String("object.name", r.Name), attribute.String("object.category", r.Category.String()))
	return r, nil
}

// Direct treats the text itself as an "Object,Type" or JSON reply; used
// when no model is configured.
type Direct struct{}

func (Direct) Interpret(_ context.Context, text string) (sky.Request, error) {
	return Parse(text)
}
