package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/josinaldojr/chat-gateway-rag/internal/chat"
	"github.com/josinaldojr/chat-gateway-rag/internal/llm"
	"github.com/josinaldojr/chat-gateway-rag/internal/metrics"
	"github.com/josinaldojr/chat-gateway-rag/internal/profile"
	"github.com/josinaldojr/chat-gateway-rag/internal/rag"
	"go.uber.org/zap"
)

// UserHeader identifies the caller whose profile supplies the credentials.
const UserHeader = "X-User-ID"

const (
	commandModel = "gpt-4o"
	// commandLimitsModel supplies the command output limit.
	commandLimitsModel  = "gpt-4-turbo-preview"
	commandSystemPrompt = "Respond to the user."
	maxAssistants       = 100
)

// AssistantLister is satisfied by *llm.OpenAIAdapter.
type AssistantLister interface {
	ListAssistants(ctx context.Context, p *profile.Profile, limit int, after string) (*llm.AssistantPage, error)
}

type Handler struct {
	gateway    *chat.Gateway
	retrieval  *rag.Service
	assistants AssistantLister
	profiles   profile.Store
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewHandler(
	gateway *chat.Gateway,
	retrieval *rag.Service,
	assistants AssistantLister,
	profiles profile.Store,
	m *metrics.Metrics,
	log *zap.Logger,
) *Handler {
	return &Handler{
		gateway:    gateway,
		retrieval:  retrieval,
		assistants: assistants,
		profiles:   profiles,
		metrics:    m,
		log:        log,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type chatSettings struct {
	Model       string   `json:"model"`
	Temperature *float32 `json:"temperature"`
}

type chatBody struct {
	ChatSettings chatSettings  `json:"chatSettings"`
	Messages     []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string         `json:"role"`
	Content messageContent `json:"content"`
}

// messageContent accepts either a plain string or an array of content parts,
// keeping only the text parts.
type messageContent string

func (c *messageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = messageContent(s)
		return nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err != nil {
		return errors.New("message content must be a string or an array of parts")
	}

	var texts []string
	for _, p := range parts {
		if p.Type == "text" {
			texts = append(texts, p.Text)
		}
	}
	*c = messageContent(strings.Join(texts, "\n"))
	return nil
}

// Chat streams the completion as text/plain. Failures before the first
// fragment are answered with {message} and the normalized status.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	provider := llm.Provider(mux.Vars(r)["provider"])
	name := provider.DisplayName()

	var body chatBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	p, ok := h.profile(w, r)
	if !ok {
		return
	}

	messages := make([]llm.Message, len(body.Messages))
	for i, m := range body.Messages {
		messages[i] = llm.Message{Role: m.Role, Content: string(m.Content)}
	}

	stream, err := h.gateway.Send(r.Context(), p, chat.ChatRequest{
		Provider:    provider,
		Model:       body.ChatSettings.Model,
		Messages:    messages,
		Temperature: body.ChatSettings.Temperature,
	})
	if err != nil {
		writeError(w, err, name)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			// headers are gone; all we can do is stop
			h.log.Warn("chat stream aborted",
				zap.String("provider", string(provider)),
				zap.Error(err),
			)
			return
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return
		}
		_ = rc.Flush()
	}
}

func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req rag.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	p, ok := h.profile(w, r)
	if !ok {
		return
	}

	space := metrics.Unknown
	if s, err := rag.ParseSpace(req.EmbeddingsProvider); err == nil {
		space = string(s)
	}
	resp, err := h.retrieval.Retrieve(r.Context(), p, req)
	h.metrics.RetrievalRequests.WithLabelValues(space, metrics.Outcome(err)).Inc()
	if err != nil {
		writeError(w, err, rag.ErrorProvider(p, req.EmbeddingsProvider))
		return
	}
	h.metrics.RetrievalResults.WithLabelValues(space).Observe(float64(len(resp.Results)))

	writeJSON(w, http.StatusOK, resp)
}

type commandBody struct {
	Input string `json:"input"`
}

// Command answers a single prompt with no conversation history.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	var body commandBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	p, ok := h.profile(w, r)
	if !ok {
		return
	}

	limits, _ := llm.LookupLimits(commandLimitsModel)
	temperature := float32(0)

	content, err := h.gateway.Generate(r.Context(), p, chat.ChatRequest{
		Provider: llm.ProviderOpenAI,
		Model:    commandModel,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: commandSystemPrompt},
			{Role: llm.RoleUser, Content: body.Input},
		},
		Temperature: &temperature,
		MaxTokens:   limits.MaxOutputTokens,
	})
	if err != nil {
		writeError(w, err, llm.ProviderOpenAI.DisplayName())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (h *Handler) Assistants(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 || limit > maxAssistants {
		limit = maxAssistants
	}

	page, err := h.assistants.ListAssistants(r.Context(), p, limit, q.Get("after"))
	if err != nil {
		writeError(w, err, llm.ProviderOpenAI.DisplayName())
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) (*profile.Profile, bool) {
	p, err := h.profiles.Get(r.Context(), r.Header.Get(UserHeader))
	if errors.Is(err, profile.ErrNotFound) {
		writeMessage(w, http.StatusUnauthorized, "Profile not found")
		return nil, false
	}
	if err != nil {
		h.log.Error("profile lookup failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "An unexpected error occurred")
		return nil, false
	}
	return p, true
}

func writeError(w http.ResponseWriter, err error, providerName string) {
	n := llm.Normalize(err, providerName)
	writeJSON(w, n.Status, n)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, llm.Normalized{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
