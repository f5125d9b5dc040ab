package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const unexpectedErrorMessage = "An unexpected error occurred"

// Error is the single failure shape produced by adapters and the gateway.
// Status is zero when the upstream supplied none.
type Error struct {
	Status   int
	Message  string
	Provider Provider
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider != "" {
		msg = string(e.Provider) + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ConfigError reports missing or invalid request configuration. It is always
// raised before any network call.
func ConfigError(provider Provider, message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message, Provider: provider}
}

// MissingKeyError is raised when the profile lacks the key a provider needs.
func MissingKeyError(provider Provider) *Error {
	return ConfigError(provider, provider.DisplayName()+" API Key not found")
}

// UpstreamError wraps a failure returned by a provider or the vector store.
func UpstreamError(provider Provider, status int, message string, cause error) *Error {
	return &Error{Status: status, Message: message, Provider: provider, Err: cause}
}

const (
	MsgModelNotFound          = "Model not found"
	MsgProviderNotFound       = "Provider not found"
	MsgAzureResourcesNotFound = "Azure resources not found"
	MsgEmbeddingsUnsupported  = "embeddings are not supported by this provider"
)

// Normalized is the {status, message} pair returned to callers.
type Normalized struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

// Normalize maps any failure to a status and a user-facing message. It is a
// pure function of its inputs.
func Normalize(err error, providerName string) Normalized {
	status := http.StatusInternalServerError
	var message string

	var e *Error
	if errors.As(err, &e) {
		if e.Status != 0 {
			status = e.Status
		}
		message = e.Message
	} else if err != nil {
		message = err.Error()
	}

	switch {
	case strings.Contains(strings.ToLower(message), "api key not found"):
		message = providerName + " API Key not found. Please set it in your profile settings."
	case status == http.StatusUnauthorized:
		message = providerName + " API Key is incorrect. Please fix it in your profile settings."
	case message == "":
		message = unexpectedErrorMessage
	}

	return Normalized{Status: status, Message: message}
}
