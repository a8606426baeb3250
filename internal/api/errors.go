package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GenericErrorNotice is the fallback for callers without a more specific
// operation notice.
const GenericErrorNotice = "Something went wrong."

// StatusError is a non-2xx response. Message holds the most specific
// human-readable text the body carried, or "" when it carried none. Any
// other error means the request itself failed and never reached a server
// verdict.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Notice returns the display text for this error: the server's message when
// it provided one, fallback otherwise.
func (e *StatusError) Notice(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

// NewStatusError builds a StatusError from a response body.
func NewStatusError(status int, body []byte) *StatusError {
	return &StatusError{Status: status, Message: FormatError(body)}
}

// FormatError extracts a display message from an error response body, or ""
// when the body carries nothing usable. The fields are tried in order,
// detail then message then error; a JSON null falls through to the next one.
// detail may be a plain string, a list of validation items, or a single item
// object; list entries are joined with "; ".
func FormatError(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	for _, raw := range []json.RawMessage{payload.Detail, payload.Message, payload.Error} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		// The first present field is authoritative even when unusable.
		return renderDetail(raw)
	}
	return ""
}

func renderDetail(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if msg := renderItem(item); msg != "" {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, "; ")
	}

	return renderItem(raw)
}

// renderItem renders a single validation item, either a string or an object
// with a msg or message field.
func renderItem(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if obj.Msg != "" {
		return obj.Msg
	}
	return obj.Message
}
