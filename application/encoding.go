// Defines the functions to encode and decode the messages exchanged with
// the key transparency API. The API speaks JSON: every response carries
// a Code next to its payload, and an Error message when it failed.

package application

import (
	"encoding/json"
	"net/http"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

// APISuccessCode is the Code of a successful API response.
const APISuccessCode = 1000

type envelope struct {
	Code  int    `json:"Code"`
	Error string `json:"Error,omitempty"`
}

// MarshalRequest returns a JSON encoding of a request body.
func MarshalRequest(request interface{}) ([]byte, error) {
	return json.Marshal(request)
}

// MarshalResponse returns a JSON encoding of a successful response
// carrying payload, which must encode to a JSON object.
func MarshalResponse(payload interface{}) ([]byte, error) {
	msg, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(msg, &fields); err != nil {
		return nil, err
	}
	fields["Code"] = json.RawMessage(`1000`)
	return json.Marshal(fields)
}

// MarshalErrorResponse returns a JSON encoding of a failed response.
func MarshalErrorResponse(code int, message string) ([]byte, error) {
	return json.Marshal(&envelope{Code: code, Error: message})
}

// UnmarshalResponse decodes the response msg received with the HTTP
// status into out. A failed response is returned as a
// *protocol.APIError: status 422 matches protocol.ErrUnprocessable and
// status 404 matches protocol.ErrNotFound.
func UnmarshalResponse(status int, msg []byte, out interface{}) error {
	var env envelope
	jsonErr := json.Unmarshal(msg, &env)

	switch {
	case status == http.StatusUnprocessableEntity:
		return &protocol.APIError{Status: status, Code: protocol.ReqUnprocessable, Message: env.Error}
	case status == http.StatusNotFound:
		return &protocol.APIError{Status: status, Code: protocol.ReqNotFound, Message: env.Error}
	case status < 200 || status > 299:
		return &protocol.APIError{Status: status, Code: protocol.ErrTransport, Message: env.Error}
	case jsonErr != nil:
		return &protocol.APIError{Status: status, Code: protocol.ErrMalformedMessage, Message: jsonErr.Error()}
	case env.Code != 0 && env.Code != APISuccessCode:
		return &protocol.APIError{Status: status, Code: protocol.ErrTransport, Message: env.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(msg, out); err != nil {
		return &protocol.APIError{Status: status, Code: protocol.ErrMalformedMessage, Message: err.Error()}
	}
	return nil
}
