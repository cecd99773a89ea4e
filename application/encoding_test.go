package application

import (
	"errors"
	"net/http"
	"testing"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

func TestUnmarshalResponse(t *testing.T) {
	msg, err := MarshalResponse(&protocol.VerifiedEpoch{Data: "data", Signature: "sig"})
	if err != nil {
		t.Fatal(err)
	}
	var ve protocol.VerifiedEpoch
	if err := UnmarshalResponse(http.StatusOK, msg, &ve); err != nil {
		t.Fatal(err)
	}
	if ve.Data != "data" || ve.Signature != "sig" {
		t.Error("Cannot unmarshal the payload properly, got", ve)
	}
}

func TestUnmarshalErrorResponse(t *testing.T) {
	msg, err := MarshalErrorResponse(2501, "epoch does not exist yet")
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		status int
		want   error
	}{
		{http.StatusUnprocessableEntity, protocol.ErrUnprocessable},
		{http.StatusNotFound, protocol.ErrNotFound},
		{http.StatusInternalServerError, protocol.ErrTransport},
		{http.StatusOK, protocol.ErrTransport},
	} {
		err := UnmarshalResponse(tc.status, msg, nil)
		if !errors.Is(err, tc.want) {
			t.Error("Expect error", tc.want, "got", err)
		}
	}
}

func TestUnmarshalMalformedResponse(t *testing.T) {
	err := UnmarshalResponse(http.StatusOK, []byte("<html>"), nil)
	if !errors.Is(err, protocol.ErrMalformedMessage) {
		t.Error("Expect error", protocol.ErrMalformedMessage, "got", err)
	}
}
