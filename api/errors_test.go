package api

import (
	"errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Status: 404}, "api: 404 Not Found"},
		{&Error{Status: 400, Message: "bad input"}, "api: 400 Bad Request: bad input"},
		{&Error{Status: 200, Rejected: true}, "api: rejected by server"},
		{&Error{Status: 200, Message: "locked", Rejected: true}, "api: rejected: locked"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestError_Is(t *testing.T) {
	if errors.Is(&Error{Status: 400}, ErrRejected) {
		t.Error("HTTP error matched ErrRejected")
	}
	if !errors.Is(&Error{Rejected: true}, ErrRejected) {
		t.Error("rejection did not match ErrRejected")
	}
}
