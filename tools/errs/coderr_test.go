package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeErrorIs(t *testing.T) {
	err := ErrTransportFault.WithDetail("queue full")
	if !ErrTransportFault.Is(err) {
		t.Error("WithDetail must preserve code identity")
	}
	if ErrRoutingFailure.Is(err) {
		t.Error("different codes must not match")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !ErrTransportFault.Is(wrapped) {
		t.Error("Is must unwrap")
	}
	if ErrTransportFault.Is(errors.New("plain")) {
		t.Error("plain error matched a code error")
	}
}

func TestWithDetailChains(t *testing.T) {
	err := ErrArgs.WithDetail("first").WithDetail("second")
	got := err.Error()
	want := "400 ArgsError first, second"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	// 原始哨兵不被污染
	if ErrArgs.Detail != "" {
		t.Errorf("sentinel mutated: %q", ErrArgs.Detail)
	}
}

func TestWrapMsgKV(t *testing.T) {
	err := ErrTransportFault.WrapMsg("send failed", "session_id", "s1")
	got := err.Error()
	want := "1002 TransportFault send failed session_id=s1"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrapMsgNil(t *testing.T) {
	if WrapMsg(nil, "ctx") != nil {
		t.Error("WrapMsg(nil) must be nil")
	}
	base := errors.New("boom")
	err := WrapMsg(base, "ctx", "k", "v")
	if !errors.Is(err, base) {
		t.Error("wrapped error lost its cause")
	}
}
