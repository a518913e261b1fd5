package rohcerr

import (
	"errors"
	"strings"
	"testing"
)

func TestCodeStringCoversEveryConstant(t *testing.T) {
	cases := map[Code]string{
		OK:              "OK",
		BufferTooSmall:  "BufferTooSmall",
		Unsupported:     "Unsupported",
		NoMemory:        "NoMemory",
		InvalidCid:      "InvalidCid",
		ProfileDisabled: "ProfileDisabled",
		InvalidFeedback: "InvalidFeedback",
		Code(99):        "Unknown",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Errorf("Code(%d).String() = %q, want %q", code, got, want)
		}
	}
}

func TestErrorMessageIncludesCIDWhenNonzero(t *testing.T) {
	err := NewBufferTooSmall(7, 10, 4)
	msg := err.Error()
	if !strings.Contains(msg, "cid=7") {
		t.Errorf("Error() = %q, want it to mention cid=7", msg)
	}
}

func TestErrorMessageOmitsCIDWhenZero(t *testing.T) {
	err := NewNoMemory("context table exhausted")
	msg := err.Error()
	if strings.Contains(msg, "cid=") {
		t.Errorf("Error() = %q, want no cid= suffix for a CID-less error", msg)
	}
}

func TestErrorMessageIncludesCIDZero(t *testing.T) {
	// CID 0 is a valid, commonly-hit flow (the first context in
	// small-CID mode) and must not be silently treated as "no CID".
	err := NewBufferTooSmall(0, 10, 4)
	msg := err.Error()
	if !strings.Contains(msg, "cid=0") {
		t.Errorf("Error() = %q, want it to mention cid=0, not omit it", msg)
	}
}

func TestIsMatchesCodeOnDomainErrors(t *testing.T) {
	err := NewInvalidCid(3, "out of range")
	if !Is(err, InvalidCid) {
		t.Error("Is(err, InvalidCid) = false, want true")
	}
	if Is(err, BufferTooSmall) {
		t.Error("Is(err, BufferTooSmall) = true, want false")
	}
}

func TestIsReturnsFalseForForeignErrors(t *testing.T) {
	if Is(errors.New("plain error"), BufferTooSmall) {
		t.Error("Is must return false for an error that isn't *rohcerr.Error")
	}
	if Is(nil, BufferTooSmall) {
		t.Error("Is must return false for a nil error")
	}
}

func TestNewProfileDisabledIncludesProfileName(t *testing.T) {
	err := NewProfileDisabled("UDP")
	if !strings.Contains(err.Message, "UDP") {
		t.Errorf("Message = %q, want it to mention the profile name", err.Message)
	}
}

func TestNewInvalidFeedbackCarriesReason(t *testing.T) {
	err := NewInvalidFeedback("bad CRC")
	if err.Code != InvalidFeedback || err.Message != "bad CRC" {
		t.Errorf("got %+v, want Code=InvalidFeedback Message=\"bad CRC\"", err)
	}
}
