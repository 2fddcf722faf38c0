package errors

import (
	"errors"
	"testing"
)

func TestAppErrorError(t *testing.T) {
	err := NewError(10001, "测试错误")
	expected := "[10001] 测试错误"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestAppErrorWrap(t *testing.T) {
	original := errors.New("原始错误")
	wrapped := ErrDBError.Wrap(original)

	if wrapped.Code != CodeDBError {
		t.Errorf("Wrapped error should keep the code, got %d", wrapped.Code)
	}
	if !errors.Is(wrapped, original) {
		t.Error("Wrapped error should unwrap to the original")
	}
	// Wrap 返回新实例，不污染预定义错误
	if ErrDBError.Err != nil {
		t.Error("Predefined error should not be mutated")
	}
}

func TestIs(t *testing.T) {
	if !Is(ErrNotParticipant, ErrNotParticipant) {
		t.Error("Is should match the same error")
	}
	if !Is(ErrNotParticipant.Wrap(errors.New("x")), ErrNotParticipant) {
		t.Error("Is should match a wrapped error by code")
	}
	if Is(ErrNotParticipant, ErrEmptyMessage) {
		t.Error("Is should not match different codes")
	}
	if Is(errors.New("plain"), ErrServerError) {
		t.Error("Is should not match a plain error")
	}
	if Is(nil, ErrServerError) {
		t.Error("Is should not match nil")
	}
}

func TestGetCode(t *testing.T) {
	if code := GetCode(ErrCannotFollowSelf); code != CodeCannotFollowSelf {
		t.Errorf("Expected %d, got %d", CodeCannotFollowSelf, code)
	}
	if code := GetCode(errors.New("plain")); code != CodeServerError {
		t.Errorf("Plain error should map to CodeServerError, got %d", code)
	}
}

func TestGetMessage(t *testing.T) {
	if msg := GetMessage(ErrEmptyMessage); msg != "消息内容和附件不能同时为空" {
		t.Errorf("Unexpected message %q", msg)
	}
	if msg := GetMessage(errors.New("plain")); msg != "服务器内部错误" {
		t.Errorf("Plain error should map to the generic message, got %q", msg)
	}
}
