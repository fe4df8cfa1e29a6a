package errors

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "sync job not found",
			},
			want: "sync job not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to claim job",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to claim job: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
		wantMsg  string
	}{
		{"not found", NotFound("sync job not found"), ErrCodeNotFound, "sync job not found"},
		{"not foundf", NotFoundf("job %s not found", "abc"), ErrCodeNotFound, "job abc not found"},
		{"conflict", Conflict("job already exists"), ErrCodeConflict, "job already exists"},
		{"validation", Validation("invalid input"), ErrCodeValidation, "invalid input"},
		{"validationf", Validationf("bad %s", "shop"), ErrCodeValidation, "bad shop"},
		{"upstream", Upstream("shop API unavailable"), ErrCodeUpstream, "shop API unavailable"},
		{"upstreamf", Upstreamf("status %d", 503), ErrCodeUpstream, "status 503"},
		{"internal", Internal("internal error"), ErrCodeInternal, "internal error"},
		{"internalf", Internalf("boom %d", 1), ErrCodeInternal, "boom 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %v, want %v", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("object_type", "invalid object type")
	if err.Code != ErrCodeValidation {
		t.Errorf("ValidationField().Code = %v, want %v", err.Code, ErrCodeValidation)
	}
	if err.Field != "object_type" {
		t.Errorf("ValidationField().Field = %v, want %v", err.Field, "object_type")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped error")

	if err.Code != ErrCodeInternal {
		t.Errorf("Wrap().Code = %v, want %v", err.Code, ErrCodeInternal)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Wrap().Cause = %v, want %v", err.Cause, cause)
	}
}

func TestWrap_NilError(t *testing.T) {
	if err := Wrap(nil, ErrCodeInternal, "wrapped error"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
	if err := Wrapf(nil, ErrCodeInternal, "wrapped %s", "error"); err != nil {
		t.Errorf("Wrapf(nil) = %v, want nil", err)
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		pred func(error) bool
		err  error
		want bool
	}{
		{"not found matches", IsNotFound, NotFound("x"), true},
		{"not found other", IsNotFound, Conflict("x"), false},
		{"conflict matches", IsConflict, Conflict("x"), true},
		{"validation matches", IsValidation, ValidationField("f", "x"), true},
		{"upstream matches", IsUpstream, Upstream("x"), true},
		{"internal matches", IsInternal, Internal("x"), true},
		{"timeout matches", IsTimeout, &AppError{Code: ErrCodeTimeout}, true},
		{"canceled matches", IsCanceled, &AppError{Code: ErrCodeCanceled}, true},
		{"standard error", IsNotFound, errors.New("plain"), false},
		{"nil error", IsConflict, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(NotFound("x")); got != ErrCodeNotFound {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeNotFound)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode() = %v, want empty", got)
	}
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %v, want empty", got)
	}
}

func TestGetField(t *testing.T) {
	if got := GetField(ValidationField("shop", "invalid")); got != "shop" {
		t.Errorf("GetField() = %v, want shop", got)
	}
	if got := GetField(NotFound("x")); got != "" {
		t.Errorf("GetField() = %v, want empty", got)
	}
}
