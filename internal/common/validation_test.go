package common

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatorRules(t *testing.T) {
	tests := []struct {
		name  string
		value any
		rules []ValidationRule
		ok    bool
	}{
		{"required blank", "  ", []ValidationRule{Required}, false},
		{"required nil", nil, []ValidationRule{Required}, false},
		{"required nil pointer", (*string)(nil), []ValidationRule{Required}, false},
		{"required set", "달빛", []ValidationRule{Required}, true},
		{"uuid valid", "7d444840-9dc0-11d1-b245-5ffdce74fad2", []ValidationRule{Required, UUID}, true},
		{"uuid invalid", "nope", []ValidationRule{UUID}, false},
		{"uuid blank left to required", "", []ValidationRule{UUID}, true},
		{"uuid not a string", 42, []ValidationRule{UUID}, false},
		{"max len runes", "달빛달빛", []ValidationRule{MaxLen(4)}, true},
		{"max len exceeded", "달빛달빛!", []ValidationRule{MaxLen(4)}, false},
		{"control chars", "a\tb", []ValidationRule{NoControlChars}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator().Field("f", tt.value, tt.rules...)
			if v.HasErrors() == tt.ok {
				t.Fatalf("HasErrors = %v, errors: %s", v.HasErrors(), v.ErrorMessage())
			}
		})
	}
}

func TestValidatorCollectsAllFailures(t *testing.T) {
	v := NewValidator().
		Field("session_id", "nope", Required, UUID).
		Field("nickname", "", Required)
	err := v.Error()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	msg := v.ErrorMessage()
	if !strings.Contains(msg, "session_id must be a UUID") || !strings.Contains(msg, "nickname is required") {
		t.Fatalf("message = %q", msg)
	}
	if NewValidator().Error() != nil {
		t.Fatal("empty validator should pass")
	}
}

func TestValidateNickname(t *testing.T) {
	if err := ValidateNickname("nickname", "별빛기사"); err != nil {
		t.Fatalf("valid nickname: %v", err)
	}
	if err := ValidateNickname("nickname", strings.Repeat("가", MaxNicknameLength+1)); !errors.Is(err, ErrValidation) {
		t.Fatalf("long nickname err = %v", err)
	}
}
