package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type invitePayload struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=120"`
	Role  string `json:"role" validate:"required,oneof=admin editor viewer"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := invitePayload{
		Email: "alice@example.com",
		Name:  "Alice",
		Role:  "editor",
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	payload := invitePayload{
		Email: "invalid",
		Name:  "",
		Role:  "owner",
	}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(vErrs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d", len(vErrs))
	}

	messages := map[string]string{}
	for i, v := range vErrs {
		messages[v.Field] = vErrs.Messages()[i]
	}
	if messages["email"] != "email must be a valid email address" {
		t.Fatalf("unexpected email message %q", messages["email"])
	}
	if messages["role"] != "role must be one of: admin, editor, viewer" {
		t.Fatalf("unexpected role message %q", messages["role"])
	}
	if messages["name"] != "name is required" {
		t.Fatalf("unexpected name message %q", messages["name"])
	}
}

func TestValidateVarUsesFieldName(t *testing.T) {
	err := ValidateVar("member_email", "nope", "required,email")
	vErrs, ok := err.(ValidationErrors)
	if !ok || len(vErrs) != 1 {
		t.Fatalf("expected a single validation error, got %v", err)
	}
	if vErrs[0].Field != "member_email" {
		t.Fatalf("unexpected field %q", vErrs[0].Field)
	}
	if err := ValidateVar("member_email", "bob@x.com", "required,email"); err != nil {
		t.Fatalf("expected valid email, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("usage_kind", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "storage", "tokens", "prompts":
			return true
		}
		return false
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	type custom struct {
		Kind string `validate:"usage_kind"`
	}

	if err := ValidateStruct(custom{Kind: "tokens"}); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
	if err := ValidateStruct(custom{Kind: "bandwidth"}); err == nil {
		t.Fatal("expected validation to fail for non-matching value")
	}
}
