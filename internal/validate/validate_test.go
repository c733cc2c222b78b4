package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type loginRequest struct {
	StudentID string `json:"student_id" validate:"required_without=Username"`
	Username  string `json:"username"`
	Password  string `json:"password" validate:"required,min=1"`
}

type nested struct {
	Items []item `json:"items" validate:"dive"`
}

type item struct {
	Score int `json:"score" validate:"gte=0"`
}

func TestDecodeJSON(t *testing.T) {
	var req loginRequest
	assert.Nil(t, DecodeJSON(strings.NewReader(`{"student_id":"S1","password":"x"}`), &req))
	assert.Equal(t, "S1", req.StudentID)
}

func TestDecodeJSONFieldErrors(t *testing.T) {
	var req loginRequest
	fields := DecodeJSON(strings.NewReader(`{}`), &req)
	assert.Contains(t, fields, "student_id")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields["password"], "required")
}

func TestDecodeJSONSyntaxAndEmpty(t *testing.T) {
	var req loginRequest
	fields := DecodeJSON(strings.NewReader(`{"student_id":`), &req)
	assert.Contains(t, fields, "detail")

	fields = DecodeJSON(strings.NewReader(``), &req)
	assert.Equal(t, "request body is empty", fields["detail"])
}

func TestNestedNamespace(t *testing.T) {
	err := Struct(nested{Items: []item{{Score: 1}, {Score: -1}}})
	fields := TranslateErrors(err)
	assert.Contains(t, fields, "items[1].score")
}

func TestTranslateOtherError(t *testing.T) {
	assert.Equal(t, map[string]string{"detail": "boom"}, TranslateErrors(errors.New("boom")))
}
