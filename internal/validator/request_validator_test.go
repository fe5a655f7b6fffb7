package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=10"`
	Quantity int64  `json:"quantity" validate:"gte=1"`
	Note     string `json:"-" validate:"max=3"`
}

func TestRequestValidator_Validate(t *testing.T) {
	v := New()

	tests := []struct {
		name string
		in   sampleRequest
		want string
	}{
		{"ok", sampleRequest{Name: "tee", Quantity: 1}, ""},
		{"required", sampleRequest{Quantity: 1}, "name failed on required"},
		{"blank", sampleRequest{Name: "   ", Quantity: 1}, "name failed on notblank"},
		{"param", sampleRequest{Name: "tee", Quantity: 0}, "quantity failed on gte=1"},
		{"struct field name", sampleRequest{Name: "tee", Quantity: 1, Note: "long"}, "Note failed on max=3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestRequestValidator_NonStruct(t *testing.T) {
	assert.Error(t, New().Validate("not a struct"))
}
