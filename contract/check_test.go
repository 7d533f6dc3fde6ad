package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/toolflow/types"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		desc    *Descriptor
		wantErr string
	}{
		{name: "well formed", desc: weatherInput()},
		{name: "nil", desc: nil, wantErr: "descriptor is nil"},
		{name: "unknown kind", desc: &Descriptor{Kind: "date"}, wantErr: `unknown kind "date"`},
		{name: "array without items", desc: &Descriptor{Kind: KindArray}, wantErr: "array descriptor has no items"},
		{name: "undeclared required", desc: Object().Require("city"), wantErr: `required field "city" is not declared`},
		{
			name:    "required with default",
			desc:    Object().Prop("city", String().WithDefault("x")).Require("city"),
			wantErr: `required field "city" must not declare a default`,
		},
		{name: "empty enum", desc: &Descriptor{Enum: []any{}}, wantErr: "enum is empty"},
		{name: "no kind no enum", desc: &Descriptor{}, wantErr: "neither kind nor enum"},
		{name: "enum of wrong kind", desc: Number().WithEnum("a"), wantErr: "does not match kind number"},
		{name: "bad default", desc: Number().WithDefault("ten"), wantErr: "default does not satisfy descriptor"},
		{
			name:    "nested problem path",
			desc:    Object().Prop("loc", Object().Prop("pts", &Descriptor{Kind: KindArray})),
			wantErr: "loc.pts: array descriptor has no items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.desc)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, types.ErrMalformedContract, types.GetErrorCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDescriptor_CloneIsDeep(t *testing.T) {
	orig := weatherInput()
	clone := orig.Clone()

	clone.Properties["city"].Kind = KindNumber
	clone.Required[0] = "units"
	clone.Properties["units"].Enum[0] = "kelvin"

	assert.Equal(t, KindString, orig.Properties["city"].Kind)
	assert.Equal(t, []string{"city"}, orig.Required)
	assert.Equal(t, "celsius", orig.Properties["units"].Enum[0])
}
