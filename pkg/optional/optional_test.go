package optional

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patch struct {
	Name        Value[string] `json:"name"`
	Description Value[string] `json:"description"`
	Stock       Value[int]    `json:"stock"`
}

func TestUnmarshalDistinguishesAbsentNullAndValue(t *testing.T) {
	var p patch
	require.NoError(t, json.Unmarshal([]byte(`{"description": null, "stock": 0}`), &p))

	assert.False(t, p.Name.IsSet())
	assert.True(t, p.Description.IsSet())
	assert.True(t, p.Description.IsNull())

	stock, ok := p.Stock.Get()
	assert.True(t, ok)
	assert.Equal(t, 0, stock)
}

func TestEmptyStringIsPresent(t *testing.T) {
	var p patch
	require.NoError(t, json.Unmarshal([]byte(`{"name": ""}`), &p))

	name, ok := p.Name.Get()
	assert.True(t, ok)
	assert.Equal(t, "", name)
	assert.False(t, p.Name.IsNull())
}

func TestHelpers(t *testing.T) {
	assert.Nil(t, Null[string]().Ptr())
	assert.Nil(t, Value[string]{}.Ptr())
	assert.Equal(t, "x", *Some("x").Ptr())

	out, err := json.Marshal(patch{Name: Some("lamp"), Description: Null[string]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"lamp","description":null,"stock":null}`, string(out))
}
