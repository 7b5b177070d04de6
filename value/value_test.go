// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package value_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/tagstore/value"
)

func TestConstructors(t *testing.T) {
	require.Equal(t, value.TypeNull, value.Null().Type)
	require.Equal(t, value.TypeBool, value.NewBool(true).Type)
	require.Equal(t, value.TypeInt, value.NewInt(5).Type)
	require.Equal(t, value.TypeFloat, value.NewFloat(5.5).Type)
	require.Equal(t, value.TypeString, value.NewString("x").Type)
	require.Equal(t, value.TypeSet, value.NewSet([]string{"a"}).Type)

	opaque := value.NewOpaque("text/plain", []byte("hello"))
	require.Equal(t, value.TypeOpaque, opaque.Type)
	require.Equal(t, int64(5), opaque.Opaque.Size)
	// sha256("hello")
	require.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", opaque.Opaque.FileID)
}

func TestEqual(t *testing.T) {
	require.True(t, value.Null().Equal(value.Null()))
	require.True(t, value.NewBool(true).Equal(value.NewBool(true)))
	require.False(t, value.NewBool(true).Equal(value.NewBool(false)))
	require.False(t, value.Null().Equal(value.NewBool(false)))

	require.True(t, value.NewInt(5).Equal(value.NewFloat(5)))
	require.False(t, value.NewInt(5).Equal(value.NewFloat(5.5)))

	require.True(t, value.NewSet([]string{"b", "a", "a"}).Equal(value.NewSet([]string{"a", "b"})))
	require.False(t, value.NewSet([]string{"a"}).Equal(value.NewSet([]string{"a", "b"})))

	left := value.NewOpaque("text/plain", []byte("same"))
	right := value.NewOpaque("application/json", []byte("same"))
	require.True(t, left.Equal(right))
}

func TestJSONRoundTrip(t *testing.T) {
	values := []value.Value{
		value.Null(),
		value.NewBool(true),
		value.NewInt(42),
		value.NewFloat(4.5),
		value.NewString("éric serra"),
		value.NewSet([]string{"sf", "fantasy"}),
		value.NewOpaque("text/plain", []byte("hello")),
	}
	for _, v := range values {
		data, err := json.Marshal(v)
		require.NoError(t, err)

		var decoded value.Value
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Equal(t, v.Type, decoded.Type, v.Type.String())
		require.True(t, v.Equal(decoded), v.Type.String())
	}
}

func TestJSONNumbers(t *testing.T) {
	var v value.Value
	require.NoError(t, json.Unmarshal([]byte(`5`), &v))
	require.Equal(t, value.TypeInt, v.Type)
	require.Equal(t, int64(5), v.Int)

	require.NoError(t, json.Unmarshal([]byte(`5.0`), &v))
	require.Equal(t, value.TypeFloat, v.Type)
	require.Equal(t, 5.0, v.Float)

	require.NoError(t, json.Unmarshal([]byte(`1e3`), &v))
	require.Equal(t, value.TypeFloat, v.Type)
	require.Equal(t, 1000.0, v.Float)
}

func TestJSONOpaque(t *testing.T) {
	data, err := json.Marshal(value.NewOpaque("text/plain", []byte("hello")))
	require.NoError(t, err)

	var decoded value.Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "text/plain", decoded.Opaque.MIMEType)
	require.Equal(t, []byte("hello"), decoded.Opaque.Contents)
	require.Equal(t, int64(5), decoded.Opaque.Size)

	// Metadata-only opaque values survive without contents.
	var meta value.Value
	require.NoError(t, json.Unmarshal([]byte(`{"mime-type":"image/png","size":9000,"file-id":"abcd"}`), &meta))
	require.Equal(t, value.TypeOpaque, meta.Type)
	require.Equal(t, int64(9000), meta.Opaque.Size)
	require.Nil(t, meta.Opaque.Contents)

	var v value.Value
	require.Error(t, json.Unmarshal([]byte(`{"size":1}`), &v))
	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &v))
}
