package cell

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalars(t *testing.T) {
	text := FromString("3.5")
	require.Equal(t, KindText, text.Kind())
	require.Equal(t, "3.5", text.Text())
	_, ok := text.Float()
	require.False(t, ok)

	num := FromFloat(3.5)
	require.Equal(t, KindNumber, num.Kind())
	f, ok := num.Float()
	require.True(t, ok)
	require.Equal(t, 3.5, f)
	require.Equal(t, "3.5", num.String())
	require.Equal(t, 1, num.Width())
	require.Equal(t, 1, num.Height())

	missing := Missing()
	require.Equal(t, KindMissing, missing.Kind())
	require.Equal(t, 0, missing.Width())
	require.Nil(t, missing.Cells())
}

func TestFromArray(t *testing.T) {
	t.Run("row major", func(t *testing.T) {
		v := FromArray(2, 2, []Value{FromFloat(1), FromFloat(2), FromFloat(3), FromFloat(4)})
		require.Equal(t, KindArray, v.Kind())
		require.Equal(t, 2, v.Width())
		require.Equal(t, 2, v.Height())
		require.Equal(t, FromFloat(2), v.At(0, 1))
		require.Equal(t, FromFloat(3), v.At(1, 0))
		require.Equal(t, "1\t2\n3\t4", v.String())
	})

	t.Run("short input is padded with missing", func(t *testing.T) {
		v := FromArray(3, 1, []Value{FromString("a")})
		cells := v.Cells()
		require.Len(t, cells, 3)
		require.Equal(t, KindText, cells[0].Kind())
		require.Equal(t, KindMissing, cells[1].Kind())
		require.Equal(t, KindMissing, cells[2].Kind())
	})

	t.Run("surplus input is dropped", func(t *testing.T) {
		v := FromArray(1, 2, []Value{FromString("a"), FromString("b"), FromString("c")})
		require.Len(t, v.Cells(), 2)
		require.Equal(t, "a\nb", v.String())
	})

	t.Run("negative dimensions clamp to zero", func(t *testing.T) {
		v := FromArray(-1, 4, []Value{FromString("a")})
		require.Equal(t, 0, v.Width())
		require.Empty(t, v.Cells())
	})

	t.Run("out of range is missing", func(t *testing.T) {
		v := FromArray(1, 1, []Value{FromString("a")})
		require.Equal(t, KindMissing, v.At(5, 0).Kind())
		require.Equal(t, KindMissing, v.At(-1, 0).Kind())
	})
}

func TestIsError(t *testing.T) {
	require.True(t, FromString("Error: destination of formula has zero size").IsError())
	require.False(t, FromString("error: lowercase is interpreter output").IsError())
	require.False(t, FromFloat(1).IsError())
}

func TestMarshalJSON(t *testing.T) {
	v := FromArray(2, 2, []Value{FromFloat(1), FromString("x"), Missing()})
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.JSONEq(t, `[[1,"x"],[null,null]]`, string(data))

	data, err = json.Marshal(FromString("hi"))
	require.NoError(t, err)
	require.Equal(t, `"hi"`, string(data))
}
