package header

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/asar/internal/archive"
	"github.com/meigma/asar/internal/pickle"
)

const scenarioJSON = `{"files":{"a.txt":{"offset":"0","size":2},"sub":{"files":{"b.txt":{"offset":"2","size":2}}}}}`

func scenarioTree() *archive.Directory {
	sub := archive.NewDirectory()
	sub.Add("b.txt", &archive.File{Offset: 2, Size: 2})
	root := archive.NewDirectory()
	root.Add("a.txt", &archive.File{Offset: 0, Size: 2})
	root.Add("sub", sub)
	return root
}

func TestEncode_Layout(t *testing.T) {
	t.Parallel()

	sizeField, headerField, err := Encode(scenarioTree())
	require.NoError(t, err)

	require.Len(t, sizeField, SizeFieldLen)
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(sizeField[0:4]), "size pickle payload length")
	h := binary.LittleEndian.Uint32(sizeField[4:8])
	assert.Equal(t, uint32(len(headerField)), h)

	wantH := 8 + pickle.AlignInt(len(scenarioJSON), 4)
	assert.Equal(t, wantH, len(headerField))
	assert.Equal(t, uint32(wantH-4), binary.LittleEndian.Uint32(headerField[0:4]), "header pickle payload length")
	assert.Equal(t, uint32(len(scenarioJSON)), binary.LittleEndian.Uint32(headerField[4:8]), "json length")
	assert.Equal(t, scenarioJSON, string(headerField[8:8+len(scenarioJSON)]))
	for _, b := range headerField[8+len(scenarioJSON):] {
		assert.Zero(t, b, "padding must be zero-filled")
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h, err := Write(&buf, scenarioTree())
	require.NoError(t, err)
	buf.WriteString("hiyo")

	r := bytes.NewReader(buf.Bytes())
	hdr, err := Read(r)
	require.NoError(t, err)

	assert.Equal(t, h, hdr.Size)
	assert.Equal(t, scenarioTree(), hdr.Root)
	assert.Equal(t, int64(8)+int64(h), hdr.ContentStart())

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hiyo", string(rest), "reader must be left at the content region")

	node, ok := archive.Find(hdr.Root, "sub/b.txt")
	require.True(t, ok)
	off, err := hdr.ContentOffset(node.(*archive.File))
	require.NoError(t, err)
	assert.Equal(t, "yo", string(buf.Bytes()[off:off+2]))
}

func TestRead_Truncated(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	_, err := Write(&buf, scenarioTree())
	require.NoError(t, err)
	full := buf.Bytes()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"partial size field", full[:5]},
		{"size field only", full[:8]},
		{"partial header", full[:len(full)-3]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.data)
			require.ErrorIs(t, err, archive.ErrDataCorruption)
		})
	}
}

func TestRead_BogusStringLength(t *testing.T) {
	t.Parallel()

	hp := pickle.New()
	require.NoError(t, hp.WriteInt32(1 << 20))
	sp := pickle.New()
	require.NoError(t, sp.WriteUint32(uint32(len(hp.Bytes()))))

	data := append(append([]byte{}, sp.Bytes()...), hp.Bytes()...)
	_, err := Parse(data)
	require.ErrorIs(t, err, archive.ErrDataCorruption)
	require.ErrorIs(t, err, pickle.ErrOutOfBounds)
}

func TestRead_BadOffsetIsFormatError(t *testing.T) {
	t.Parallel()

	hp := pickle.New()
	require.NoError(t, hp.WriteString(`{"files":{"a":{"offset":"x1","size":1}}}`))
	sp := pickle.New()
	require.NoError(t, sp.WriteUint32(uint32(len(hp.Bytes()))))

	data := append(append([]byte{}, sp.Bytes()...), hp.Bytes()...)
	_, err := Parse(data)
	require.ErrorIs(t, err, archive.ErrFormatConversion)
}

func TestRead_HugeDeclaredSize(t *testing.T) {
	t.Parallel()

	sp := pickle.New()
	require.NoError(t, sp.WriteUint32(0xFFFFFFF0))

	_, err := Parse(sp.Bytes())
	require.ErrorIs(t, err, archive.ErrDataCorruption)
}
