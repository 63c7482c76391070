package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"latex-parser/internal/types"
)

const sample = "\\section{引言} % 注释\n文本"

func gbkBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestDetect(t *testing.T) {
	le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("ab"))
	require.NoError(t, err)
	be, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("ab"))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want Encoding
	}{
		{"plain", []byte(sample), UTF8},
		{"empty", nil, UTF8},
		{"bom", append([]byte{0xEF, 0xBB, 0xBF}, "x"...), UTF8BOM},
		{"utf16le", le, UTF16LE},
		{"utf16be", be, UTF16BE},
		{"gbk", gbkBytes(t, sample), GBK},
		{"garbage", []byte{0x81, 0x20, 0xFF}, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.data))
		})
	}
}

func TestDecode(t *testing.T) {
	text, enc, err := Decode(gbkBytes(t, sample), Auto)
	require.NoError(t, err)
	assert.Equal(t, GBK, enc)
	assert.Equal(t, sample, text)

	text, enc, err = Decode(append([]byte{0xEF, 0xBB, 0xBF}, "\\relax"...), Auto)
	require.NoError(t, err)
	assert.Equal(t, UTF8BOM, enc)
	assert.Equal(t, "\\relax", text)

	text, _, err = Decode([]byte{'c', 'a', 'f', 0xE9}, Latin1)
	require.NoError(t, err)
	assert.Equal(t, "café", text)

	_, _, err = Decode([]byte{0xFF, 0x20, 0x81}, UTF8)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrEncoding, appErr.Code)

	_, _, err = Decode([]byte{0x81, 0x20, 0xFF}, Auto)
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, enc := range []Encoding{UTF8, UTF8BOM, UTF16LE, UTF16BE, GBK} {
		t.Run(string(enc), func(t *testing.T) {
			data, err := Encode(sample, enc)
			require.NoError(t, err)
			assert.Equal(t, enc, Detect(data))
			text, got, err := Decode(data, Auto)
			require.NoError(t, err)
			assert.Equal(t, enc, got)
			assert.Equal(t, sample, text)
		})
	}

	_, err := Encode("x", Unknown)
	assert.Error(t, err)
	_, err = Encode("引", Latin1)
	assert.Error(t, err, "latin1 cannot hold CJK text")
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{
		"":           Auto,
		"auto":       Auto,
		"UTF8":       UTF8,
		"utf8-bom":   UTF8BOM,
		"utf-16le":   UTF16LE,
		"utf-16be":   UTF16BE,
		" gb2312 ":   GBK,
		"Latin-1":    Latin1,
		"iso-8859-1": Latin1,
	} {
		got, err := ParseEncoding(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseEncoding("ebcdic")
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.tex")
	require.NoError(t, os.WriteFile(path, gbkBytes(t, sample), 0644))

	f, err := ReadFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, GBK, f.Encoding)
	assert.Equal(t, sample, f.Text)

	out := filepath.Join(dir, "out.tex")
	require.NoError(t, f.WriteFile(out, f.Text+"\n"))
	again, err := ReadFile(out, Options{})
	require.NoError(t, err)
	assert.Equal(t, GBK, again.Encoding)
	assert.Equal(t, sample+"\n", again.Text)

	_, err = ReadFile(filepath.Join(dir, "missing.tex"), Options{})
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrFileNotFound, appErr.Code)
}

func TestNFC(t *testing.T) {
	decomposed := "cafe\u0301"
	f, err := Load("x.tex", []byte(decomposed), Options{NFC: true})
	require.NoError(t, err)
	assert.Equal(t, "café", f.Text)

	f, err = Load("x.tex", []byte(decomposed), Options{})
	require.NoError(t, err)
	assert.Equal(t, decomposed, f.Text)
}
