// Package source reads TeX sources from disk and decodes them to UTF-8.
//
// Files written by older editors are still common in the wild: UTF-8 with a
// byte order mark, UTF-16 and GBK. The parser only deals with UTF-8 text, so
// every file goes through Decode first. Encode reverses the conversion for
// tools that write a source back.
package source

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"

	"latex-parser/internal/logger"
	"latex-parser/internal/types"
)

// Encoding names a supported source encoding
type Encoding string

const (
	Auto    Encoding = "auto"
	UTF8    Encoding = "UTF-8"
	UTF8BOM Encoding = "UTF-8-BOM"
	UTF16LE Encoding = "UTF-16LE"
	UTF16BE Encoding = "UTF-16BE"
	GBK     Encoding = "GBK"
	Latin1  Encoding = "ISO-8859-1"
	Unknown Encoding = "UNKNOWN"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// ParseEncoding maps a user supplied name onto an Encoding.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return Auto, nil
	case "utf-8", "utf8":
		return UTF8, nil
	case "utf-8-bom", "utf8-bom":
		return UTF8BOM, nil
	case "utf-16le", "utf16le":
		return UTF16LE, nil
	case "utf-16be", "utf16be":
		return UTF16BE, nil
	case "gbk", "gb2312", "cp936":
		return GBK, nil
	case "latin1", "latin-1", "iso-8859-1":
		return Latin1, nil
	}
	return Unknown, types.NewAppErrorWithDetails(types.ErrEncoding, "unsupported encoding", name, nil)
}

// Detect guesses the encoding of data.
// Returns UTF8BOM, UTF16LE, UTF16BE, UTF8, GBK, or Unknown.
func Detect(data []byte) Encoding {
	switch {
	case bytes.HasPrefix(data, bom):
		return UTF8BOM
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return UTF16LE
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return UTF16BE
	case utf8.Valid(data):
		return UTF8
	case isValidGBK(data):
		return GBK
	}
	return Unknown
}

// isValidGBK checks if data decodes as GBK without replacement characters
func isValidGBK(data []byte) bool {
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err != nil {
		return false
	}
	return utf8.Valid(decoded) && !bytes.ContainsRune(decoded, utf8.RuneError)
}

func codec(enc Encoding) (encoding.Encoding, bool) {
	switch enc {
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), true
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), true
	case GBK:
		return simplifiedchinese.GBK, true
	case Latin1:
		return charmap.ISO8859_1, true
	}
	return nil, false
}

// Decode converts data in enc to a UTF-8 string. Auto detects the encoding
// first; the encoding actually used is returned alongside the text.
func Decode(data []byte, enc Encoding) (string, Encoding, error) {
	if enc == Auto || enc == "" {
		enc = Detect(data)
		if enc == Unknown {
			return "", enc, types.NewAppError(types.ErrEncoding, "cannot detect source encoding", nil)
		}
	}

	switch enc {
	case UTF8:
		if !utf8.Valid(data) {
			return "", enc, types.NewAppError(types.ErrEncoding, "source is not valid UTF-8", nil)
		}
		return string(data), enc, nil
	case UTF8BOM:
		return string(bytes.TrimPrefix(data, bom)), enc, nil
	}

	c, ok := codec(enc)
	if !ok {
		return "", enc, types.NewAppErrorWithDetails(types.ErrEncoding, "unsupported encoding", string(enc), nil)
	}
	decoded, err := c.NewDecoder().Bytes(data)
	if err != nil {
		return "", enc, types.NewAppError(types.ErrEncoding, fmt.Sprintf("failed to decode from %s", enc), err)
	}
	return string(decoded), enc, nil
}

// Encode converts UTF-8 text back to enc.
func Encode(text string, enc Encoding) ([]byte, error) {
	switch enc {
	case UTF8, Auto, "":
		return []byte(text), nil
	case UTF8BOM:
		return append(append([]byte{}, bom...), text...), nil
	}
	c, ok := codec(enc)
	if !ok {
		return nil, types.NewAppErrorWithDetails(types.ErrEncoding, "unsupported encoding", string(enc), nil)
	}
	out, err := c.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, types.NewAppError(types.ErrEncoding, fmt.Sprintf("failed to encode to %s", enc), err)
	}
	return out, nil
}

// File is a decoded source file
type File struct {
	Path     string
	Encoding Encoding
	Text     string
}

// Options control how files are read
type Options struct {
	Encoding Encoding
	// NFC composes combining sequences so that "é" and "é" tokenize alike.
	// The text no longer matches the bytes on disk when this changes anything.
	NFC bool
}

// ReadFile reads and decodes the file at path.
func ReadFile(path string, opts Options) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewAppErrorWithDetails(types.ErrFileNotFound, "source file not found", path, err)
		}
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to read file", err)
	}
	return Load(path, data, opts)
}

// Load decodes data read from path.
func Load(path string, data []byte, opts Options) (*File, error) {
	text, enc, err := Decode(data, opts.Encoding)
	if err != nil {
		logger.Warn("failed to decode source", logger.String("path", path), logger.Err(err))
		return nil, err
	}
	if opts.NFC && !norm.NFC.IsNormalString(text) {
		logger.Debug("normalizing source to NFC", logger.String("path", path))
		text = norm.NFC.String(text)
	}
	logger.Debug("source decoded",
		logger.String("path", path),
		logger.String("encoding", string(enc)),
		logger.Int("bytes", len(data)))
	return &File{Path: path, Encoding: enc, Text: text}, nil
}

// WriteFile encodes text in the file's original encoding and writes it to path.
func (f *File) WriteFile(path, text string) error {
	data, err := Encode(text, f.Encoding)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return types.NewAppError(types.ErrInvalidInput, "failed to write file", err)
	}
	return nil
}
