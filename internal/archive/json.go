package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Encode serializes the tree rooted at root to its header JSON.
//
// Directories become {"files":{...}} with children in stored order. Files
// become {"offset":"<decimal>","size":N} with "executable" and "unpacked"
// present only when true; unpacked files carry no offset. Symlinks become
// {"link":"<path>"}.
func Encode(root *Directory) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeNode(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeNode(buf *bytes.Buffer, n Node) error {
	switch n := n.(type) {
	case *Directory:
		buf.WriteString(`{"files":{`)
		for i, e := range n.Entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, e.Name); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encodeNode(buf, e.Node); err != nil {
				return fmt.Errorf("encode %q: %w", e.Name, err)
			}
		}
		buf.WriteString(`}}`)
	case *File:
		buf.WriteByte('{')
		if !n.Unpacked {
			buf.WriteString(`"offset":"`)
			buf.WriteString(strconv.FormatUint(n.Offset, 10))
			buf.WriteString(`",`)
		}
		buf.WriteString(`"size":`)
		buf.WriteString(strconv.FormatUint(n.Size, 10))
		if n.Executable {
			buf.WriteString(`,"executable":true`)
		}
		if n.Unpacked {
			buf.WriteString(`,"unpacked":true`)
		}
		buf.WriteByte('}')
	case *Symlink:
		buf.WriteString(`{"link":`)
		if err := writeString(buf, n.Link); err != nil {
			return err
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown node type %T", n)
	}
	return nil
}

// writeString writes s as a JSON string without HTML escaping.
func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}

// Decode parses header JSON into a tree. Entry order is preserved.
//
// Malformed JSON or a root that is not a directory is reported as
// ErrDataCorruption. A packed file whose offset is missing or not a
// non-negative integer is reported as ErrFormatConversion. Unknown keys are
// ignored.
func Decode(data []byte) (*Directory, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := decodeNode(dec)
	if err != nil {
		if errors.Is(err, ErrFormatConversion) || errors.Is(err, ErrDataCorruption) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: decode header: %w", ErrDataCorruption, err)
	}
	root, ok := n.(*Directory)
	if !ok {
		return nil, fmt.Errorf("%w: header root is not a directory", ErrDataCorruption)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after header", ErrDataCorruption)
	}
	return root, nil
}

func decodeNode(dec *json.Decoder) (Node, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var (
		files      *Directory
		link       *string
		size       *uint64
		offset     *string
		executable bool
		unpacked   bool
	)
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case "files":
			if files, err = decodeEntries(dec); err != nil {
				return nil, err
			}
		case "link":
			var s string
			if err := dec.Decode(&s); err != nil {
				return nil, fmt.Errorf("link: %w", err)
			}
			link = &s
		case "size":
			var num json.Number
			if err := dec.Decode(&num); err != nil {
				return nil, fmt.Errorf("size: %w", err)
			}
			v, err := strconv.ParseUint(num.String(), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: size %q", ErrDataCorruption, num)
			}
			size = &v
		case "offset":
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("offset: %w", err)
			}
			s := offsetText(raw)
			offset = &s
		case "executable":
			if err := dec.Decode(&executable); err != nil {
				return nil, fmt.Errorf("executable: %w", err)
			}
		case "unpacked":
			if err := dec.Decode(&unpacked); err != nil {
				return nil, fmt.Errorf("unpacked: %w", err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}

	switch {
	case link != nil:
		return &Symlink{Link: *link}, nil
	case files != nil:
		return files, nil
	}

	if size == nil {
		return nil, fmt.Errorf("%w: file entry without size", ErrDataCorruption)
	}
	f := &File{Size: *size, Executable: executable, Unpacked: unpacked}
	if unpacked && offset == nil {
		return f, nil
	}
	if offset == nil {
		return nil, fmt.Errorf("%w: missing offset", ErrFormatConversion)
	}
	v, err := strconv.ParseUint(*offset, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrFormatConversion, *offset)
	}
	f.Offset = v
	return f, nil
}

func decodeEntries(dec *json.Decoder) (*Directory, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	dir := NewDirectory()
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		child, err := decodeNode(dec)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
		dir.Add(name, child)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return dir, nil
}

// offsetText returns the decimal text of an offset written either as a JSON
// string or, leniently, as a bare number.
func offsetText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", ErrDataCorruption, tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrDataCorruption, want, tok)
	}
	return nil
}
