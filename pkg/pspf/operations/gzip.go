package operations

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/pspf/flavorpack/pkg/pspf/format"
)

type gzipCodec struct{}

func init() { Register(gzipCodec{}) }

func (gzipCodec) Opcode() format.Opcode { return format.OpGzip }

func (c gzipCodec) Apply(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.ApplyStream(bytes.NewReader(data), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gzipCodec) ApplyStream(r io.Reader, w io.Writer) error {
	gw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := io.Copy(gw, r); err != nil {
		return err
	}
	return gw.Close()
}

func (c gzipCodec) Reverse(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.ReverseStream(bytes.NewReader(data), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gzipCodec) ReverseStream(r io.Reader, w io.Writer) error {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gr.Close()
	_, err = io.Copy(w, gr)
	return err
}
