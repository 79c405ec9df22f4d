package operations

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"

	"github.com/pspf/flavorpack/pkg/pspf/format"
)

// tarEntryName is the single logical entry name the tar codec writes and
// reads back; slot contents are opaque blobs, not a directory tree, so one
// fixed name is all the archive ever needs (§4.1: "single logical entry").
const tarEntryName = "data"

// tarMaxEntrySize bounds the single entry's size on reverse to guard
// against a corrupt or hostile header claiming an implausible size.
const tarMaxEntrySize = 1 << 30 // 1 GiB

type tarCodec struct{}

func init() { Register(tarCodec{}) }

func (tarCodec) Opcode() format.Opcode { return format.OpTar }

func (c tarCodec) Apply(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.ApplyStream(bytes.NewReader(data), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tarCodec) ApplyStream(r io.Reader, w io.Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(w)
	hdr := &tar.Header{
		Name: tarEntryName,
		Mode: 0600,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := tw.Write(data); err != nil {
		return err
	}
	return tw.Close()
}

func (c tarCodec) Reverse(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.ReverseStream(bytes.NewReader(data), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tarCodec) ReverseStream(r io.Reader, w io.Writer) error {
	tr := tar.NewReader(r)
	hdr, err := tr.Next()
	if err != nil {
		return fmt.Errorf("reading tar entry: %w", err)
	}
	if hdr.Size > tarMaxEntrySize {
		return fmt.Errorf("tar entry too large: %d bytes", hdr.Size)
	}
	_, err = io.CopyN(w, tr, hdr.Size)
	if err == io.EOF {
		err = nil
	}
	return err
}
