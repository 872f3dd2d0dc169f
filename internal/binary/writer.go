package binary

import (
	"io"
)

// SafeWriter wraps io.Writer with position tracking.
type SafeWriter struct {
	w      io.Writer
	offset int64
}

// NewSafeWriter creates a new SafeWriter.
func NewSafeWriter(w io.Writer) *SafeWriter {
	return &SafeWriter{w: w}
}

// Offset returns the current position (number of bytes written).
func (sw *SafeWriter) Offset() int64 {
	return sw.offset
}

// WriteBytes writes raw bytes to the underlying writer.
func (sw *SafeWriter) WriteBytes(b []byte) error {
	n, err := sw.w.Write(b)
	sw.offset += int64(n)
	return err
}

// WriteString writes a string as bytes to the underlying writer.
func (sw *SafeWriter) WriteString(s string) error {
	return sw.WriteBytes([]byte(s))
}

// Copy copies n bytes from src starting at off, tracking the position.
func (sw *SafeWriter) Copy(src io.ReaderAt, off, n int64) error {
	written, err := io.Copy(sw.w, io.NewSectionReader(src, off, n))
	sw.offset += written
	if err != nil {
		return err
	}
	if written != n {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// Write writes a value of type T in big-endian byte order.
func Write[T Unsigned](sw *SafeWriter, val T) error {
	return WriteEndian(sw, val, BigEndian)
}

// WriteLE writes a value of type T in little-endian byte order.
func WriteLE[T Unsigned](sw *SafeWriter, val T) error {
	return WriteEndian(sw, val, LittleEndian)
}

// WriteEndian writes a value of type T in the given byte order.
func WriteEndian[T Unsigned](sw *SafeWriter, val T, order Endianness) error {
	buf := make([]byte, sizeOf[T]())
	PutUint(buf, uint64(val), order)
	return sw.WriteBytes(buf)
}
