package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Parts held in memory beyond this are spooled to temp files by mime/multipart.
const formMemoryLimit = 8 << 20

const octetStream = "application/octet-stream"

// ReadParts decodes a multipart body of at most maxBody bytes and returns
// every file part, grouped by field name in sorted order and in submission
// order within a field. The returned cleanup func removes temp files and
// must be called once the parts are no longer needed.
func ReadParts(w http.ResponseWriter, r *http.Request, maxBody int64) ([]IncomingFile, func(), error) {
	noop := func() {}

	if maxBody > 0 && r.ContentLength > maxBody {
		return nil, noop, fmt.Errorf("%w: body is %d bytes", ErrTooLarge, r.ContentLength)
	}
	ctx := r.Context()
	if _, ok := ctx.Deadline(); ok {
		r.Body = &contextBody{ctx: ctx, body: r.Body}
	}
	if maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, noop, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	form, err := mr.ReadForm(formMemoryLimit)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, noop, fmt.Errorf("%w: body not received in time", ErrTimeout)
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, noop, fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, tooLarge.Limit)
		}
		return nil, noop, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	cleanup := func() { _ = form.RemoveAll() }

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []IncomingFile
	for _, field := range fields {
		for _, fh := range form.File[field] {
			parts = append(parts, IncomingFile{
				FieldName:    field,
				OriginalName: fh.Filename,
				MimeType:     resolveMimeType(fh),
				Size:         fh.Size,
				Open:         openHeader(fh),
			})
		}
	}
	return parts, cleanup, nil
}

// contextBody returns from Read as soon as ctx is done, even while the
// underlying read is still blocked on a slow client.
type contextBody struct {
	ctx  context.Context
	body io.ReadCloser
}

type bodyRead struct {
	n   int
	err error
}

func (b *contextBody) Read(p []byte) (int, error) {
	if err := b.ctx.Err(); err != nil {
		return 0, err
	}

	buf := make([]byte, len(p))
	done := make(chan bodyRead, 1)
	go func() {
		n, err := b.body.Read(buf)
		done <- bodyRead{n: n, err: err}
	}()

	select {
	case res := <-done:
		copy(p, buf[:res.n])
		return res.n, res.err
	case <-b.ctx.Done():
		return 0, b.ctx.Err()
	}
}

func (b *contextBody) Close() error {
	return b.body.Close()
}

func openHeader(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}

// resolveMimeType trusts the part's declared Content-Type and falls back to
// content sniffing when the client sent none or a generic one.
func resolveMimeType(fh *multipart.FileHeader) string {
	if mt := baseMediaType(fh.Header.Get("Content-Type")); mt != "" && mt != octetStream {
		return mt
	}

	f, err := fh.Open()
	if err != nil {
		return octetStream
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return octetStream
	}
	if mt := baseMediaType(detected.String()); mt != "" {
		return mt
	}
	return octetStream
}

func baseMediaType(v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}
