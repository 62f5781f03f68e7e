package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"strings"
)

// ErrNotMultipart is returned by FormFiles when the request body is not
// multipart/form-data.
var ErrNotMultipart = errors.New("engine: request is not multipart/form-data")

// UploadConfig constrains the files FormFiles accepts. The zero value
// accepts any type and any size.
type UploadConfig struct {
	// AcceptedTypes lists the content types a file part may declare,
	// either exact ("image/png") or as a type wildcard ("image/*").
	// Empty accepts everything.
	AcceptedTypes []string

	// MaxSize is the per-file size limit in bytes. Zero means unlimited.
	MaxSize int64
}

// FormFile is one file part of a multipart/form-data body.
type FormFile struct {
	// FieldName is the form field the file was posted under.
	FieldName string

	// Filename is the client-supplied file name, as received. Treat it
	// as untrusted display data, never as a filesystem path.
	Filename string

	// ContentType is the part's declared content type, defaulting to
	// application/octet-stream when the part declares none.
	ContentType string

	// Data is the file content.
	Data []byte
}

// Size returns the file content length in bytes.
func (f *FormFile) Size() int64 {
	return int64(len(f.Data))
}

// Save writes the file content to path.
func (f *FormFile) Save(path string) error {
	return os.WriteFile(path, f.Data, 0o644)
}

// FormFiles parses the buffered request body as multipart/form-data and
// returns its file parts in order of appearance. Non-file fields are
// skipped. A part whose declared type is not accepted, or whose content
// exceeds the size limit, fails the whole parse; handlers surface that as a
// 400-class response.
func (r *Request) FormFiles(cfg UploadConfig) ([]*FormFile, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return nil, ErrNotMultipart
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, errors.New("engine: multipart request is missing a boundary")
	}

	mr := multipart.NewReader(bytes.NewReader(r.body), boundary)
	var files []*FormFile

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return nil, fmt.Errorf("engine: read multipart body: %w", err)
		}

		if part.FileName() == "" {
			continue
		}

		contentType := part.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if !typeAccepted(cfg.AcceptedTypes, contentType) {
			return nil, fmt.Errorf("engine: file type %q is not accepted for field %q", contentType, part.FormName())
		}

		data, err := readPart(part, cfg.MaxSize)
		if err != nil {
			return nil, err
		}

		files = append(files, &FormFile{
			FieldName:   part.FormName(),
			Filename:    part.FileName(),
			ContentType: contentType,
			Data:        data,
		})
	}
}

// readPart reads a file part, enforcing the per-file size limit.
func readPart(part *multipart.Part, maxSize int64) ([]byte, error) {
	src := io.Reader(part)
	if maxSize > 0 {
		src = io.LimitReader(part, maxSize+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("engine: read file field %q: %w", part.FormName(), err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("engine: file in field %q exceeds the %d byte limit", part.FormName(), maxSize)
	}
	return data, nil
}

// typeAccepted matches a declared content type against the accepted list,
// honoring "type/*" wildcards. Parameters on the declared type (charset,
// boundary) are ignored for the comparison.
func typeAccepted(accepted []string, contentType string) bool {
	if len(accepted) == 0 {
		return true
	}
	if base, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = base
	}

	for _, a := range accepted {
		if rest, ok := strings.CutSuffix(a, "/*"); ok {
			if strings.HasPrefix(contentType, rest+"/") {
				return true
			}
			continue
		}
		if strings.EqualFold(a, contentType) {
			return true
		}
	}
	return false
}
