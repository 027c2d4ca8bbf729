package upload

import "io"

// Arity says whether a form field takes exactly one file or a bounded batch.
type Arity int

const (
	One Arity = iota + 1
	Many
)

func (a Arity) String() string {
	switch a {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return "unknown"
	}
}

// Spec describes one upload endpoint. Specs are built once when routes are
// registered and never mutated afterwards.
type Spec struct {
	FieldName string
	Arity     Arity
	// MaxFiles bounds a Many batch; ignored for One.
	MaxFiles int
	// Dir is the sub-directory of the resources root files are written to.
	Dir string
	// URLPrefix is the public path files in Dir are served under.
	URLPrefix string
	// AllowedMimePrefixes is optional; empty accepts any type.
	AllowedMimePrefixes []string
	// MaxFileSize is optional; zero means only the body ceiling applies.
	MaxFileSize int64
}

// IncomingFile is one file part of a multipart request. It lives only for
// the duration of the request.
type IncomingFile struct {
	FieldName    string
	OriginalName string
	MimeType     string
	Size         int64
	Open         func() (io.ReadCloser, error)
}

// StoredFile describes a file accepted and written to the resources root.
type StoredFile struct {
	GeneratedName string `json:"filename"`
	OriginalName  string `json:"originalName"`
	RelativePath  string `json:"url"`
	AbsoluteURL   string `json:"fullURL"`
	MimeType      string `json:"mimetype"`
	Size          int64  `json:"size"`

	dir string
}
