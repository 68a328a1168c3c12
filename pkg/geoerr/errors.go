package geoerr

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies failures reported by the points packages.
type Kind int

const (
	FileNotFound Kind = iota + 1
	AccessDenied
	UnsupportedExtension
	Format
	Validation
	ZoneConflict
)

// Message templates per kind. Built once, read only.
var templates = map[Kind]string{
	FileNotFound:         "file %s does not exist or is not accessible",
	AccessDenied:         "permission denied for file %s",
	UnsupportedExtension: "extension %s is unknown",
	Format: "could not read file %s.\n" +
		"NOTE: The format for a delimited .txt/.csv file is:\n" +
		"        1st line:     [column names]\n" +
		"        other lines:  [x value], [y value], [attributes]\n" +
		"\n" +
		"           for example:\n" +
		"           x, y, elevation, friction\n" +
		"           0.6, 0.7, 4.9, 0.3\n" +
		"           1.9, 2.8, 5, 0.3\n" +
		"           2.7, 2.4, 5.2, 0.3\n" +
		"\n" +
		"The first two columns are assumed to be x, y coordinates.\n" +
		"The attribute values must be numeric.",
	Validation:   "invalid input",
	ZoneConflict: "geo references have different zones",
}

func (k Kind) String() string {
	switch k {
	case FileNotFound:
		return "file not found"
	case AccessDenied:
		return "access denied"
	case UnsupportedExtension:
		return "unsupported extension"
	case Format:
		return "format error"
	case Validation:
		return "validation error"
	case ZoneConflict:
		return "zone conflict"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Template returns the fixed message template of the kind.
func (k Kind) Template() string {
	return templates[k]
}

// Error is the error type returned by every points package.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}

	prefix := e.Kind.String()
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}

	out := prefix + ": " + msg
	if e.Path != "" && e.Kind != FileNotFound && e.Kind != AccessDenied && e.Kind != UnsupportedExtension {
		out += " (" + e.Path + ")"
	}
	if e.Err != nil {
		out += ": " + e.Err.Error()
	}

	return out
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == ""
}

var (
	ErrFileNotFound         = &Error{Kind: FileNotFound}
	ErrAccessDenied         = &Error{Kind: AccessDenied}
	ErrUnsupportedExtension = &Error{Kind: UnsupportedExtension}
	ErrFormat               = &Error{Kind: Format}
	ErrValidation           = &Error{Kind: Validation}
	ErrZoneConflict         = &Error{Kind: ZoneConflict}
)

// KindOf reports the kind of err, or 0 when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: Validation, Msg: fmt.Sprintf(format, args...)}
}

func Formatf(path string, format string, args ...any) error {
	return &Error{Kind: Format, Path: path, Msg: fmt.Sprintf(format, args...)}
}

func ZoneConflictf(format string, args ...any) error {
	return &Error{Kind: ZoneConflict, Msg: fmt.Sprintf(format, args...)}
}

// Unsupported reports an unknown file suffix.
func Unsupported(op, path, ext string) error {
	return &Error{
		Kind: UnsupportedExtension,
		Op:   op,
		Path: path,
		Msg:  fmt.Sprintf(templates[UnsupportedExtension], ext),
	}
}

// FormatHelp wraps a parse failure with the delimited text help message.
func FormatHelp(path string, err error) error {
	return &Error{
		Kind: Format,
		Path: path,
		Msg:  fmt.Sprintf(templates[Format], path),
		Err:  err,
	}
}

// FromOS maps file system errors onto the access kinds. Other errors pass through.
func FromOS(op, path string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &Error{Kind: FileNotFound, Op: op, Path: path, Msg: fmt.Sprintf(templates[FileNotFound], path), Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &Error{Kind: AccessDenied, Op: op, Path: path, Msg: fmt.Sprintf(templates[AccessDenied], path), Err: err}
	default:
		return fmt.Errorf("%s %s: %w", op, path, err)
	}
}
