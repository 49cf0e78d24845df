package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"catalog/internal/repository"
	"catalog/internal/storage"
	"catalog/pkg/apperror"
	"catalog/pkg/optional"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// DefaultMaxBody caps a whole request, files included.
const DefaultMaxBody int64 = 32 << 20

var errNotForm = errors.New("request is not a form")

// form is a parsed multipart or urlencoded body. Absent keys stay unset,
// empty strings become null, and values that do not parse are collected in ve.
type form struct {
	values url.Values
	files  map[string][]*multipart.FileHeader
	ve     *apperror.ValidationError
}

func isForm(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == gin.MIMEMultipartPOSTForm || ct == gin.MIMEPOSTForm
}

// parseForm reads the request as a form. It returns errNotForm for other
// content types so callers can fall back to JSON.
func parseForm(c *gin.Context, maxBody int64) (*form, error) {
	if !isForm(c) {
		return nil, errNotForm
	}
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

	var err error
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		err = c.Request.ParseMultipartForm(maxBody)
	} else {
		err = c.Request.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.NewValidation("body", fmt.Sprintf("The request must not be greater than %d kilobytes.", maxBody/1024))
		}
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}

	f := &form{values: c.Request.PostForm, files: map[string][]*multipart.FileHeader{}, ve: &apperror.ValidationError{}}
	if c.Request.MultipartForm != nil {
		f.files = c.Request.MultipartForm.File
	}
	return f, nil
}

func (f *form) text(key string) optional.Value[string] {
	return formValue(f, key, func(s string) (string, error) { return s, nil }, "")
}

func (f *form) number(key string) optional.Value[decimal.Decimal] {
	return formValue(f, key, decimal.NewFromString, "The %s field must be a number.")
}

func (f *form) integer(key string) optional.Value[int] {
	return formValue(f, key, strconv.Atoi, "The %s field must be an integer.")
}

func (f *form) id(key string) optional.Value[uint] {
	return formValue(f, key, func(s string) (uint, error) {
		n, err := strconv.ParseUint(s, 10, 64)
		return uint(n), err
	}, "The %s field must be an integer.")
}

func (f *form) flag(key string) optional.Value[bool] {
	return formValue(f, key, func(s string) (bool, error) {
		b, ok := repository.ParseBool(s)
		if !ok {
			return false, errors.New("not a boolean")
		}
		return b, nil
	}, "The %s field must be true or false.")
}

func formValue[T any](f *form, key string, parse func(string) (T, error), msg string) optional.Value[T] {
	vs, ok := f.values[key]
	if !ok || len(vs) == 0 {
		return optional.Value[T]{}
	}
	raw := strings.TrimSpace(vs[0])
	if raw == "" {
		return optional.Null[T]()
	}
	v, err := parse(raw)
	if err != nil {
		f.ve.Add(key, fmt.Sprintf(msg, label(key)))
		return optional.Value[T]{}
	}
	return optional.Some(v)
}

// file returns the single upload under key, or nil when none was sent.
func (f *form) file(key string) *storage.Upload {
	fhs := f.files[key]
	if len(fhs) == 0 {
		return nil
	}
	up, err := readUpload(fhs[0])
	if err != nil {
		f.ve.Add(key, fmt.Sprintf("The %s failed to upload.", label(key)))
		return nil
	}
	return &up
}

// fileList returns every upload under key, also accepting the "key[]" and
// "key[0]" spellings browsers and HTTP clients send for arrays.
func (f *form) fileList(key string) []storage.Upload {
	var fhs []*multipart.FileHeader
	fhs = append(fhs, f.files[key]...)
	fhs = append(fhs, f.files[key+"[]"]...)
	for i := 0; ; i++ {
		indexed, ok := f.files[fmt.Sprintf("%s[%d]", key, i)]
		if !ok {
			break
		}
		fhs = append(fhs, indexed...)
	}

	out := make([]storage.Upload, 0, len(fhs))
	for i, fh := range fhs {
		up, err := readUpload(fh)
		if err != nil {
			f.ve.Add(fmt.Sprintf("%s.%d", key, i), fmt.Sprintf("The %s.%d failed to upload.", key, i))
			continue
		}
		out = append(out, up)
	}
	return out
}

func (f *form) err() error {
	return f.ve.OrNil()
}

func readUpload(fh *multipart.FileHeader) (storage.Upload, error) {
	src, err := fh.Open()
	if err != nil {
		return storage.Upload{}, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return storage.Upload{}, err
	}
	return storage.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
