package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/blogfolio/internal/service"
	"github.com/blogfolio/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var errUnsupportedBody = errors.New("unsupported request body")

// fieldSource reads named fields from a JSON or multipart/urlencoded body and
// reports whether each was present, so partial updates can tell "absent" from
// "empty".
type fieldSource struct {
	form *multipart.Form
	json map[string]any
}

func readFields(c *gin.Context) (*fieldSource, error) {
	contentType := c.ContentType()
	switch {
	case contentType == "" && c.Request.ContentLength == 0:
		return &fieldSource{}, nil
	case contentType == binding.MIMEJSON:
		payload := map[string]any{}
		decoder := json.NewDecoder(c.Request.Body)
		decoder.UseNumber()
		if err := decoder.Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return &fieldSource{json: payload}, nil
	case contentType == binding.MIMEMultipartPOSTForm:
		form, err := c.MultipartForm()
		if err != nil {
			return nil, fmt.Errorf("parse multipart: %w", err)
		}
		return &fieldSource{form: form}, nil
	case contentType == binding.MIMEPOSTForm:
		if err := c.Request.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		return &fieldSource{form: &multipart.Form{Value: c.Request.PostForm}}, nil
	default:
		return nil, errUnsupportedBody
	}
}

// lookup returns the first value of key and whether it was sent. JSON nulls
// count as absent.
func (f *fieldSource) lookup(key string) (string, bool) {
	if f.json != nil {
		raw, ok := f.json[key]
		if !ok || raw == nil {
			return "", false
		}
		values := jsonStrings(raw)
		if len(values) == 0 {
			return "", true
		}
		return values[0], true
	}
	if f.form == nil {
		return "", false
	}
	values, ok := f.form.Value[key]
	if !ok {
		return "", false
	}
	if len(values) == 0 {
		return "", true
	}
	return values[0], true
}

func (f *fieldSource) ptr(key string) *string {
	value, ok := f.lookup(key)
	if !ok {
		return nil
	}
	return &value
}

func (f *fieldSource) str(key string) string {
	value, _ := f.lookup(key)
	return value
}

// values returns every value sent for key: repeated form keys or a JSON array.
func (f *fieldSource) values(key string) []string {
	if f.json != nil {
		raw, ok := f.json[key]
		if !ok || raw == nil {
			return nil
		}
		return jsonStrings(raw)
	}
	if f.form == nil {
		return nil
	}
	return f.form.Value[key]
}

// cleared reports whether key was sent as null or an empty value.
func (f *fieldSource) cleared(key string) bool {
	if f.json != nil {
		raw, ok := f.json[key]
		if !ok {
			return false
		}
		if raw == nil {
			return true
		}
		text, isString := raw.(string)
		return isString && strings.TrimSpace(text) == ""
	}
	if f.form == nil {
		return false
	}
	values, ok := f.form.Value[key]
	return ok && (len(values) == 0 || strings.TrimSpace(values[0]) == "")
}

func (f *fieldSource) boolPtr(key string) (*bool, error) {
	value, ok := f.lookup(key)
	if !ok {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		v := true
		return &v, nil
	case "false", "0", "no", "off", "":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("%q is not a valid boolean", value)
}

func (f *fieldSource) files(key string) []*multipart.FileHeader {
	if f.form == nil || f.form.File == nil {
		return nil
	}
	return f.form.File[key]
}

func (f *fieldSource) file(key string) *storage.Upload {
	headers := f.files(key)
	if len(headers) == 0 {
		return nil
	}
	upload := storage.FromFileHeader(headers[0])
	return &upload
}

func jsonStrings(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case json.Number:
		return []string{v.String()}
	case bool:
		return []string{strconv.FormatBool(v)}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, jsonStrings(item)...)
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

// imageUploads pairs each uploaded file with the caption and alt text at the
// same position, when given.
func imageUploads(fields *fieldSource) []service.ImageUpload {
	headers := fields.files("new_images")
	if len(headers) == 0 {
		return nil
	}
	captions := fields.values("captions")
	altTexts := fields.values("alt_texts")

	uploads := make([]service.ImageUpload, 0, len(headers))
	for i, header := range headers {
		upload := service.ImageUpload{File: storage.FromFileHeader(header)}
		if i < len(captions) {
			upload.Caption = captions[i]
		}
		if i < len(altTexts) {
			upload.AltText = altTexts[i]
		}
		uploads = append(uploads, upload)
	}
	return uploads
}

// withFields parses the request body or writes a 400 and returns nil.
func withFields(c *gin.Context) *fieldSource {
	fields, err := readFields(c)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errUnsupportedBody) {
			status = http.StatusUnsupportedMediaType
		}
		respondDetail(c, status, "Malformed or unsupported request body.")
		return nil
	}
	return fields
}
