package capture

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/farhan/webins/internal/models"
)

// Sentinel strings stored in place of an absent field. They are part of the
// persisted record format, not presentation, so changing them breaks old rows.
const (
	NoHeaders     = "No Headers Found."
	NoFormData    = "No Form Data Found."
	NoRawData     = "No Raw Request Data Found."
	NoFiles       = "No Files Found."
	NoQueryParams = "No Query Parameters."
)

// Base64Prefix marks a raw body that was not valid UTF-8 and is stored
// base64-encoded instead of as text.
const Base64Prefix = "base64:"

const multipartMaxMemory = 10 << 20

// Fields is the structured result of normalizing one inbound request.
// Header lines keep one entry per header value in sorted key order; form and
// query maps keep the first value per key, matching the original capture
// format. Files holds multipart FIELD names only, not filenames or content.
type Fields struct {
	Headers []string          `json:"header_data"`
	Form    map[string]string `json:"form_data"`
	RawBody string            `json:"raw_data"`
	Files   []string          `json:"files_data"`
	Query   map[string]string `json:"query_params_data"`
}

// Normalize converts an inbound request into capture fields. It has no side
// effects beyond consuming the request body. Bodies with a form content type
// (urlencoded or multipart) are decoded into Form/Files and leave RawBody
// empty; any other body is kept verbatim, base64-encoded when it is not valid
// UTF-8. An error is returned only when the body cannot be read, e.g. the
// handler's size cap was exceeded.
func Normalize(r *http.Request) (Fields, error) {
	f := Fields{
		Form:  map[string]string{},
		Query: map[string]string{},
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return Fields{}, fmt.Errorf("read request body: %w", err)
	}

	f.Headers = headerLines(r.Header)

	for key, vals := range r.URL.Query() {
		if len(vals) > 0 {
			f.Query[key] = vals[0]
		}
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			// Not actually a form; keep the body verbatim.
			f.RawBody = rawBody(body)
			break
		}
		for key, vals := range values {
			if len(vals) > 0 {
				f.Form[key] = vals[0]
			}
		}
	case "multipart/form-data":
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
			f.RawBody = rawBody(body)
			break
		}
		for key, vals := range r.MultipartForm.Value {
			if len(vals) > 0 {
				f.Form[key] = vals[0]
			}
		}
		for name := range r.MultipartForm.File {
			f.Files = append(f.Files, name)
		}
		sort.Strings(f.Files)
	default:
		f.RawBody = rawBody(body)
	}

	return f, nil
}

// Record serializes the fields into a capture row for the given endpoint.
func (f Fields) Record(endpointID int64, now time.Time) *models.Capture {
	return &models.Capture{
		EndpointID:      endpointID,
		HitAt:           now,
		HeaderData:      f.HeaderData(),
		FormData:        f.FormData(),
		RawData:         f.RawData(),
		FilesData:       f.FilesData(),
		QueryParamsData: f.QueryParamsData(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (f Fields) HeaderData() string {
	if len(f.Headers) == 0 {
		return NoHeaders
	}
	out, _ := json.Marshal(f.Headers)
	return string(out)
}

func (f Fields) FormData() string {
	if len(f.Form) == 0 {
		return NoFormData
	}
	out, _ := json.Marshal(f.Form)
	return string(out)
}

func (f Fields) RawData() string {
	if f.RawBody == "" {
		return NoRawData
	}
	return f.RawBody
}

func (f Fields) FilesData() string {
	if len(f.Files) == 0 {
		return NoFiles
	}
	out, _ := json.Marshal(f.Files)
	return string(out)
}

func (f Fields) QueryParamsData() string {
	if len(f.Query) == 0 {
		return NoQueryParams
	}
	out, _ := json.Marshal(f.Query)
	return string(out)
}

// headerLines flattens the header block into "Name: value" lines, one per
// value. http.Header is a map, so wire order is gone; sorted key order keeps
// the output deterministic.
func headerLines(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var lines []string
	for _, key := range keys {
		for _, val := range h[key] {
			lines = append(lines, fmt.Sprintf("%s: %s", key, val))
		}
	}
	return lines
}

func rawBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if !utf8.Valid(body) {
		return Base64Prefix + base64.StdEncoding.EncodeToString(body)
	}
	return string(body)
}
