package values

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/go-chi/chi/v5"
)

// Bag resolves a named value from request data. A key that is not present at all
// results in an error matching errors.ErrFieldNotFound, while a key that is present
// with a null value returns (nil, nil).
type Bag interface {
	Find(key string) (any, error)
}

// Map is a value bag backed by a decoded JSON object, typically the nested value
// of an association
type Map map[string]any

func (m Map) Find(key string) (any, error) {
	v, ok := m[key]
	if !ok {
		return nil, errors.NewFieldNotFoundError(key)
	}
	return v, nil
}

// AsMap returns v as a Map if it is a JSON object
func AsMap(v any) (Map, bool) {
	switch m := v.(type) {
	case Map:
		return m, true
	case map[string]any:
		return Map(m), true
	}
	return nil, false
}

// AsSequence returns v as a list of Maps if it is an array of JSON objects. Array
// members that are not objects are reported through ok being false.
func AsSequence(v any) (seq []Map, ok bool) {
	items, isList := v.([]any)
	if !isList {
		if maps, isMaps := v.([]map[string]any); isMaps {
			seq = make([]Map, 0, len(maps))
			for _, m := range maps {
				seq = append(seq, Map(m))
			}
			return seq, true
		}
		return nil, false
	}

	seq = make([]Map, 0, len(items))
	for _, item := range items {
		m, isMap := AsMap(item)
		if !isMap {
			return nil, false
		}
		seq = append(seq, m)
	}

	return seq, true
}

// Request is the value bag of an incoming http request. Route parameters take
// precedence over the query string, which in turn takes precedence over posted
// form fields and last the JSON body.
type Request struct {
	params []url.Values
	body   Map
}

func FromRequest(r *http.Request) (*Request, error) {
	req := &Request{}

	route := url.Values{}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			if i < len(rctx.URLParams.Values) {
				route.Add(key, rctx.URLParams.Values[i])
			}
		}
	}

	req.params = append(req.params, route, r.URL.Query())

	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}

	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)

	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		if err := parseForm(r, mediaType); err != nil {
			return nil, errors.NewInvalidRequestError(fmt.Sprintf("unable to parse form data: %s", err.Error()))
		}
		req.params = append(req.params, r.PostForm)
		return req, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("unable to read request body: %s", err.Error()))
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	if mediaType != "" && !isJSON(mediaType) {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("unsupported content type %s", contentType))
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var content any
	if err = decoder.Decode(&content); err != nil {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("unable to decode request body: %s", err.Error()))
	}

	m, ok := AsMap(content)
	if !ok {
		return nil, errors.NewInvalidRequestError("request body must be a json object")
	}
	req.body = m

	return req, nil
}

func (r *Request) Find(key string) (any, error) {
	for _, p := range r.params {
		// only an empty parameter falls through, "0" is a value
		if v := p.Get(key); v != "" {
			return v, nil
		}
	}

	if r.body != nil {
		return r.body.Find(key)
	}

	for _, p := range r.params {
		if p.Has(key) {
			return nil, nil
		}
	}

	return nil, errors.NewFieldNotFoundError(key)
}

// Body returns the decoded JSON body, or nil if the request did not carry one
func (r *Request) Body() Map {
	return r.body
}

func parseForm(r *http.Request, mediaType string) error {
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(32 << 20)
	}
	return r.ParseForm()
}

func isJSON(mediaType string) bool {
	return mediaType == "application/json" ||
		mediaType == "application/ld+json" ||
		strings.HasSuffix(mediaType, "+json")
}
