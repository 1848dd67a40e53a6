package values

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	binderrors "github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/go-chi/chi/v5"
	"github.com/matryer/is"
)

func TestFindReturnsValueFromJSONBody(t *testing.T) {
	is := is.New(t)

	req := newTestRequest(is, http.MethodPost, "/", "application/json", `{"name":"Alice","age":42}`)

	v, err := req.Find("name")
	is.NoErr(err)
	is.Equal(v, "Alice")

	v, err = req.Find("age")
	is.NoErr(err)
	is.Equal(v, json.Number("42")) // numbers are kept as json.Number

	is.Equal(len(req.Body()), 2)
}

func TestFindDistinguishesNullFromAbsent(t *testing.T) {
	is := is.New(t)

	req := newTestRequest(is, http.MethodPost, "/", "application/json", `{"nickname":null}`)

	v, err := req.Find("nickname")
	is.NoErr(err)
	is.Equal(v, nil) // present but null

	_, err = req.Find("age")
	is.True(errors.Is(err, binderrors.ErrFieldNotFound)) // absent
}

func TestQueryParametersOverrideBody(t *testing.T) {
	is := is.New(t)

	req := newTestRequest(is, http.MethodPost, "/?name=Bob", "application/json", `{"name":"Alice"}`)

	v, err := req.Find("name")
	is.NoErr(err)
	is.Equal(v, "Bob")
}

func TestEmptyQueryParameterFallsBackToBody(t *testing.T) {
	is := is.New(t)

	req := newTestRequest(is, http.MethodPost, "/?name=", "application/json", `{"name":"Alice"}`)

	v, err := req.Find("name")
	is.NoErr(err)
	is.Equal(v, "Alice")
}

func TestZeroStringIsAValue(t *testing.T) {
	is := is.New(t)

	req := newTestRequest(is, http.MethodGet, "/?count=0", "", "")

	v, err := req.Find("count")
	is.NoErr(err)
	is.Equal(v, "0")
}

func TestEmptyParameterWithoutBodyIsNull(t *testing.T) {
	is := is.New(t)

	req := newTestRequest(is, http.MethodGet, "/?name=", "", "")

	v, err := req.Find("name")
	is.NoErr(err)
	is.Equal(v, nil)

	_, err = req.Find("age")
	is.True(errors.Is(err, binderrors.ErrFieldNotFound))
}

func TestRouteParametersTakePrecedence(t *testing.T) {
	is := is.New(t)

	r := httptest.NewRequest(http.MethodPut, "/people/7?id=8", strings.NewReader(`{"id":9}`))
	r.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "7")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	req, err := FromRequest(r)
	is.NoErr(err)

	v, err := req.Find("id")
	is.NoErr(err)
	is.Equal(v, "7")
}

func TestFormFieldsAreResolved(t *testing.T) {
	is := is.New(t)

	req := newTestRequest(is, http.MethodPost, "/", "application/x-www-form-urlencoded", "name=Alice&nickname=")

	v, err := req.Find("name")
	is.NoErr(err)
	is.Equal(v, "Alice")

	v, err = req.Find("nickname")
	is.NoErr(err)
	is.Equal(v, nil)
}

func TestBodyIsRestoredAfterReading(t *testing.T) {
	is := is.New(t)

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Alice"}`))
	r.Header.Set("Content-Type", "application/ld+json")

	_, err := FromRequest(r)
	is.NoErr(err)

	m := map[string]any{}
	is.NoErr(json.NewDecoder(r.Body).Decode(&m))
	is.Equal(m["name"], "Alice")
}

func TestNonObjectBodyIsAnInvalidRequest(t *testing.T) {
	is := is.New(t)

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[1,2,3]`))
	r.Header.Set("Content-Type", "application/json")

	_, err := FromRequest(r)
	is.True(errors.Is(err, binderrors.ErrInvalidRequest))
}

func TestUnsupportedContentType(t *testing.T) {
	is := is.New(t)

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`<xml/>`))
	r.Header.Set("Content-Type", "application/xml")

	_, err := FromRequest(r)
	is.True(errors.Is(err, binderrors.ErrInvalidRequest))
}

func TestAsSequence(t *testing.T) {
	is := is.New(t)

	seq, ok := AsSequence([]any{map[string]any{"id": 1}, Map{"id": 2}})
	is.True(ok)
	is.Equal(len(seq), 2)
	is.Equal(seq[1]["id"], 2)

	_, ok = AsSequence([]any{map[string]any{"id": 1}, "two"})
	is.True(!ok) // a member that is not an object
}

func newTestRequest(is *is.I, method, target, contentType, body string) *Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}

	req, err := FromRequest(r)
	is.NoErr(err)

	return req
}
