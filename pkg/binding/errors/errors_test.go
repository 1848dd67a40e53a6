package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matryer/is"
)

func TestBadRequestDataKeepsCause(t *testing.T) {
	is := is.New(t)

	err := NewBadRequestDataError(NewDiscriminatorMissingError("Animal", "kind"))

	is.True(errors.Is(err, ErrBadRequest))
	is.True(errors.Is(err, ErrDiscriminatorMissing))
	is.True(!errors.Is(err, ErrNotFound))
}

func TestProblemReportRoundTrip(t *testing.T) {
	is := is.New(t)

	w := httptest.NewRecorder()
	ReportNewBadRequestData(w, "value \"ajar\" is not a member", "abc123")

	is.Equal(w.Code, http.StatusBadRequest)
	is.Equal(w.Header().Get("Content-Type"), ProblemReportContentType)

	err := NewErrorFromProblemReport(w.Code, w.Header().Get("Content-Type"), w.Body.Bytes())
	is.True(errors.Is(err, ErrBadRequest))
	is.Equal(err.Error(), "value \"ajar\" is not a member")
}

func TestNotFoundProblemReport(t *testing.T) {
	is := is.New(t)

	w := httptest.NewRecorder()
	ReportNotFoundError(w, "not found", "")

	err := NewErrorFromProblemReport(w.Code, ProblemReportContentType, w.Body.Bytes())
	is.True(errors.Is(err, ErrNotFound))
}

func TestUnknownProblemReportIsInternal(t *testing.T) {
	is := is.New(t)

	w := httptest.NewRecorder()
	ReportNewInternalError(w, "boom", "")

	err := NewErrorFromProblemReport(w.Code, ProblemReportContentType, w.Body.Bytes())
	is.True(errors.Is(err, ErrInternal))
}

func TestMalformedProblemReport(t *testing.T) {
	is := is.New(t)

	err := NewErrorFromProblemReport(http.StatusBadGateway, "text/html", []byte("<html/>"))
	is.True(errors.Is(err, ErrBadResponse))
}
