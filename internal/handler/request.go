package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/campus-events/backend/internal/model"
	"github.com/campus-events/backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// Request bodies use pointers so a missing field is distinguishable from an
// empty string or zero. Text fields accept any content, including "".
type eventRequest struct {
	Title    *string `json:"title" validate:"required"`
	Date     *string `json:"date" validate:"required,datetime=2006-01-02"`
	Location *string `json:"location" validate:"required"`
	Quota    *int    `json:"quota" validate:"required,min=0"`
}

func (r eventRequest) toInput() (model.EventInput, error) {
	date, err := model.ParseDate(*r.Date)
	if err != nil {
		return model.EventInput{}, &service.ValidationError{Fields: map[string]string{"date": dateMessage}}
	}
	return model.EventInput{Title: *r.Title, Date: date, Location: *r.Location, Quota: *r.Quota}, nil
}

type participantRequest struct {
	Name    *string `json:"name" validate:"required"`
	Email   *string `json:"email" validate:"required"`
	EventID *int64  `json:"event_id" validate:"required"`
}

func (r participantRequest) toInput() model.ParticipantInput {
	return model.ParticipantInput{Name: *r.Name, Email: *r.Email, EventID: *r.EventID}
}

const dateMessage = "must be a date in YYYY-MM-DD format"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// Every failure is returned as a *service.ValidationError.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	// Exactly one JSON value per body.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return decodeError(err)
		}
		return &service.ValidationError{Fields: map[string]string{"body": "malformed JSON"}}
	}
	if err := validate.Struct(dst); err != nil {
		return translateValidation(err)
	}
	return nil
}

func decodeError(err error) error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return &service.ValidationError{Fields: map[string]string{field: "must be of type " + jsonKind(typeErr.Type)}}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &service.ValidationError{Fields: map[string]string{"body": "malformed JSON"}}
	case errors.Is(err, io.EOF):
		return &service.ValidationError{Fields: map[string]string{"body": "field required"}}
	case errors.As(err, &maxErr):
		return &service.ValidationError{Fields: map[string]string{"body": fmt.Sprintf("must not exceed %d bytes", maxErr.Limit)}}
	default:
		return &service.ValidationError{Fields: map[string]string{"body": err.Error()}}
	}
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Struct:
		return "object"
	default:
		return t.Kind().String()
	}
}

func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &service.ValidationError{Fields: map[string]string{"body": err.Error()}}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &service.ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		return "must be greater than or equal to " + fe.Param()
	case "datetime":
		return dateMessage
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// pageFromQuery reads skip/limit, defaulting to model.DefaultPage.
func pageFromQuery(r *http.Request) (model.Page, error) {
	page := model.DefaultPage()
	fields := map[string]string{}

	q := r.URL.Query()
	if raw := q.Get("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields["skip"] = "must be a non-negative integer"
		}
		page.Skip = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields["limit"] = "must be a non-negative integer"
		}
		page.Limit = n
	}

	if len(fields) > 0 {
		return model.Page{}, &service.ValidationError{Fields: fields}
	}
	return page, nil
}

// eventIDParam parses the {event_id} path segment.
func eventIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "event_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &service.ValidationError{Fields: map[string]string{"event_id": "must be an integer"}}
	}
	return id, nil
}
