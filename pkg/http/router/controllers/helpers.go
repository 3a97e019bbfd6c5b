package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lintang-b-s/fleetmap/pkg/util"
	"go.uber.org/zap"
)

type envelope map[string]interface{}

const maxBodyBytes = 8 << 20

func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// ErrorResponse writes the {"error":{"code","message"}} body used by every endpoint.
func ErrorResponse(w http.ResponseWriter, status int, message string) error {
	var resp errorResponse
	resp.Error.Code = http.StatusText(status)
	resp.Error.Message = message
	return writeJSON(w, status, envelope{"error": resp.Error}, nil)
}

type requestValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func newRequestValidator() *requestValidator {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)
	return &requestValidator{validate: validate, trans: trans}
}

func (v *requestValidator) Struct(req interface{}) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	vv := translateError(err, v.trans)
	vvString := make([]string, 0, len(vv))
	for _, e := range vv {
		vvString = append(vvString, e.Error())
	}
	return util.WrapErrorf(nil, util.ErrBadParamInput, "validation error: %v", vvString)
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return []error{err}
	}
	for _, e := range validatorErrs {
		translatedErr := fmt.Errorf("%s", e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesError *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return util.WrapErrorf(nil, util.ErrBadParamInput, "body must not be empty")
		case errors.As(err, &maxBytesError):
			return util.WrapErrorf(nil, util.ErrBadParamInput, "body must not be larger than %d bytes", maxBytesError.Limit)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return util.WrapErrorf(nil, util.ErrBadParamInput, "body contains unknown key %s", field)
		default:
			return util.WrapErrorf(nil, util.ErrBadParamInput, "badly-formed JSON: %v", err)
		}
	}
	if dec.More() {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "body must only contain a single JSON value")
	}
	return nil
}

type responder struct {
	log *zap.Logger
}

func (rs responder) BadRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (rs responder) NotFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.errorResponse(w, r, http.StatusNotFound, err.Error())
}

func (rs responder) ServerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.log.Error("server error", zap.Error(err), zap.String("method", r.Method), zap.String("url", r.URL.String()))
	rs.errorResponse(w, r, http.StatusInternalServerError, util.MessageInternalServerError)
}

func (rs responder) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := ErrorResponse(w, status, message); err != nil {
		rs.log.Error("write error response", zap.Error(err), zap.String("url", r.URL.String()))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// getStatusCode maps the util error code carried by err onto an HTTP response.
func (rs responder) getStatusCode(w http.ResponseWriter, r *http.Request, err error) {
	switch util.ErrorCode(err) {
	case util.ErrBadParamInput:
		rs.BadRequestResponse(w, r, err)
	case util.ErrNotFound:
		rs.NotFoundResponse(w, r, err)
	case util.ErrConflict:
		rs.errorResponse(w, r, http.StatusConflict, err.Error())
	case util.ErrUnavailable:
		rs.errorResponse(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		rs.ServerErrorResponse(w, r, err)
	}
}
