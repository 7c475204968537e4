package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/proxyfleet/console-server/pkg/jsonx"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// bind strictly decodes the JSON body into dst and runs its `validate`
// struct tags. Any failure maps to 400.
func bind[T any](r *http.Request, dst *T) error {
	if err := jsonx.ParseStrictJSONBody(r, dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}
