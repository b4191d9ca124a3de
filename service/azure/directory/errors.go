package azuredirectory

import (
	"errors"
	"fmt"

	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
)

// graphError flattens a kiota OData error into something readable; the raw
// type prints as an opaque struct.
func graphError(err error) error {
	var oerr *odataerrors.ODataError
	if !errors.As(err, &oerr) {
		return err
	}
	main := oerr.GetErrorEscaped()
	if main == nil {
		return err
	}

	code, msg := "", ""
	if main.GetCode() != nil {
		code = *main.GetCode()
	}
	if main.GetMessage() != nil {
		msg = *main.GetMessage()
	}
	return fmt.Errorf("%s: %s", code, msg)
}

func hasODataCode(err error, code string) bool {
	var oerr *odataerrors.ODataError
	if !errors.As(err, &oerr) {
		return false
	}
	main := oerr.GetErrorEscaped()
	return main != nil && main.GetCode() != nil && *main.GetCode() == code
}
