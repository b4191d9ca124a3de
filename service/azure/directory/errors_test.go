package azuredirectory

import (
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/microsoft/kiota-abstractions-go/store"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
	"github.com/stretchr/testify/assert"
)

func odataError(code, message string) error {
	oerr := odataerrors.NewODataError()
	main := odataerrors.NewMainError()
	main.SetCode(to.Ptr(code))
	main.SetMessage(to.Ptr(message))
	oerr.SetBackingStore(store.NewInMemoryBackingStore())
	oerr.SetErrorEscaped(main)
	return oerr
}

func TestHasODataCode(t *testing.T) {
	err := odataError("Request_ResourceNotFound", "no such principal")

	assert.True(t, hasODataCode(err, "Request_ResourceNotFound"))
	assert.False(t, hasODataCode(err, "Request_MultipleObjectsWithSameKeyValue"))
	assert.False(t, hasODataCode(errors.New("plain"), "Request_ResourceNotFound"))
}

func TestGraphErrorFlattensCodeAndMessage(t *testing.T) {
	err := graphError(odataError("Authorization_RequestDenied", "insufficient privileges"))

	assert.EqualError(t, err, "Authorization_RequestDenied: insufficient privileges")
}

func TestGraphErrorPassesThroughPlainErrors(t *testing.T) {
	plain := errors.New("connection refused")

	assert.Same(t, plain, graphError(plain))
}
