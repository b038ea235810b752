package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"commerce/ledger"
	"commerce/models"
)

func TestStatusOf(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("[op] Fail, err=%w", err) }
	cases := []struct {
		err    error
		status int
	}{
		{&ledger.RejectionError{Kind: ledger.ErrValidation, Message: "bad"}, http.StatusBadRequest},
		{&ledger.RejectionError{Kind: ledger.ErrPermission, Message: "no"}, http.StatusForbidden},
		{&ledger.RejectionError{Kind: ledger.ErrInvalidState, Message: "closed"}, http.StatusConflict},
		{wrap(models.ErrNotFound), http.StatusNotFound},
		{wrap(models.ErrDuplicate), http.StatusConflict},
		{wrap(ErrInvalidToken), http.StatusUnauthorized},
		{errUnauthenticated, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, statusOf(tc.err), tc.err.Error())
	}
}
