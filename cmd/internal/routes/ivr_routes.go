package routes

import (
	"net/http"

	"bookline/cmd/internal/ivr"
	"bookline/cmd/internal/utils"
	"bookline/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type IntentDispatcher interface {
	Dispatch(intent *ivr.Intent) (*ivr.Reply, apierror.ErrorResponse)
}

type DefaultIVRRoute struct {
	Dispatcher IntentDispatcher
	Tokens     *utils.TokenParser
}

func NewIVRDefault(dispatcher IntentDispatcher, tokens *utils.TokenParser) *DefaultIVRRoute {
	return &DefaultIVRRoute{Dispatcher: dispatcher, Tokens: tokens}
}

// HandleIntent handles POST /ivr/intent: a speech intent extracted by
// the telephony layer, authenticated with that layer's bearer token.
func (i *DefaultIVRRoute) HandleIntent(c echo.Context) error {
	if _, err := i.Tokens.ParseTokenDataCtx(c); err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}

	var intent ivr.Intent
	if err := c.Bind(&intent); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	reply, apierr := i.Dispatcher.Dispatch(&intent)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, reply)
}
