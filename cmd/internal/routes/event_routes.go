package routes

import (
	"net/http"

	"agendo/cmd/internal/service"
	"agendo/cmd/internal/utils"
	"agendo/cmd/internal/utils/apierror"
	"github.com/labstack/echo/v4"
)

type EventService interface {
	GetEvents(subID string) ([]*service.EventResponse, apierror.ErrorResponse)
	SubmitEvent(req *service.EventRequest, eventID, subID string) (*service.SubmitResponse, apierror.ErrorResponse)
	ResolveConflict(req *service.ResolveRequest, subID string) (*service.ResolveResponse, apierror.ErrorResponse)
	DismissConflict(subID string) apierror.ErrorResponse
	DeleteEvent(id, subID string) apierror.ErrorResponse
	GetCalendar(view, anchor, subID string) (*service.CalendarResponse, apierror.ErrorResponse)
	GetDraft(view, date, hour string) (*service.DraftResponse, apierror.ErrorResponse)
}

type DefaultEventRoute struct {
	EventService EventService
}

func NewEventDefault(eventService EventService) *DefaultEventRoute {
	return &DefaultEventRoute{EventService: eventService}
}

func (r *DefaultEventRoute) GetEvents(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	events, apierr := r.EventService.GetEvents(data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"events": events}
	return c.JSON(http.StatusOK, &resp)
}

func (r *DefaultEventRoute) CreateEvent(c echo.Context) error {
	return r.submit(c, "")
}

func (r *DefaultEventRoute) UpdateEvent(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("id"))
	}
	return r.submit(c, id)
}

// submit handles create and edit the same way: 201/200 on a clean commit,
// 409 with the conflict set when the candidate overlaps.
func (r *DefaultEventRoute) submit(c echo.Context, eventID string) error {
	var req service.EventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	result, apierr := r.EventService.SubmitEvent(&req, eventID, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	switch {
	case result.Status == "conflicted":
		return c.JSON(http.StatusConflict, result)
	case eventID == "":
		return c.JSON(http.StatusCreated, result)
	default:
		return c.JSON(http.StatusOK, result)
	}
}

func (r *DefaultEventRoute) ResolveConflict(c echo.Context) error {
	var req service.ResolveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	result, apierr := r.EventService.ResolveConflict(&req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, result)
}

func (r *DefaultEventRoute) DismissConflict(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	if apierr := r.EventService.DismissConflict(data.Sub); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusNoContent)
}

func (r *DefaultEventRoute) DeleteEvent(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("id"))
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	if apierr := r.EventService.DeleteEvent(id, data.Sub); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}

func (r *DefaultEventRoute) GetCalendar(c echo.Context) error {
	view := c.QueryParam("view")
	if view == "" {
		view = "monthly"
	}
	anchor := c.QueryParam("anchor")
	if anchor == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("anchor"))
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	calendar, apierr := r.EventService.GetCalendar(view, anchor, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, calendar)
}

func (r *DefaultEventRoute) GetDraft(c echo.Context) error {
	if _, err := utils.ParseTokenDataCtx(c); err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	draft, apierr := r.EventService.GetDraft(c.QueryParam("view"), c.QueryParam("date"), c.QueryParam("hour"))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, draft)
}
