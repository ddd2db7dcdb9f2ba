package service

import (
	"strconv"
	"sync"
	"time"

	"agendo/cmd/internal/calendar"
	"agendo/cmd/internal/domain/entity"
	"agendo/cmd/internal/utils"
	"agendo/cmd/internal/utils/apierror"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

type EventRepository interface {
	FindByID(id string) (*entity.Event, error)
	FindByUserID(userID int) ([]*entity.Event, error)
	Save(event *entity.Event) error
	Delete(event *entity.Event) error
	Replace(removeIDs []string, event *entity.Event) error
}

type EventRequest struct {
	Title       string  `json:"title" validate:"required,max=128"`
	Description *string `json:"description" validate:"omitempty,max=1024"`
	StartTime   string  `json:"start_time" validate:"required,iso8601"`
	EndTime     string  `json:"end_time" validate:"required,iso8601"`
	Color       string  `json:"color" validate:"required,eventcolor"`
}

type ResolveRequest struct {
	Action string `json:"action" validate:"required"`
}

type EventResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Color       string  `json:"color"`
	UserID      int     `json:"user_id"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// SubmitResponse reports a submission's outcome: a committed event, or the
// conflict set now held by the resolver.
type SubmitResponse struct {
	Status    string           `json:"status"` // "committed" | "conflicted"
	Event     *EventResponse   `json:"event,omitempty"`
	Conflicts []*EventResponse `json:"conflicts,omitempty"`
}

type ResolveResponse struct {
	Status string         `json:"status"` // "committed" | "discarded"
	Event  *EventResponse `json:"event,omitempty"`
}

type CellResponse struct {
	Date     string           `json:"date"`
	Hour     int              `json:"hour"` // -1 for day cells
	InPeriod bool             `json:"in_current_period"`
	IsToday  bool             `json:"is_today"`
	Events   []*EventResponse `json:"events"`
}

type CalendarResponse struct {
	View   string          `json:"view"`
	Anchor string          `json:"anchor"`
	Cells  []*CellResponse `json:"cells"`
}

type DraftResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Color     string `json:"color"`
}

type DefaultEventService struct {
	EventRepo EventRepository
	UserRepo  UserRepository
	Validate  *validator.Validate

	mu        sync.Mutex
	resolvers map[int]*calendar.Resolver
}

func NewEventService(eventRepo EventRepository, userRepo UserRepository, validate *validator.Validate) *DefaultEventService {
	return &DefaultEventService{
		EventRepo: eventRepo,
		UserRepo:  userRepo,
		Validate:  validate,
		resolvers: make(map[int]*calendar.Resolver),
	}
}

// eventStore adapts the repository to the resolver's commit boundary.
type eventStore struct {
	repo EventRepository
}

func (s *eventStore) Commit(event *entity.Event) error {
	return s.repo.Save(event)
}

func (s *eventStore) Replace(removeIDs []string, event *entity.Event) error {
	return s.repo.Replace(removeIDs, event)
}

// resolverFor returns the user's conflict resolver, creating it on first
// use. One resolver per user; pending conflicts never cross users.
func (e *DefaultEventService) resolverFor(userID int) *calendar.Resolver {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.resolvers[userID]
	if !ok {
		r = calendar.NewResolver(&eventStore{repo: e.EventRepo})
		e.resolvers[userID] = r
	}
	return r
}

func (e *DefaultEventService) GetEvents(subID string) ([]*EventResponse, apierror.ErrorResponse) {
	caller, apierr := e.caller(subID)
	if apierr != nil {
		return nil, apierr
	}

	events, err := e.EventRepo.FindByUserID(caller.ID)
	if err != nil {
		log.Errorf("failed to list events for user %d: %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*EventResponse, len(events))
	for i, ev := range events {
		resp[i] = toEventResponse(ev)
	}
	return resp, nil
}

// SubmitEvent runs a create (eventID empty) or an edit through overlap
// detection. A clean candidate is committed immediately; a conflicted one
// is parked in the caller's resolver and reported back.
func (e *DefaultEventService) SubmitEvent(req *EventRequest, eventID, subID string) (*SubmitResponse, apierror.ErrorResponse) {
	caller, apierr := e.caller(subID)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := e.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	begin, err := utils.FromEpoch(req.StartTime)
	if err != nil {
		return nil, apierror.MalformedBodyError
	}
	end, err := utils.FromEpoch(req.EndTime)
	if err != nil {
		return nil, apierror.MalformedBodyError
	}
	if begin >= end {
		return nil, apierror.StartNotBeforeEndError
	}

	now := utils.NowUTC()
	candidate := &entity.Event{
		ID:          eventID,
		Title:       req.Title,
		Description: req.Description,
		BeginsAt:    begin,
		EndsAt:      end,
		Color:       req.Color,
		UserID:      caller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	isUpdate := eventID != ""
	if isUpdate {
		existing, err := e.EventRepo.FindByID(eventID)
		if err != nil {
			log.Errorf("failed to fetch event %s: %v", eventID, err)
			return nil, apierror.InternalServerError
		}
		if existing == nil || existing.UserID != caller.ID {
			return nil, apierror.NotFoundError
		}
		candidate.CreatedAt = existing.CreatedAt
	} else {
		candidate.ID = uuid.NewString()
	}

	owned, err := e.EventRepo.FindByUserID(caller.ID)
	if err != nil {
		log.Errorf("failed to load events for overlap check (user %d): %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}

	conflicts, err := e.resolverFor(caller.ID).Submit(candidate, isUpdate, owned)
	if err == calendar.ErrBusy {
		return nil, apierror.ResolverBusyError
	}
	if err != nil {
		log.Errorf("failed to commit event for user %d: %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}

	if len(conflicts) > 0 {
		resp := &SubmitResponse{Status: "conflicted", Conflicts: make([]*EventResponse, len(conflicts))}
		for i, ev := range conflicts {
			resp.Conflicts[i] = toEventResponse(ev)
		}
		return resp, nil
	}
	return &SubmitResponse{Status: "committed", Event: toEventResponse(candidate)}, nil
}

// ResolveConflict applies replace or reschedule to the caller's pending
// conflict.
func (e *DefaultEventService) ResolveConflict(req *ResolveRequest, subID string) (*ResolveResponse, apierror.ErrorResponse) {
	caller, apierr := e.caller(subID)
	if apierr != nil {
		return nil, apierr
	}

	if err := e.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}
	action, ok := calendar.ParseAction(req.Action)
	if !ok {
		return nil, apierror.NewInvalidParamError("action", "resolution (replace or reschedule)")
	}

	pending, err := e.resolverFor(caller.ID).Resolve(action)
	switch err {
	case nil:
	case calendar.ErrNoPending:
		return nil, apierror.NoPendingConflictError
	case calendar.ErrBusy:
		return nil, apierror.ResolverBusyError
	default:
		log.Errorf("failed to apply %s for user %d: %v", action, caller.ID, err)
		return nil, apierror.InternalServerError
	}

	if action == calendar.ActionReschedule {
		return &ResolveResponse{Status: "discarded"}, nil
	}
	return &ResolveResponse{Status: "committed", Event: toEventResponse(pending.Candidate)}, nil
}

// DismissConflict drops the caller's pending conflict; closing the dialog
// behaves exactly like reschedule.
func (e *DefaultEventService) DismissConflict(subID string) apierror.ErrorResponse {
	caller, apierr := e.caller(subID)
	if apierr != nil {
		return apierr
	}
	e.resolverFor(caller.ID).Dismiss()
	return nil
}

func (e *DefaultEventService) DeleteEvent(id, subID string) apierror.ErrorResponse {
	caller, apierr := e.caller(subID)
	if apierr != nil {
		return apierr
	}

	event, err := e.EventRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch event %s: %v", id, err)
		return apierror.InternalServerError
	}
	if event == nil || event.UserID != caller.ID {
		return apierror.NotFoundError
	}

	if err := e.EventRepo.Delete(event); err != nil {
		log.Errorf("failed to delete event %s: %v", id, err)
		return apierror.InternalServerError
	}
	return nil
}

// GetCalendar returns the grid for the requested view with the caller's
// events bucketed into their start cells.
func (e *DefaultEventService) GetCalendar(view, anchorStr, subID string) (*CalendarResponse, apierror.ErrorResponse) {
	caller, apierr := e.caller(subID)
	if apierr != nil {
		return nil, apierr
	}

	mode, ok := calendar.ParseViewMode(view)
	if !ok {
		return nil, apierror.NewInvalidParamError("view", "view (monthly, weekly or daily)")
	}
	anchor, err := time.ParseInLocation("2006-01-02", anchorStr, time.UTC)
	if err != nil {
		return nil, apierror.NewInvalidParamError("anchor", "date (YYYY-MM-DD)")
	}

	events, err := e.EventRepo.FindByUserID(caller.ID)
	if err != nil {
		log.Errorf("failed to load events for calendar (user %d): %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}

	cells := calendar.Grid(anchor, mode, time.Now().UTC())
	resp := &CalendarResponse{
		View:   string(mode),
		Anchor: anchorStr,
		Cells:  make([]*CellResponse, len(cells)),
	}
	for i, cell := range cells {
		bucketed := calendar.Bucket(events, cell)
		cr := &CellResponse{
			Date:     cell.Date.Format("2006-01-02"),
			Hour:     cell.Hour,
			InPeriod: cell.InPeriod,
			IsToday:  cell.Today,
			Events:   make([]*EventResponse, len(bucketed)),
		}
		for j, ev := range bucketed {
			cr.Events[j] = toEventResponse(ev)
		}
		resp.Cells[i] = cr
	}
	return resp, nil
}

// GetDraft resolves a clicked slot into default times for the event form.
func (e *DefaultEventService) GetDraft(view, dateStr, hourStr string) (*DraftResponse, apierror.ErrorResponse) {
	mode, ok := calendar.ParseViewMode(view)
	if !ok {
		return nil, apierror.NewInvalidParamError("view", "view (monthly, weekly or daily)")
	}

	now := time.Now().UTC()
	date := now
	if dateStr != "" {
		var err error
		date, err = time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			return nil, apierror.NewInvalidParamError("date", "date (YYYY-MM-DD)")
		}
	}

	var slot calendar.Slot
	switch mode {
	case calendar.ViewMonthly:
		if dateStr == "" {
			return nil, apierror.NewMissingParamError("date")
		}
		slot = calendar.MonthlySlot(date)
	case calendar.ViewWeekly:
		if dateStr == "" {
			return nil, apierror.NewMissingParamError("date")
		}
		hour, apierr := parseHour(hourStr)
		if apierr != nil {
			return nil, apierr
		}
		slot = calendar.WeeklySlot(date, hour)
	case calendar.ViewDaily:
		hour, apierr := parseHour(hourStr)
		if apierr != nil {
			return nil, apierr
		}
		slot = calendar.DailySlot(hour)
	}

	start, end := slot.DraftWindow(date, now.Hour())
	return &DraftResponse{
		StartTime: start.Format(time.RFC3339),
		EndTime:   end.Format(time.RFC3339),
		Color:     calendar.DefaultColor(),
	}, nil
}

func (e *DefaultEventService) caller(subID string) (*entity.User, apierror.ErrorResponse) {
	caller, err := e.UserRepo.FindBySub(subID)
	if err != nil {
		log.Errorf("failed to fetch user %s: %v", subID, err)
		return nil, apierror.InternalServerError
	}
	if caller == nil {
		return nil, apierror.InvalidAuthTokenError
	}
	return caller, nil
}

func parseHour(hourStr string) (int, apierror.ErrorResponse) {
	if hourStr == "" {
		return 0, apierror.NewMissingParamError("hour")
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		return 0, apierror.NewInvalidParamError("hour", "hour (0-23)")
	}
	return hour, nil
}

func toEventResponse(ev *entity.Event) *EventResponse {
	return &EventResponse{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		StartTime:   utils.FormatEpoch(ev.BeginsAt),
		EndTime:     utils.FormatEpoch(ev.EndsAt),
		Color:       ev.Color,
		UserID:      ev.UserID,
		CreatedAt:   utils.FormatEpoch(ev.CreatedAt),
		UpdatedAt:   utils.FormatEpoch(ev.UpdatedAt),
	}
}
