package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/julianstephens/habitpact/internal/constants"
	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/rollover"
	"github.com/julianstephens/habitpact/internal/utils"
)

type messageBody struct {
	Message string `json:"message"`
}

type createUserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type createHabitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createPlanRequest struct {
	HabitID   string `json:"habit_id"`
	StartDate string `json:"start_datetime"`
	EndDate   string `json:"end_datetime"`
}

type createInvitationRequest struct {
	RecipientName  string `json:"recipient_name"`
	RecipientEmail string `json:"recipient_email"`
}

type respondInvitationRequest struct {
	Status constants.InvitationStatus `json:"status"`
}

// planView flattens a plan with its habit, owner and logs
type planView struct {
	PlanID      string       `json:"habit_plan_id"`
	UserID      string       `json:"user_id"`
	HabitID     string       `json:"habit_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	StartDate   string       `json:"start_datetime"`
	EndDate     string       `json:"end_datetime"`
	User        userView     `json:"user"`
	Logs        []models.Log `json:"habit_logs"`
}

type userView struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

type generationView struct {
	Mode      string `json:"mode"`
	Deferred  bool   `json:"deferred"`
	RangeFrom string `json:"range_beginning,omitempty"`
	RangeTo   string `json:"range_end,omitempty"`
	Created   int    `json:"created"`
}

type rolloverView struct {
	Window    string           `json:"window"`
	Succeeded []string         `json:"succeeded"`
	Failed    []rolloverFailed `json:"failed"`
	Created   int              `json:"created"`
	Attempts  int              `json:"attempts"`
}

type rolloverFailed struct {
	PlanID string `json:"habit_plan_id"`
	Error  string `json:"error"`
}

func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, messageBody{Message: constants.Version})
}

func (s *Server) createUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Malformed request body")
	}
	u, err := s.engine.CreateUser(c.Request().Context(), req.Name, req.Username, req.Email)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (s *Server) createHabit(c echo.Context) error {
	var req createHabitRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Malformed request body")
	}
	h, err := s.engine.CreateHabit(c.Request().Context(), c.Param("id"), req.Name, req.Description)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, h)
}

func (s *Server) createPlan(c echo.Context) error {
	var req createPlanRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Malformed request body")
	}

	var fields []apperrors.FieldError
	start, ok := parseOptionalDate(req.StartDate)
	if !ok {
		fields = append(fields, apperrors.FieldError{Field: "start_date", Message: "Start date is invalid"})
	}
	end, ok := parseOptionalDate(req.EndDate)
	if !ok {
		fields = append(fields, apperrors.FieldError{Field: "end_date", Message: "End date is invalid"})
	}
	if len(fields) > 0 {
		return respondError(c, apperrors.Validation(fields...))
	}

	today, err := s.today()
	if err != nil {
		return internalError(c, err)
	}
	plan, res, err := s.engine.CreatePlan(c.Request().Context(), c.Param("id"), req.HabitID, start, end, today)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"habit_plan": plan,
		"generation": newGenerationView(res.Mode.String(), res.Deferred, res.Range.Start, res.Range.End, res.Created),
	})
}

// parseOptionalDate leaves blank values to the validator
func parseOptionalDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	// Accept YYYY/MM/DD and full timestamps as well as plain dates
	s = strings.ReplaceAll(s, "/", "-")
	if len(s) > len(constants.DateFormat) {
		s = s[:len(constants.DateFormat)]
	}
	d, err := utils.ParseDate(s)
	return d, err == nil
}

func newGenerationView(mode string, deferred bool, from, to time.Time, created int) generationView {
	v := generationView{Mode: mode, Deferred: deferred, Created: created}
	if !from.IsZero() {
		v.RangeFrom = utils.FormatDate(from)
		v.RangeTo = utils.FormatDate(to)
	}
	return v
}

func (s *Server) generatePlan(c echo.Context) error {
	today, err := s.today()
	if err != nil {
		return internalError(c, err)
	}
	res, err := s.engine.GenerateForUserPlan(c.Request().Context(), c.Param("id"), c.Param("plan_id"), today)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newGenerationView(res.Mode.String(), res.Deferred, res.Range.Start, res.Range.End, res.Created))
}

func (s *Server) weekPlans(c echo.Context) error {
	return s.planViews(c, false)
}

func (s *Server) todayPlans(c echo.Context) error {
	return s.planViews(c, true)
}

func (s *Server) planViews(c echo.Context, todayOnly bool) error {
	today, err := s.today()
	if err != nil {
		return internalError(c, err)
	}

	var plans []models.PlanWithLogs
	if todayOnly {
		plans, err = s.engine.TodayPlans(c.Request().Context(), c.Param("id"), today)
	} else {
		plans, err = s.engine.WeekPlans(c.Request().Context(), c.Param("id"), today)
	}
	if err != nil {
		return respondError(c, err)
	}

	out := make([]planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, planView{
			PlanID:      p.Plan.ID,
			UserID:      p.Plan.UserID,
			HabitID:     p.Plan.HabitID,
			Name:        p.Habit.Name,
			Description: p.Habit.Description,
			StartDate:   utils.FormatDate(p.Plan.StartDate),
			EndDate:     utils.FormatDate(p.Plan.EndDate),
			User:        userView{Name: p.User.Name, Username: p.User.Username},
			Logs:        p.Logs,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) toggleLog(c echo.Context) error {
	l, err := s.engine.ToggleLogCompletion(c.Request().Context(), c.Param("log_id"))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, errorBody{Errors: "Habit Log Not Found"})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]models.Log{"habit_log": l})
}

func (s *Server) createInvitation(c echo.Context) error {
	var req createInvitationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Malformed request body")
	}
	_, err := s.engine.CreateInvitation(c.Request().Context(), c.Param("id"), c.Param("plan_id"), req.RecipientName, req.RecipientEmail)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, messageBody{Message: "Email Sent"})
}

func (s *Server) receivedInvitations(c echo.Context) error {
	invs, err := s.engine.ReceivedInvitations(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if len(invs) == 0 {
		return c.JSON(http.StatusNotFound, errorBody{Errors: "No invitations found"})
	}
	return c.JSON(http.StatusOK, invs)
}

func (s *Server) sentInvitations(c echo.Context) error {
	invs, err := s.engine.SentInvitations(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if len(invs) == 0 {
		return c.JSON(http.StatusNotFound, errorBody{Errors: "No sent invites found"})
	}
	return c.JSON(http.StatusOK, invs)
}

// respondInvitation accepts the invitation unless the body asks to decline
func (s *Server) respondInvitation(c echo.Context) error {
	var req respondInvitationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Malformed request body")
	}

	ctx := c.Request().Context()
	var (
		inv models.Invitation
		err error
	)
	switch req.Status {
	case "", constants.InvitationAccepted:
		today, terr := s.today()
		if terr != nil {
			return internalError(c, terr)
		}
		inv, err = s.engine.AcceptInvitation(ctx, c.Param("invitation_id"), c.Param("id"), today)
	case constants.InvitationDeclined:
		inv, err = s.engine.DeclineInvitation(ctx, c.Param("invitation_id"), c.Param("id"))
	default:
		return respondError(c, apperrors.Validation(apperrors.FieldError{Field: "status", Message: "Status is invalid"}))
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (s *Server) runRollover(c echo.Context) error {
	today, err := s.today()
	if err != nil {
		return internalError(c, err)
	}
	if d := c.QueryParam("date"); d != "" {
		if today, err = utils.ParseDate(d); err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
	}

	runner := rollover.NewRunner(s.engine.RolloverJob())
	runner.Delay = s.rolloverDelay
	if s.rolloverAttempts > 0 {
		runner.MaxAttempts = s.rolloverAttempts
	}
	report, attempts, err := runner.RunWithRetry(c.Request().Context(), today)
	if err != nil {
		return respondError(c, err)
	}

	out := rolloverView{
		Window:    report.Window.String(),
		Succeeded: report.Succeeded,
		Failed:    make([]rolloverFailed, 0, len(report.Failed)),
		Created:   report.Created,
		Attempts:  attempts,
	}
	if out.Succeeded == nil {
		out.Succeeded = []string{}
	}
	for _, f := range report.Failed {
		out.Failed = append(out.Failed, rolloverFailed{PlanID: f.PlanID, Error: f.Err.Error()})
	}
	return c.JSON(http.StatusOK, out)
}
