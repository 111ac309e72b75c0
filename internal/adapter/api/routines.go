package api

import (
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/adapter/interchange"
	routineapp "github.com/burenotti/go_routines_backend/internal/app/routine"
	"github.com/burenotti/go_routines_backend/internal/app/unitofwork"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const maxImportSize = 1 << 20

func (s *Server) MountRoutines() {
	g := s.handler.Group("/routines", LoginRequired(s.authorizer))

	g.POST("", s.CreateRoutine)
	g.GET("", s.ListRoutines)
	g.POST("/import", s.ImportRoutine)
	g.GET("/:routine_id", s.GetRoutine)
	g.PUT("/:routine_id", s.UpdateRoutine)
	g.DELETE("/:routine_id", s.DeleteRoutine)
	g.POST("/:routine_id/renew", s.RenewRoutine)
	g.GET("/:routine_id/export", s.ExportRoutine)
	g.POST("/:routine_id/export/archive", s.ArchiveRoutine)
}

func (s *Server) getRoutineUoW() *routineapp.UnitOfWork {
	return unitofwork.New[*routineapp.AtomicContext](
		s.db,
		routineapp.NewAtomicContext,
		s.msgBus,
		s.logger,
	)
}

type RoutineResponse struct {
	RoutineID   string             `json:"routine_id"`
	TrainerID   string             `json:"trainer_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	StartDate   *routine.Date      `json:"start_date"`
	EndDate     *routine.Date      `json:"end_date"`
	Exercises   []routine.Exercise `json:"exercises"`
	AthleteIDs  []string           `json:"athlete_ids"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func routineResponse(r *routine.Routine) RoutineResponse {
	exercises := []routine.Exercise(r.Exercises)
	if exercises == nil {
		exercises = []routine.Exercise{}
	}
	return RoutineResponse{
		RoutineID:   string(r.RoutineID),
		TrainerID:   string(r.TrainerID),
		Title:       r.Title,
		Description: r.Description,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Exercises:   exercises,
		AthleteIDs: lo.Map(r.AthleteIDs, func(id routine.AthleteID, _ int) string {
			return string(id)
		}),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func athleteIDs(ids []string) []routine.AthleteID {
	out := make([]routine.AthleteID, 0, len(ids))
	for _, id := range ids {
		out = append(out, routine.AthleteID(strings.TrimSpace(id)))
	}
	return out
}

type CreateRoutineRequest struct {
	Title       string             `json:"title" validate:"required,max=200"`
	Description string             `json:"description" validate:"max=4000"`
	TrainerID   string             `json:"trainer_id"`
	StartDate   string             `json:"start_date" validate:"required"`
	EndDate     string             `json:"end_date" validate:"required"`
	Exercises   []routine.Exercise `json:"exercises"`
	AthleteIDs  []string           `json:"athlete_ids"`
}

func (s *Server) CreateRoutine(c echo.Context) error {
	var req CreateRoutineRequest
	if err := s.bind(c, &req); err != nil {
		return JsonError(c, http.StatusBadRequest, err)
	}

	start, err := routine.ParseOptionalDate(req.StartDate)
	if err != nil {
		return s.fail(c, err)
	}
	end, err := routine.ParseOptionalDate(req.EndDate)
	if err != nil {
		return s.fail(c, err)
	}

	r, err := s.routineService.Create(c.Request().Context(), s.getRoutineUoW(), currentCaller(c), routineapp.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		TrainerID:   routine.TrainerID(req.TrainerID),
		StartDate:   start,
		EndDate:     end,
		Exercises:   req.Exercises,
		AthleteIDs:  athleteIDs(req.AthleteIDs),
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, routineResponse(r))
}

func (s *Server) ListRoutines(c echo.Context) error {
	routines, err := s.routineService.ListMine(c.Request().Context(), s.getRoutineUoW(), currentCaller(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, lo.Map(routines, func(r *routine.Routine, _ int) RoutineResponse {
		return routineResponse(r)
	}))
}

type RoutineIDParam struct {
	RoutineID string `param:"routine_id" validate:"required"`
}

func (s *Server) GetRoutine(c echo.Context) error {
	var req RoutineIDParam
	if err := s.bind(c, &req); err != nil {
		return JsonError(c, http.StatusBadRequest, err)
	}

	r, err := s.routineService.Get(c.Request().Context(), s.getRoutineUoW(), currentCaller(c), routine.RoutineID(req.RoutineID))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, routineResponse(r))
}

type UpdateRoutineRequest struct {
	RoutineID   string             `param:"routine_id" validate:"required"`
	Title       string             `json:"title" validate:"required,max=200"`
	Description string             `json:"description" validate:"max=4000"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	Exercises   []routine.Exercise `json:"exercises"`
	// AthleteIDs is left alone when absent and clears every assignment when empty.
	AthleteIDs *[]string `json:"athlete_ids"`
	TrainerID  *string   `json:"trainer_id"`
}

func (s *Server) UpdateRoutine(c echo.Context) error {
	var req UpdateRoutineRequest
	if err := s.bind(c, &req); err != nil {
		return JsonError(c, http.StatusBadRequest, err)
	}

	start, err := routine.ParseOptionalDate(req.StartDate)
	if err != nil {
		return s.fail(c, err)
	}
	end, err := routine.ParseOptionalDate(req.EndDate)
	if err != nil {
		return s.fail(c, err)
	}

	update := routineapp.UpdateRequest{
		Title:       req.Title,
		Description: req.Description,
		Exercises:   req.Exercises,
		StartDate:   start,
		EndDate:     end,
	}
	if req.AthleteIDs != nil {
		update.AthleteIDs = athleteIDs(*req.AthleteIDs)
	}
	if req.TrainerID != nil {
		trainerID := routine.TrainerID(*req.TrainerID)
		update.TrainerID = &trainerID
	}

	r, err := s.routineService.Update(c.Request().Context(), s.getRoutineUoW(), currentCaller(c), routine.RoutineID(req.RoutineID), update)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, routineResponse(r))
}

func (s *Server) DeleteRoutine(c echo.Context) error {
	var req RoutineIDParam
	if err := s.bind(c, &req); err != nil {
		return JsonError(c, http.StatusBadRequest, err)
	}

	err := s.routineService.Delete(c.Request().Context(), s.getRoutineUoW(), currentCaller(c), routine.RoutineID(req.RoutineID))
	if err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type RenewRoutineRequest struct {
	RoutineID string `param:"routine_id" validate:"required"`
	Months    int    `json:"months" validate:"gte=0,lte=120"`
	EndDate   string `json:"end_date"`
}

func (s *Server) RenewRoutine(c echo.Context) error {
	var req RenewRoutineRequest
	if err := s.bind(c, &req); err != nil {
		return JsonError(c, http.StatusBadRequest, err)
	}

	end, err := routine.ParseOptionalDate(req.EndDate)
	if err != nil {
		return s.fail(c, err)
	}

	r, err := s.routineService.Renew(c.Request().Context(), s.getRoutineUoW(), currentCaller(c), routine.RoutineID(req.RoutineID), routineapp.RenewRequest{
		Months:  req.Months,
		EndDate: end,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, routineResponse(r))
}

func formatParam(c echo.Context) (interchange.Format, error) {
	format := c.QueryParam("format")
	if format == "" {
		return interchange.FormatJSON, nil
	}
	return interchange.ParseFormat(format)
}

func (s *Server) ExportRoutine(c echo.Context) error {
	format, err := formatParam(c)
	if err != nil {
		return s.fail(c, err)
	}

	f, err := s.routineService.Export(c.Request().Context(), s.getRoutineUoW(), currentCaller(c), routine.RoutineID(c.Param("routine_id")), format)
	if err != nil {
		return s.fail(c, err)
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": f.Filename})
	c.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	return c.Blob(http.StatusOK, f.ContentType, f.Content)
}

type ArchiveResponse struct {
	Location string `json:"location"`
}

func (s *Server) ArchiveRoutine(c echo.Context) error {
	format, err := formatParam(c)
	if err != nil {
		return s.fail(c, err)
	}

	location, err := s.routineService.ExportToArchive(c.Request().Context(), s.getRoutineUoW(), currentCaller(c), routine.RoutineID(c.Param("routine_id")), format)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, ArchiveResponse{Location: location})
}

func (s *Server) ImportRoutine(c echo.Context) error {
	header, err := c.FormFile("file")
	if err != nil {
		return JsonError(c, http.StatusBadRequest, "file is required")
	}
	if header.Size > maxImportSize {
		return JsonError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", maxImportSize))
	}

	file, err := header.Open()
	if err != nil {
		return JsonError(c, http.StatusBadRequest, "cannot read file")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxImportSize+1))
	if err != nil {
		return JsonError(c, http.StatusBadRequest, "cannot read file")
	}
	if len(content) > maxImportSize {
		return JsonError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", maxImportSize))
	}

	start, err := routine.ParseOptionalDate(c.FormValue("start_date"))
	if err != nil {
		return s.fail(c, err)
	}
	end, err := routine.ParseOptionalDate(c.FormValue("end_date"))
	if err != nil {
		return s.fail(c, err)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return JsonError(c, http.StatusBadRequest, "bad request")
	}
	var ids []string
	for _, v := range form.Value["athlete_ids"] {
		ids = append(ids, strings.Split(v, ",")...)
	}

	r, err := s.routineService.Import(c.Request().Context(), s.getRoutineUoW(), currentCaller(c), routineapp.ImportRequest{
		Filename:   header.Filename,
		Content:    content,
		AthleteIDs: athleteIDs(ids),
		TrainerID:  routine.TrainerID(c.FormValue("trainer_id")),
		Defaults: interchange.Defaults{
			Title:       c.FormValue("title"),
			Description: c.FormValue("description"),
			StartDate:   start,
			EndDate:     end,
		},
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, routineResponse(r))
}
