package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/classroom"
)

type classroomApi struct {
	conf     *core.Config
	svc      classroom.Service
	validate *validator.Validate
}

func registerClassroomAPI(g *echo.Group, auth echo.MiddlewareFunc, svc classroom.Service, conf *core.Config, validate *validator.Validate) {
	api := classroomApi{
		conf:     conf,
		svc:      svc,
		validate: validate,
	}

	// un-authed endpoints: a student needs neither an account nor a session
	// to ask for a join code, and search backs the public landing page.
	g.POST("/request-to-join", api.requestToJoin)
	g.GET("/classrooms/search", api.search)

	// authed endpoints
	ag := g.Group("", auth)
	ag.POST("/create", api.create)
	ag.GET("/classroomscreatedbyme", api.createdByMe)
	ag.GET("/getclassbyid/:classid", api.getByID)
	ag.POST("/addpost", api.addPost)
	ag.POST("/verify-otp", api.verifyOTP)
	ag.GET("/classroomforstudent", api.forStudent)
}

// Handlers

func (api *classroomApi) create(ctx echo.Context) error {
	var data classroom.NewClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, "Classroom created successfully", cls)
}

func (api *classroomApi) createdByMe(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	classrooms, err := api.svc.QueryByOwner(ctx.Request().Context(), usr.ID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Classrooms fetched successfully", classrooms)
}

func (api *classroomApi) getByID(ctx echo.Context) error {
	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("classid"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Classroom fetched successfully", cls)
}

func (api *classroomApi) search(ctx echo.Context) error {
	term := core.CleanString(ctx.QueryParam("term"))
	if term == "" {
		return core.NewValidationError(errors.New("search term is required"))
	}

	results, err := api.svc.Search(ctx.Request().Context(), term)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return classroom.ErrNotFound
	}
	return respond(ctx, http.StatusOK, "Search results", results)
}

func (api *classroomApi) addPost(ctx echo.Context) error {
	var data classroom.NewPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	post, err := api.svc.AddPost(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, "Post created successfully", post)
}

func (api *classroomApi) requestToJoin(ctx echo.Context) error {
	var data classroom.JoinClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinClassroom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	req, ownerEmail, err := api.svc.RequestToJoin(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "OTP sent to teacher", echo.Map{
		"requestId":  req.ID,
		"ownerEmail": ownerEmail,
	})
}

func (api *classroomApi) verifyOTP(ctx echo.Context) error {
	var data classroom.VerifyJoin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyJoin")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.ApproveJoin(ctx.Request().Context(), usr, data); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Successfully joined class", nil)
}

func (api *classroomApi) forStudent(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	classrooms, err := api.svc.QueryByMember(ctx.Request().Context(), usr.Email)
	if err != nil {
		return err
	}
	if len(classrooms) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no classroom found")
	}
	return respond(ctx, http.StatusOK, "Classroom fetched successfully", classrooms)
}
