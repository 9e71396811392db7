package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/shanmiteko/bili-login/internal/client/domain"
	"github.com/shanmiteko/bili-login/internal/server/service"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

type FlowHandler struct {
	Service *service.FlowService
}

// New returns an echo instance serving the flow routes under /flow.
func New(h *FlowHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.Use(middleware.Recover())
	h.MountRoutes(e.Group("/flow"))
	return e
}

func (h *FlowHandler) MountRoutes(g *echo.Group) {
	g.POST("/start", h.start)
	g.POST("/verify", h.verify)
	g.POST("/reset", h.reset)
	g.GET("/attempts", h.attempts)
}

type startRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type verifyRequest struct {
	Validate string `json:"validate" validate:"required"`
	Seccode  string `json:"seccode" validate:"required"`
}

type challengeResponse struct {
	GT        string `json:"gt"`
	Challenge string `json:"challenge"`
	Token     string `json:"token"`
}

type resultResponse struct {
	Outcome string `json:"outcome"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
}

type attemptResponse struct {
	ID        string    `json:"id"`
	EpochID   string    `json:"epoch_id"`
	Username  string    `json:"username"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *FlowHandler) start(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	params, err := h.Service.StartLogin(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, challengeOf(params))
}

func (h *FlowHandler) verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res, err := h.Service.SubmitVerification(c.Request().Context(), req.Validate, req.Seccode)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, resultResponse{
		Outcome: res.Outcome.String(),
		URL:     res.RedirectURL,
		Message: res.Message,
	})
}

func (h *FlowHandler) reset(c echo.Context) error {
	params, err := h.Service.ResetFlow(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, challengeOf(params))
}

func (h *FlowHandler) attempts(c echo.Context) error {
	var limit int
	binderr := echo.QueryParamsBinder(c).
		Int("limit", &limit).
		BindError()
	if binderr != nil {
		return echo.NewHTTPError(http.StatusBadRequest, binderr.Error())
	}
	attempts, err := h.Service.Attempts(c.Request().Context(), limit)
	if err != nil {
		return toHTTPError(err)
	}
	resp := make([]attemptResponse, 0, len(attempts))
	for _, a := range attempts {
		resp = append(resp, attemptResponse{
			ID:        a.ID.String(),
			EpochID:   a.EpochID.String(),
			Username:  a.Username,
			Outcome:   a.Outcome,
			Message:   a.Message,
			CreatedAt: a.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func challengeOf(params domain.ChallengeParameters) challengeResponse {
	return challengeResponse{
		GT:        params.GT,
		Challenge: params.Challenge,
		Token:     params.Token,
	}
}

func toHTTPError(err error) error {
	switch service.Classify(err) {
	case service.KindInvalidArgument:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case service.KindUnavailable, service.KindMalformed:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case service.KindPrecondition:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
