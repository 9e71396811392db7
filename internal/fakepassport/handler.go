package fakepassport

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/shanmiteko/bili-login/internal/client/passport"
)

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TTL     int    `json:"ttl"`
	Data    any    `json:"data,omitempty"`
}

type geetest struct {
	GT        string `json:"gt"`
	Challenge string `json:"challenge"`
}

type captchaData struct {
	Type    string  `json:"type"`
	Token   string  `json:"token"`
	Geetest geetest `json:"geetest"`
}

type keyData struct {
	Hash string `json:"hash"`
	Key  string `json:"key"`
}

type loginData struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

func reply(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, envelope{Code: 0, Message: "0", TTL: 1, Data: data})
}

func reject(c echo.Context, err *RejectError) error {
	return c.JSON(http.StatusOK, envelope{Code: err.Code, Message: err.Message, TTL: 1})
}

// Handler serves the passport endpoints under their real paths.
func (s *Service) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	s.MountRoutes(e.Group(""))
	return e
}

func (s *Service) MountRoutes(g *echo.Group) {
	g.GET(passport.PathCaptcha, s.captcha)
	g.GET(passport.PathKey, s.webKey)
	g.POST(passport.PathLogin, s.webLogin)
}

func (s *Service) captcha(c echo.Context) error {
	if c.QueryParam("source") == "" {
		return reject(c, errBadRequest)
	}
	chal, err := s.IssueChallenge(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return reply(c, captchaData{
		Type:  "geetest",
		Token: chal.Token,
		Geetest: geetest{
			GT:        chal.GT,
			Challenge: chal.Challenge,
		},
	})
}

func (s *Service) webKey(c echo.Context) error {
	salt, key, err := s.IssueKey()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return reply(c, keyData{Hash: salt, Key: key})
}

func (s *Service) webLogin(c echo.Context) error {
	var form LoginForm
	binderr := echo.FormFieldBinder(c).
		String("username", &form.Username).
		String("password", &form.Password).
		Bool("keep", &form.Keep).
		String("token", &form.Token).
		String("challenge", &form.Challenge).
		String("validate", &form.Validate).
		String("seccode", &form.Seccode).
		BindError()
	if binderr != nil {
		return reject(c, errBadRequest)
	}

	redirect, err := s.Login(c.Request().Context(), form)
	var rej *RejectError
	if errors.As(err, &rej) {
		s.logger.Info().
			Str("username", form.Username).
			Int("code", rej.Code).
			Msg("rejected login")
		return reject(c, rej)
	} else if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return reply(c, loginData{URL: redirect})
}
