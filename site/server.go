// Package site is the HTTP surface: the login API a browser walks through
// and the resulting subscribable calendar feed.
package site

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"campuscal/adapter"
	"campuscal/calendar"
	"campuscal/config"
	"campuscal/login"
	"campuscal/schedule"
	"campuscal/store"
)

// Shown for any feed URL that cannot be resolved to a credential. The
// message never distinguishes unknown school, unknown key or tag
// mismatch; a feed URL is a bearer secret.
const invalidLinkMessage = "link invalid or expired"

type Server struct {
	cfg      *config.Config
	registry *adapter.Registry
	store    *store.Store
	holidays *schedule.HolidayCalendar
	sessions *login.Manager
}

func New(cfg *config.Config, registry *adapter.Registry, st *store.Store, holidays *schedule.HolidayCalendar) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		store:    st,
		holidays: holidays,
		sessions: login.NewManager(registry, st),
	}
}

// Sessions exposes the visitor-session manager so the daemon can prune it.
func (s *Server) Sessions() *login.Manager {
	return s.sessions
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	api := router.Group("/api")
	api.Use(s.sessions.Middleware())
	api.GET("/schools", s.listSchools)
	api.POST("/select", s.selectSchool)
	api.GET("/captcha", s.captcha)
	api.POST("/login", s.login)

	// The feed lives at /<school>/<key>/schedule.ics. A root-level
	// route parameter cannot share the tree with the static /api
	// prefix, so the feed is matched in the fallback handler.
	router.NoRoute(s.feed)
	return router
}

func (s *Server) listSchools(c *gin.Context) {
	type school struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	}
	var out []school
	for _, name := range s.registry.Names() {
		sch, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		out = append(out, school{Name: name, DisplayName: sch.DisplayName()})
	}
	c.JSON(http.StatusOK, gin.H{"schools": out})
}

func (s *Server) selectSchool(c *gin.Context) {
	var req struct {
		School string `json:"school" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "school is required"})
		return
	}

	err := login.ProcessFrom(c).SelectSchool(c.Request.Context(), req.School)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"state": "selected"})
	case errors.Is(err, adapter.ErrUnknownAdapter):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown school"})
	case errors.Is(err, login.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("select school %q: %v", req.School, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "school portal unreachable"})
	}
}

func (s *Server) captcha(c *gin.Context) {
	img, err := login.ProcessFrom(c).Captcha()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Captcha  string `json:"captcha" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, password and captcha are required"})
		return
	}

	p := login.ProcessFrom(c)
	err := p.Login(c.Request.Context(), req.Username, req.Password, req.Captcha)
	var rejected *adapter.RejectedError
	switch {
	case err == nil:
	case errors.As(err, &rejected):
		// The portal's own words go back to the visitor unchanged.
		c.JSON(http.StatusUnauthorized, gin.H{"error": rejected.Reason})
		return
	case errors.Is(err, login.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	default:
		log.Printf("login attempt: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "school portal unreachable"})
		return
	}

	schoolName, key, err := p.Result()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login finished in an inconsistent state"})
		return
	}

	feedURL := s.cfg.SiteURL + "/" + url.PathEscape(schoolName) + "/" + key + "/schedule.ics"
	c.JSON(http.StatusOK, gin.H{
		"school":    schoolName,
		"key":       key,
		"url":       feedURL,
		"webcalUrl": strings.Replace(feedURL, "https://", "webcal://", 1),
	})
}

func (s *Server) feed(c *gin.Context) {
	ctx := c.Request.Context()

	parts := strings.Split(strings.Trim(c.Request.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "schedule.ics" {
		c.String(http.StatusNotFound, "not found")
		return
	}
	schoolName, err := url.PathUnescape(parts[0])
	if err != nil {
		c.String(http.StatusNotFound, invalidLinkMessage)
		return
	}
	key := parts[1]

	school, err := s.registry.Get(schoolName)
	if err != nil {
		c.String(http.StatusNotFound, invalidLinkMessage)
		return
	}
	cred, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, adapter.ErrCredentialNotFound) {
			log.Printf("resolving feed key: %v", err)
		}
		c.String(http.StatusNotFound, invalidLinkMessage)
		return
	}

	client, err := school.AuthenticatedClient(ctx, cred)
	if err != nil {
		if errors.Is(err, adapter.ErrCredentialMismatch) {
			c.String(http.StatusNotFound, invalidLinkMessage)
			return
		}
		log.Printf("building client for %s: %v", schoolName, err)
		c.String(http.StatusBadGateway, "school portal unreachable")
		return
	}

	courses, err := school.Courses(ctx, client)
	if err != nil {
		log.Printf("fetching courses for %s: %v", schoolName, err)
		c.String(http.StatusBadGateway, "failed to fetch the schedule from the school portal")
		return
	}
	courses = s.holidays.FilterHolidays(courses)

	body, err := calendar.Build(school, courses)
	if err != nil {
		log.Printf("serializing calendar for %s: %v", schoolName, err)
		c.String(http.StatusInternalServerError, "failed to build the calendar")
		return
	}
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}
