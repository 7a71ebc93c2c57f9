package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/unitctl/internal/loader"
	"github.com/danmuck/unitctl/internal/relations"
	"github.com/danmuck/unitctl/internal/unit"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var validate = validator.New()

type refRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

type moveRequest struct {
	From *int `json:"from" validate:"required,gte=0"`
	To   *int `json:"to" validate:"required,gte=0"`
}

type locationRequest struct {
	Location string `json:"location" validate:"required"`
}

type loadRequest struct {
	Root  string `json:"root" validate:"required"`
	Async bool   `json:"async"`
}

func (s *Server) RegisterRoutes() {
	r := s.router

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"dirty":   s.store.Dirty(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/relations", s.listRelations)
	r.POST("/relations", s.insertRoot)
	r.GET("/relations/:id/root", s.isRoot)
	r.GET("/relations/:id/children", s.childrenByID)
	r.POST("/relations/:id/children", s.insertChild)
	r.POST("/relations/:id/children/move", s.moveChild)
	r.PUT("/relations/:id/children/:index", s.replaceChild)
	r.DELETE("/relations/:id/children/:index", s.removeChild)
	r.PUT("/roots/:index", s.replaceRoot)
	r.DELETE("/roots/:index", s.removeRoot)
	r.POST("/roots/move", s.moveRoot)
	r.GET("/names/:name/children", s.childrenByName)
	r.GET("/referenced", s.referenced)
	r.POST("/resync", s.resync)

	editor := r.Group("/editor")
	editor.POST("/opened", s.rootOpened)
	editor.POST("/closing", s.rootClosing)
	editor.POST("/exiting-edit-mode", s.beforeRuntime)

	runtime := r.Group("/runtime")
	runtime.GET("/status", s.runtimeStatus)
	runtime.POST("/load", s.loadRoot)
	runtime.POST("/unload-children", s.unloadChildren)
}

func (s *Server) listRelations(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Graph())
}

func (s *Server) isRoot(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, gin.H{"id": id, "root": s.store.IsRoot(id)})
}

func (s *Server) childrenByID(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, gin.H{"id": id, "children": s.store.ChildrenByID(id)})
}

func (s *Server) childrenByName(c *gin.Context) {
	name := c.Param("name")
	c.JSON(http.StatusOK, gin.H{"name": name, "children": s.store.ChildrenByName(name)})
}

func (s *Server) referenced(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ids": s.store.AllReferencedIDs()})
}

func (s *Server) insertRoot(c *gin.Context) {
	ref, ok := s.bindRef(c)
	if !ok {
		return
	}
	if err := s.store.InsertRoot(ref); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "root": ref})
}

func (s *Server) insertChild(c *gin.Context) {
	ref, ok := s.bindRef(c)
	if !ok {
		return
	}
	rootID := c.Param("id")
	if err := s.store.InsertChild(rootID, ref); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "children": s.store.ChildrenByID(rootID)})
}

func (s *Server) replaceChild(c *gin.Context) {
	s.replace(c, c.Param("id"))
}

func (s *Server) replaceRoot(c *gin.Context) {
	s.replace(c, "")
}

func (s *Server) replace(c *gin.Context, rootID string) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	ref, ok := s.bindRef(c)
	if !ok {
		return
	}
	if err := s.store.ReplaceAt(rootID, index, ref); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) removeChild(c *gin.Context) {
	s.remove(c, c.Param("id"))
}

func (s *Server) removeRoot(c *gin.Context) {
	s.remove(c, "")
}

func (s *Server) remove(c *gin.Context, rootID string) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	if err := s.store.RemoveAt(rootID, index); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) moveChild(c *gin.Context) {
	s.move(c, c.Param("id"))
}

func (s *Server) moveRoot(c *gin.Context) {
	s.move(c, "")
}

func (s *Server) move(c *gin.Context, rootID string) {
	var req moveRequest
	if !bind(c, &req) {
		return
	}
	if err := s.store.Reorder(rootID, *req.From, *req.To); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) resync(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"changed": s.store.ResyncNames(s.resolver)})
}

func (s *Server) rootOpened(c *gin.Context) {
	if !s.requireGuard(c) {
		return
	}
	var req locationRequest
	if !bind(c, &req) {
		return
	}
	composed := s.guard.RootOpened(req.Location)
	c.JSON(http.StatusOK, gin.H{
		"composed": composed,
		"state":    s.guard.State().String(),
		"root":     s.guard.Root(),
		"locked":   s.guard.Locked(),
	})
}

func (s *Server) rootClosing(c *gin.Context) {
	if !s.requireGuard(c) {
		return
	}
	var req locationRequest
	if !bind(c, &req) {
		return
	}
	released := s.guard.RootClosing(req.Location)
	c.JSON(http.StatusOK, gin.H{"released": released, "state": s.guard.State().String()})
}

func (s *Server) beforeRuntime(c *gin.Context) {
	if !s.requireGuard(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"resynced": s.guard.BeforeRuntime()})
}

func (s *Server) runtimeStatus(c *gin.Context) {
	if !s.requireLoader(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"root": s.loader.Root(), "loaded": s.loader.Loaded()})
}

func (s *Server) loadRoot(c *gin.Context) {
	if !s.requireLoader(c) {
		return
	}
	var req loadRequest
	if !bind(c, &req) {
		return
	}
	var err error
	if req.Async {
		err = s.loader.LoadWithChildrenAsync(c.Request.Context(), req.Root)
	} else {
		err = s.loader.LoadWithChildren(req.Root)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"root": s.loader.Root(), "loaded": s.loader.Loaded()})
}

func (s *Server) unloadChildren(c *gin.Context) {
	if !s.requireLoader(c) {
		return
	}
	if err := s.loader.UnloadAllChildrenAsync(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"root": s.loader.Root(), "loaded": s.loader.Loaded()})
}

// bindRef decodes a ref body and fills an empty name from the resolver.
func (s *Server) bindRef(c *gin.Context) (unit.Ref, bool) {
	var req refRequest
	if !bind(c, &req) {
		return unit.Ref{}, false
	}
	ref := unit.Ref{ID: strings.TrimSpace(req.ID), Name: strings.TrimSpace(req.Name)}
	if ref.Name == "" && s.resolver != nil {
		if loc, ok := s.resolver.LocationFromID(ref.ID); ok {
			ref.Name, _ = unit.NameFromLocation(loc, s.ext)
		}
	}
	return ref, true
}

func (s *Server) requireGuard(c *gin.Context) bool {
	if s.guard == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "editor hooks disabled"})
		return false
	}
	return true
}

func (s *Server) requireLoader(c *gin.Context) bool {
	if s.loader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "runtime disabled"})
		return false
	}
	return true
}

func bind(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	if err := validate.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return 0, false
	}
	return index, true
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	if relations.IsConflict(err) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "conflict": relations.ConflictMessage(err)})
		return
	}
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, relations.ErrRootNotFound):
		return http.StatusNotFound
	case errors.Is(err, relations.ErrIndexOutOfRange), errors.Is(err, unit.ErrInvalidRef):
		return http.StatusBadRequest
	case errors.Is(err, loader.ErrRootLoad):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
