// Package api exposes the catalog and printer operations over HTTP and
// a websocket event feed.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/estrelametais/label-engine/internal/barcode"
	"github.com/estrelametais/label-engine/internal/catalog"
	"github.com/estrelametais/label-engine/internal/dialect"
	"github.com/estrelametais/label-engine/internal/printer"
)

// companyName is printed on the first line of every label.
const companyName = "ESTRELA METAIS"

// Server is the HTTP API server.
type Server struct {
	router   *gin.Engine
	store    *catalog.Store
	session  *printer.Session
	log      *zap.Logger
	upgrader websocket.Upgrader
	hub      *wsHub
}

// NewServer wires the API around the store and printer session. Session
// events start flowing to websocket clients immediately.
func NewServer(store *catalog.Store, session *printer.Session, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:  gin.New(),
		store:   store,
		session: session,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub: newWSHub(log),
	}

	s.router.Use(gin.Recovery())
	s.session.OnEvent(func(ev printer.Event) {
		s.hub.broadcast(ev)
	})

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/products", s.handleGetProducts)
	s.router.POST("/products", s.handleCreateProduct)
	s.router.GET("/products/:id", s.handleGetProduct)
	s.router.PUT("/products/:id", s.handleUpdateProduct)
	s.router.DELETE("/products/:id", s.handleDeleteProduct)
	s.router.GET("/sequence", s.handleGetSequence)

	s.router.GET("/printers", s.handleListPrinters)
	s.router.POST("/printer/connect", s.handleConnect)
	s.router.POST("/printer/disconnect", s.handleDisconnect)
	s.router.GET("/printer/status", s.handleStatus)
	s.router.POST("/printer/test", s.handleTestConnection)
	s.router.POST("/printer/print", s.handlePrint)
	s.router.POST("/printer/test-pattern", s.handleTestPattern)
	s.router.GET("/printer/settings", s.handleGetSettings)
	s.router.POST("/printer/settings", s.handleSaveSettings)

	s.router.GET("/history", s.handlePrintHistory)

	s.router.GET("/ws", s.handleWebSocket)
}

// Run starts the server on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router, used by httptest in the API tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// fail maps domain errors onto HTTP statuses; the error text is passed
// through verbatim for the operator.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, printer.ErrDeviceNotFound),
		errors.Is(err, printer.ErrEndpointNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrDuplicateCode),
		errors.Is(err, barcode.ErrSequenceExhausted),
		errors.Is(err, printer.ErrNotConnected):
		status = http.StatusConflict
	case errors.Is(err, barcode.ErrInvalidPayload):
		status = http.StatusBadRequest
	}

	s.log.Warn("request failed", zap.Int("status", status), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) handleGetProducts(c *gin.Context) {
	products, err := s.store.GetProducts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) handleCreateProduct(c *gin.Context) {
	var p catalog.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.store.CreateProduct(c.Request.Context(), &p); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := s.store.GetProduct(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleUpdateProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var p catalog.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p.ID = id

	if err := s.store.UpdateProduct(c.Request.Context(), &p); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteProduct(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetSequence(c *gin.Context) {
	seq, err := s.store.CurrentSequence(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sequence": seq})
}

func (s *Server) handleListPrinters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"printers": s.session.ListPrinters()})
}

// handleConnect opens the printer session using the persisted settings,
// optionally overridden by the request body.
func (s *Server) handleConnect(c *gin.Context) {
	cfg, err := s.store.LoadPrinterSettings(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&cfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := s.session.Connect(cfg); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected": true,
		"simulated": s.session.IsSimulated(),
	})
}

func (s *Server) handleDisconnect(c *gin.Context) {
	if err := s.session.Disconnect(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": false})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected": s.session.Connected(),
		"simulated": s.session.IsSimulated(),
	})
}

func (s *Server) handleTestConnection(c *gin.Context) {
	if err := s.session.TestConnection(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type printRequest struct {
	ProductIDs []int64 `json:"product_ids" binding:"required,min=1,max=3"`
}

// handlePrint prints up to three product labels in one pass and records
// the outcome per product in the history.
func (s *Server) handlePrint(c *gin.Context) {
	var req printRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	var labels []dialect.Label
	var products []*catalog.Product
	for _, id := range req.ProductIDs {
		p, err := s.store.GetProduct(ctx, id)
		if err != nil {
			s.fail(c, err)
			return
		}
		products = append(products, p)
		labels = append(labels, dialect.Label{
			Company:     companyName,
			ShortName:   p.NameShort,
			ProductCode: p.ProductCode,
			Barcode:     p.Barcode,
		})
	}

	jobID, err := s.session.Print(labels)

	status := catalog.JobCompleted
	if err != nil {
		status = catalog.JobFailed
	}
	for _, p := range products {
		if rerr := s.store.RecordPrintJob(ctx, p.ID, p.Name, p.ProductCode, status); rerr != nil {
			s.log.Warn("recording print job", zap.Error(rerr))
		}
	}

	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "labels": len(labels)})
}

func (s *Server) handleTestPattern(c *gin.Context) {
	if err := s.session.PrintTestPattern(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	cfg, err := s.store.LoadPrinterSettings(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleSaveSettings(c *gin.Context) {
	var cfg printer.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.store.SavePrinterSettings(c.Request.Context(), cfg); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handlePrintHistory(c *gin.Context) {
	jobs, err := s.store.PrintHistory(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}
