// The public migration portal API. Submission and status routes are
// open, statistics sit behind basic auth, metrics are for the
// scrapers.

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"

	"github.com/docknetwork/migration-go/intake"
	"github.com/docknetwork/migration-go/state"
)

const (
	ROUTE_MIGRATE            = "/migrate"
	ROUTE_MIGRATE_WITH_BONUS = "/migrate_with_bonus"
	ROUTE_STATUS             = "/status"
	ROUTE_STATISTICS         = "/statistics"
	ROUTE_METRICS            = "/metrics"

	// A submission is a 68 byte base58-check payload plus a 65 byte
	// base58 signature wrapped in a small JSON object; anything bigger
	// is garbage.
	defaultBodyLimit = 512
)

type Config struct {
	ServerIP   string
	ServerPort string

	// CORSOrigin allowed on the public routes.
	CORSOrigin string

	// BodyLimit in bytes; defaultBodyLimit when zero.
	BodyLimit int64

	// Basic auth for the statistics route.
	StatsUser string
	StatsKey  string
}

type HttpServer struct {
	cfg     *Config
	handler *intake.Handler
	db      *state.StateDB
}

func NewHttpServer(cfg *Config, handler *intake.Handler, db *state.StateDB) *HttpServer {
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = defaultBodyLimit
	}
	return &HttpServer{cfg: cfg, handler: handler, db: db}
}

// migrationBody is the submission JSON on both migrate routes.
type migrationBody struct {
	Payload   string `json:"payload" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type statusBody struct {
	Address string `json:"address"`
	TxnHash string `json:"txnHash"`
}

// Hook up routes & handlers
func (h *HttpServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(h.limitBody)
	router.Use(h.cors)

	router.POST(ROUTE_MIGRATE, h.onMigration)
	router.POST(ROUTE_MIGRATE_WITH_BONUS, h.onMigrationWithBonus)
	router.POST(ROUTE_STATUS, h.onStatus)

	stats := router.Group(ROUTE_STATISTICS, gin.BasicAuth(gin.Accounts{
		h.cfg.StatsUser: h.cfg.StatsKey,
	}))
	stats.GET("", h.onStatistics)

	router.GET(ROUTE_METRICS, gin.WrapH(promhttp.Handler()))
	return router
}

// Hook up router & ip:port
func (h *HttpServer) Run() error {
	router := h.SetupRouter()
	address := h.cfg.ServerIP + ":" + h.cfg.ServerPort
	logger.WithField("address", address).Info("migration API listening")
	return router.Run(address)
}

func (h *HttpServer) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.BodyLimit)
	c.Next()
}

func (h *HttpServer) cors(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", h.cfg.CORSOrigin)
	c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")
	c.Next()
}

func (h *HttpServer) onMigration(c *gin.Context) {
	h.processMigration(c, false)
}

func (h *HttpServer) onMigrationWithBonus(c *gin.Context) {
	h.processMigration(c, true)
}

func (h *HttpServer) processMigration(c *gin.Context, withBonus bool) {
	var body migrationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload and signature must be supplied"})
		return
	}

	_, err := h.handler.SubmitRequest(body.Payload, body.Signature, withBonus)
	if err != nil {
		if errors.Is(err, state.ErrDuplicateRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a request for this transaction has already been submitted"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": nil})
}

func (h *HttpServer) onStatus(c *gin.Context) {
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address and txnHash must be supplied"})
		return
	}

	ethAddress, txnHash, err := h.handler.ValidateStatusQuery(body.Address, body.TxnHash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.db.GetRequest(ethAddress, txnHash)
	if err != nil {
		if errors.Is(err, state.ErrRequestNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no request found for this address and transaction"})
			return
		}
		logger.WithError(err).Error("status lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"error":   nil,
		"details": PrepareStatusDetails(req),
	})
}

func (h *HttpServer) onStatistics(c *gin.Context) {
	stats, err := h.db.GetStats()
	if err != nil {
		logger.WithError(err).Error("statistics lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
