package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/proxyfleet/console-server/internal/config"
	"github.com/proxyfleet/console-server/internal/http/handler"
	mw "github.com/proxyfleet/console-server/internal/http/middleware"
	"github.com/proxyfleet/console-server/internal/nodeagent"
	"github.com/proxyfleet/console-server/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	RedisAddr         string `yaml:"redis_address"`
	ConsoleServerAddr string `yaml:"console_server_address"`
	Port              string `yaml:"port"`
	AdminToken        string `yaml:"admin_token"`
	AgentTimeoutSec   int    `yaml:"agent_timeout_sec"`
}

var serverConfig *Config

func init() {
	// Handle version display
	handleVersion()
}

func main() {
	// Read env
	isDev := os.Getenv("ENV") == "dev"

	// Load config
	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Create Zap logger
	log := buildLogger()
	defer log.Sync()
	log = log.Named("main")

	// Create Gin router
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer() // Configure Gin's logger to use Zap
	r := gin.New()

	// Build services
	rdb := buildRedisClient(serverConfig.RedisAddr, 0)
	agent := nodeagent.NewHTTPClient(log, time.Duration(serverConfig.AgentTimeoutSec)*time.Second)

	usersvc, err := service.NewUserService(context.TODO(), log, rdb)
	if err != nil {
		log.Fatal("user service creation failed", zap.Error(err))
	}
	nodesvc, err := service.NewNodeService(context.TODO(), log, rdb)
	if err != nil {
		log.Fatal("node service creation failed", zap.Error(err))
	}
	groupsvc, err := service.NewGrantGroupService(context.TODO(), log, rdb)
	if err != nil {
		log.Fatal("grant group service creation failed", zap.Error(err))
	}
	epsvc, err := service.NewEndpointService(context.TODO(), log, rdb, nodesvc, agent)
	if err != nil {
		log.Fatal("endpoint service creation failed", zap.Error(err))
	}
	authsvc, err := service.NewAuthService(log, serverConfig.AdminToken)
	if err != nil {
		log.Fatal("auth service creation failed", zap.Error(err))
	}
	summarysvc := service.NewQuotaSummaryService(log, usersvc, nodesvc, agent, service.QuotaSummaryOptions{
		AllowStaleOnError: true,
	})

	// Apply Gin middlewares
	{
		r.Use(gin.Recovery()) // Recovery first (outermost)
		r.Use(mw.RequestID()) // Attach request ID for tracing; early in the chain so it's available everywhere

		if isDev { // Enable CORS for local Vite dev
			r.Use(cors.New(cors.Config{
				AllowOrigins:     []string{"http://localhost:5173", "http://localhost:4173", "http://localhost:3000", "http://127.0.0.1:3000", "https://" + serverConfig.ConsoleServerAddr},
				AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"X-Request-ID", "Content-Type", "Authorization"},
				ExposeHeaders:    []string{"X-Request-ID", "X-Cache", "X-Summary-Generated-At"},
				AllowCredentials: true,
				MaxAge:           12 * time.Hour,
			}))
		} else { // Behind Nginx + TLS
			r.SetTrustedProxies([]string{"127.0.0.1", serverConfig.ConsoleServerAddr})
			r.Use(secure.New(secure.Config{
				SSLProxyHeaders: map[string]string{
					"X-Forwarded-Proto": "https", // Fix scheme for secure cookies
				},
			}))
		}

		r.Use(accessLog(log))

		r.Use(func(c *gin.Context) {
			// Enforce a hard 10MB max request body.
			// Protects against oversized or drip-fed request body ("slow body" / RUDY DoS)
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 10<<20)
			c.Next()
		})
	}

	// Register route handlers
	{
		// --- Public endpoints (no auth) ---
		{
			r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

			// Token check before the console stores it client-side.
			r.POST("/admin/auth/verify", handler.NewAuthHandler(log, authsvc).VerifyToken)
		}

		// --- Protected endpoints (admin token required) ---
		{
			admins := r.Group("/admin", mw.RequireAdminToken(authsvc))

			{
				usershndlr := handler.NewUsersHandler(log, usersvc, summarysvc)
				admins.POST("/users", usershndlr.CreateUser)       // create one
				admins.GET("/users", usershndlr.GetUserList)       // get list
				admins.GET("/users/:id", usershndlr.GetUser)       // get one
				admins.DELETE("/users/:id", usershndlr.DeleteUser) // delete one

				// Fleet-wide quota picture; each cache miss fans out to every
				// node agent, so cap concurrent entries.
				quotahndlr := handler.NewQuotaHandler(log, summarysvc)
				admins.GET("/users/quota-summaries", mw.LimitConcurrentRequests(16), quotahndlr.GetQuotaSummaries)
			}

			{
				nodeshndlr := handler.NewNodesHandler(log, nodesvc, summarysvc)
				admins.POST("/nodes", nodeshndlr.CreateNode)       // create one
				admins.GET("/nodes", nodeshndlr.GetNodeList)       // get list
				admins.DELETE("/nodes/:id", nodeshndlr.DeleteNode) // delete one
			}

			{
				groupshndlr := handler.NewGrantGroupsHandler(log, groupsvc)
				admins.POST("/grant-groups", groupshndlr.CreateGrantGroup)       // create one
				admins.GET("/grant-groups", groupshndlr.GetGrantGroupList)       // get list
				admins.DELETE("/grant-groups/:id", groupshndlr.DeleteGrantGroup) // delete one
			}

			{
				epshndlr := handler.NewEndpointsHandler(log, epsvc)
				admins.POST("/endpoints", epshndlr.CreateEndpoint)    // provision one
				admins.GET("/endpoints", epshndlr.GetEndpointList)    // get list
				admins.GET("/endpoints/:id", epshndlr.GetEndpoint)    // get one
			}
		}
	}

	httpsrv := &http.Server{
		Addr:              serverConfig.ConsoleServerAddr + ":" + serverConfig.Port,
		Handler:           r,
		ReadHeaderTimeout: 2 * time.Second,  // kills header-drip Slowloris
		ReadTimeout:       10 * time.Second, // full request read (incl. body)
		WriteTimeout:      15 * time.Second, // avoid forever-hangs on writes
		IdleTimeout:       60 * time.Second, // keep-alive cap
		MaxHeaderBytes:    1 << 20,          // 1MB cap
	}

	log.Info("running HTTP server", zap.String("addr", httpsrv.Addr))
	if err := httpsrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", zap.Error(err))
	}
	log.Info("server closed")
}

// handleVersion prints build metadata and exits when -v/--version is provided.
func handleVersion() {
	v := flag.Bool("v", false, "print version and exit")
	flag.BoolVar(v, "version", false, "print version and exit")
	flag.Parse()

	if *v {
		fmt.Printf("console-server %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}
}

// accessLog is a Gin middleware that records HTTP request/response details with Zap after handling.
func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		// collect all errors from Gin context
		var errs []error
		for _, ge := range c.Errors {
			if ge.Err != nil {
				errs = append(errs, ge.Err)
			}
		}
		// errors.Join returns nil if errs is empty
		joinedErr := errors.Join(errs...)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Duration("latency", latency),
			zap.String("request_id", mw.GetRequestID(c)),
		}
		if joinedErr != nil {
			fields = append(fields, zap.Error(joinedErr))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// helpers

func buildLogger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level.SetLevel(zap.DebugLevel)
	return zap.Must(logConfig.Build())
}

func buildRedisClient(addr string, db int) *redis.Client {
	opts := &redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	}

	return redis.NewClient(opts)
}

func loadConfig() error {
	data, err := os.ReadFile("console-server.yaml")
	if err != nil {
		return err
	}

	err = yaml.Unmarshal(data, &serverConfig)
	if err != nil {
		return err
	}

	return nil
}
