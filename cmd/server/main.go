package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/assignment"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/dag"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/dlq"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/eventbus"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/executor"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/hook"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/operator"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/state"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/storage"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/api/dto"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/api/handlers"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/api/middleware"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/engine"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

const version = "0.7.0"

func main() {
	log.Printf("Starting Workflow Orchestrator Server v%s", version)

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbCfg := &storage.Config{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        getEnv("DB_PORT", "5432"),
		User:        getEnv("DB_USER", "workflow"),
		Password:    getEnv("DB_PASSWORD", "workflow_dev_password"),
		DBName:      getEnv("DB_NAME", "workflow_orchestrator"),
		SSLMode:     getEnv("DB_SSLMODE", "disable"),
		MaxConns:    25,
		MinConns:    5,
		MaxIdleTime: 5 * time.Minute,
		MaxLifetime: 30 * time.Minute,
	}

	db, err := storage.NewDB(dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrateCfg := &storage.MigrateConfig{
		Host:     dbCfg.Host,
		Port:     dbCfg.Port,
		User:     dbCfg.User,
		Password: dbCfg.Password,
		DBName:   dbCfg.DBName,
		SSLMode:  dbCfg.SSLMode,
	}
	if err := storage.RunMigrations(migrateCfg, "./migrations"); err != nil {
		log.Printf("Warning: Failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", getEnv("REDIS_HOST", "localhost"), getEnv("REDIS_PORT", "6379")),
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
	}

	// State management: transitions broadcast over Redis for live
	// dashboards and persisted to a history table for audit.
	redisPublisher := state.NewRedisPublisher(redisClient)
	historyPublisher := state.NewHistoryPublisher(db.DB)
	multiPublisher := state.NewMultiPublisher(redisPublisher, historyPublisher)
	stateManager := state.NewManager(multiPublisher)

	// Repositories
	templateRepo := storage.NewTemplateRepository(db.DB)
	instanceRepo := storage.NewInstanceRepository(db.DB, stateManager)
	eventRepo := storage.NewEventRepository(db.DB)
	hookRepo := storage.NewHookRepository(db.DB)

	// DAG Registry, rebuilt from the Template Repository on startup so a
	// restart doesn't lose previously registered templates.
	registry := dag.NewRegistry()
	existing, err := templateRepo.ListTemplates(context.Background(), storage.TemplateFilters{})
	if err != nil {
		log.Printf("Warning: Failed to load templates from storage: %v", err)
	}
	for _, tmpl := range existing {
		if err := registry.RegisterTemplate(tmpl); err != nil {
			log.Printf("Warning: Failed to re-register template %s/%s: %v", tmpl.DAGID, tmpl.Version, err)
		}
	}
	log.Printf("DAG Registry loaded %d templates", len(existing))

	// Event Bus
	events := eventbus.New(eventRepo, nil)

	// Assignment Service. StaticDirectory stands in for the org-chart
	// system a real deployment would plug in here.
	directory := assignment.NewStaticDirectory(
		[]assignment.Team{{TeamID: "default", IsActive: true}},
		map[string][]assignment.Candidate{},
	)
	assignmentService := assignment.New(directory)

	// Engine facade: wires the Registry/repositories/Executor/Event Bus/
	// Assignment Service behind one programmatic surface. The Executor
	// field is filled in once localExecutor exists below — Engine.New
	// takes it directly, so engine construction happens after the
	// Executor is built.
	concurrencyManager := executor.NewConcurrencyManager(&executor.ConcurrencyConfig{
		MaxGlobalInstances:         500,
		DefaultTemplateConcurrency: 50,
		RedisClient:                redisClient,
		LockTTL:                    30 * time.Second,
	})

	dlqManager := dlq.NewManager(dlq.NewMemoryQueue(), 10)

	executorCfg := executor.DefaultExecutorConfig()
	executorCfg.WorkerCount = 8

	// operator.Deps needs an InstanceSpawner/InstanceLookup/Assigner backed
	// by the Engine, but the Engine needs the Executor, and the Executor
	// needs the operator Registry these Deps are wired into — a three-way
	// cycle. engineDeps breaks it by closing over a pointer to eng instead
	// of eng itself: the Registry is built and handed to the Executor
	// before eng exists, and eng is assigned into the same variable the
	// already-constructed Deps are watching, before any operator ever
	// runs (Execute calls only start once localExecutor.Start is called,
	// further down).
	var eng *engine.Engine
	engDeps := engineDeps{eng: &eng}

	integrationAdapter := operator.NewGuardedIntegrationAdapter(
		operator.NewHTTPIntegrationAdapter(getEnv("INTEGRATION_BASE_URL", "http://localhost:9090"), nil),
		nil,
	)

	operatorRegistry := operator.NewRegistry(operator.Deps{
		EventPublisher:     events,
		InstanceSpawner:    engDeps,
		InstanceLookup:     engDeps,
		Assigner:           engDeps,
		IntegrationAdapter: integrationAdapter,
		// EntityService left nil: no concrete entity system is wired into
		// this deployment yet. EntityValidationOperator tasks are simply
		// not exercised until one is.
	})

	localExecutor := executor.NewLocalExecutor(registry, instanceRepo, operatorRegistry, stateManager, executorCfg).
		WithConcurrencyManager(concurrencyManager).
		WithDeadLetterQueue(dlqManager).
		WithEventBus(events)

	eng = engine.New(registry, templateRepo, instanceRepo, hookRepo, localExecutor, events, assignmentService)

	hookEngine := hook.New(hookRepo, eventRepo, eng.InstanceCreator(), eng.Assigner(), registryTemplateExistence{registry}, nil)
	eng.AttachHookEngine(hookEngine)

	execCtx := context.Background()
	if err := localExecutor.Start(execCtx); err != nil {
		log.Printf("Warning: Failed to start executor: %v", err)
	}
	defer localExecutor.Stop(execCtx)

	// Child-workflow waits have no external actor to resume them; the
	// reaper pokes them periodically so the parent re-checks the child's
	// status and timeout budget.
	reaper, err := executor.NewWaitReaper(executor.DefaultReaperSchedule, instanceRepo, localExecutor)
	if err != nil {
		log.Fatalf("Failed to build wait reaper: %v", err)
	}
	reaper.Start()
	defer reaper.Stop()

	log.Printf("Database initialized successfully")
	log.Printf("Executor started with %d workers", executorCfg.WorkerCount)

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger(logger))

	engineHandler := handlers.NewEngineHandler(eng)

	router.GET("/health", func(c *gin.Context) {
		dbHealthy := db.Health(c.Request.Context()) == nil
		redisHealthy := redisClient.Ping(c.Request.Context()).Err() == nil

		status := "healthy"
		services := map[string]string{"database": "healthy", "redis": "healthy", "executor": "healthy"}
		if !dbHealthy {
			status = "degraded"
			services["database"] = "unhealthy"
		}
		if !redisHealthy {
			status = "degraded"
			services["redis"] = "unhealthy"
		}
		if !localExecutor.GetStatus().Running {
			status = "degraded"
			services["executor"] = "stopped"
		}

		c.JSON(http.StatusOK, dto.HealthResponse{Status: status, Services: services})
	})

	jwtConfig := middleware.DefaultJWTConfig()

	public := router.Group("/api/v1")
	{
		public.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version})
		})
	}

	api := router.Group("/api/v1")
	api.Use(middleware.OptionalAuth(jwtConfig))
	api.Use(middleware.GlobalRateLimiter.RateLimit())

	templates := api.Group("/templates")
	{
		templates.POST("", engineHandler.CreateTemplate)
	}

	instances := api.Group("/instances")
	{
		instances.POST("", engineHandler.CreateInstance)
		instances.GET("", engineHandler.ListInstances)
		instances.GET("/:id", engineHandler.GetInstance)
		instances.POST("/:id/start", engineHandler.StartInstance)
		instances.POST("/:id/cancel", engineHandler.CancelInstance)
		instances.POST("/:id/tasks/:task_id/input", engineHandler.SubmitInput)
	}

	hooks := api.Group("/hooks")
	{
		hooks.POST("", engineHandler.RegisterHook)
		hooks.GET("", engineHandler.ListHooks)
		hooks.DELETE("/:id", engineHandler.UnregisterHook)
	}

	eventsRoutes := api.Group("/events")
	{
		eventsRoutes.POST("", engineHandler.PublishEvent)
	}

	log.Printf("Server listening on port %s in %s mode", port, env)
	if err := router.Run(fmt.Sprintf(":%s", port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// registryTemplateExistence adapts *dag.Registry to hook.TemplateExistence,
// mirroring pkg/engine's own unexported adapter of the same shape.
type registryTemplateExistence struct {
	registry *dag.Registry
}

func (r registryTemplateExistence) Exists(ctx context.Context, dagID string) bool {
	_, err := r.registry.GetTemplate(dagID, "")
	return err == nil
}

// engineDeps adapts a not-yet-constructed *engine.Engine to
// operator.InstanceSpawner, operator.InstanceLookup, and operator.Assigner
// at once, resolving eng lazily on each call instead of at construction
// time. See the comment where it's built in main for why this indirection
// exists.
type engineDeps struct {
	eng **engine.Engine
}

func (d engineDeps) CreateInstance(dagID, version, userID string, initialData map[string]interface{}) (*models.Instance, error) {
	return (*d.eng).InstanceSpawner().CreateInstance(dagID, version, userID, initialData)
}

func (d engineDeps) GetInstance(ctx context.Context, instanceID string) (*models.Instance, error) {
	return (*d.eng).GetInstance(ctx, instanceID)
}

func (d engineDeps) AssignInstance(ctx context.Context, instance *models.Instance, strategy models.AssignmentStrategy) error {
	return (*d.eng).Assigner().AssignInstance(ctx, instance, strategy)
}
