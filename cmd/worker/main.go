package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/assignment"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/dag"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/eventbus"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/executor"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/operator"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/state"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/storage"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/engine"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

const version = "0.5.0"

// cmd/worker is the distributed counterpart to cmd/server: it shares the
// same Postgres-backed storage, DAG Registry, and operator Registry, but
// instead of exposing the HTTP surface it subscribes to
// executor.InstancesPendingSubject over NATS JetStream and drives whatever
// instance IDs arrive (see internal/executor/worker.go). Any number of
// these processes can run side by side; NATS queue-group delivery ensures
// a given pending instance lands on exactly one of them.
func main() {
	log.Printf("Starting Workflow Orchestrator Worker v%s", version)

	natsURL := getEnv("NATS_URL", "nats://localhost:4222")

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

	redisClient := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_HOST", "localhost") + ":" + getEnv("REDIS_PORT", "6379"),
	})
	defer redisClient.Close()

	redisPublisher := state.NewRedisPublisher(redisClient)
	historyPublisher := state.NewHistoryPublisher(db.DB)
	stateManager := state.NewManager(state.NewMultiPublisher(redisPublisher, historyPublisher))

	templateRepo := storage.NewTemplateRepository(db.DB)
	instanceRepo := storage.NewInstanceRepository(db.DB, stateManager)
	eventRepo := storage.NewEventRepository(db.DB)

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

	events := eventbus.New(eventRepo, nil)

	directory := assignment.NewStaticDirectory(
		[]assignment.Team{{TeamID: "default", IsActive: true}},
		map[string][]assignment.Candidate{},
	)
	assignmentService := assignment.New(directory)

	// Same three-way construction cycle cmd/server resolves: operator.Deps
	// needs an InstanceSpawner/InstanceLookup/Assigner backed by the Engine,
	// the Engine needs the Executor. cmd/server builds a LocalExecutor; the
	// Executor here is a DistributedExecutor.
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
	})

	executorCfg := executor.DefaultExecutorConfig()

	dist, err := executor.NewDistributedExecutor(natsURL, registry, instanceRepo, operatorRegistry, stateManager, executorCfg)
	if err != nil {
		log.Fatalf("Failed to connect distributed executor: %v", err)
	}
	dist.WithEventBus(events)

	eng = engine.New(registry, templateRepo, instanceRepo, nil, dist, events, assignmentService)

	worker, err := executor.NewWorker(natsURL, registry, instanceRepo, operatorRegistry, stateManager, executorCfg)
	if err != nil {
		log.Fatalf("Failed to create worker: %v", err)
	}
	worker.WithEventBus(events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dist.Start(ctx); err != nil {
		log.Fatalf("Failed to start distributed executor: %v", err)
	}
	defer dist.Stop(context.Background())

	if err := worker.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	// Child-workflow waits have no external actor to resume them; the
	// reaper republishes them so whichever worker picks the instance up
	// re-checks the child's status and timeout budget.
	reaper, err := executor.NewWaitReaper(executor.DefaultReaperSchedule, instanceRepo, dist)
	if err != nil {
		log.Fatalf("Failed to build wait reaper: %v", err)
	}
	reaper.Start()
	defer reaper.Stop()

	log.Printf("Worker %s started and ready to drive instances", worker.GetID())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), executorCfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := worker.Stop(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Worker stopped successfully")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// engineDeps adapts a not-yet-constructed *engine.Engine to
// operator.InstanceSpawner, operator.InstanceLookup, and operator.Assigner
// at once, mirroring cmd/server's own adapter of the same shape and for the
// same reason: the Registry these Deps feed into must exist before eng does.
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
