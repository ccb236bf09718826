package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/mohitkumar/conveyor/analytics"
	"github.com/mohitkumar/conveyor/config"
	"github.com/mohitkumar/conveyor/engine"
	"github.com/mohitkumar/conveyor/executor"
	"github.com/mohitkumar/conveyor/logger"
	"github.com/mohitkumar/conveyor/metadata"
	"github.com/mohitkumar/conveyor/persistence"
	"github.com/mohitkumar/conveyor/persistence/inmem"
	"github.com/mohitkumar/conveyor/persistence/redis"
	"github.com/mohitkumar/conveyor/rest"
	"github.com/mohitkumar/conveyor/scheduler"
	"github.com/mohitkumar/conveyor/secret"
	"github.com/mohitkumar/conveyor/service"
)

type Agent struct {
	Config                   config.Config
	metadataStorage          persistence.MetadataStorage
	runArchive               persistence.RunArchive
	metadataService          metadata.MetadataService
	registry                 *executor.Registry
	engine                   *engine.Engine
	workflowExecutionService *service.WorkflowExecutionService
	httpServer               *rest.Server
	shutdown                 bool
	shutdowns                chan struct{}
	shutdownLock             sync.Mutex
	wg                       sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config:    config,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.setupLogger,
		a.setupAnalytics,
		a.setupStorage,
		a.setupMetadataService,
		a.setupRunnerRegistry,
		a.setupEngine,
		a.setupExecutionService,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupLogger() error {
	logger.InitLogger(a.Config.LogDebug)
	return nil
}

func (a *Agent) setupAnalytics() error {
	if err := analytics.InitDataCollector(a.Config.AnalyticsConfig, &a.wg); err != nil {
		return err
	}
	return analytics.RegisterMetricViews()
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		rdConf := redis.Config{
			Addrs:            a.Config.RedisConfig.Addrs,
			Namespace:        a.Config.RedisConfig.Namespace,
			PoolSize:         a.Config.RedisConfig.PoolSize,
			Password:         a.Config.RedisConfig.Password,
			ArchiveRetention: time.Duration(a.Config.ArchiveRetentionHours) * time.Hour,
		}
		a.metadataStorage = redis.NewRedisMetadataStorage(rdConf)
		a.runArchive = redis.NewRedisRunArchive(rdConf)
	case config.STORAGE_TYPE_INMEM:
		a.metadataStorage = inmem.NewInMemoryMetadataStorage()
		a.runArchive = inmem.NewInMemoryRunArchive(time.Duration(a.Config.ArchiveRetentionHours) * time.Hour)
	default:
		return fmt.Errorf("unsupported storage implementation %s", a.Config.StorageType)
	}
	return nil
}

func (a *Agent) setupMetadataService() error {
	a.metadataService = metadata.NewMetadataService(a.metadataStorage)
	return nil
}

func (a *Agent) setupRunnerRegistry() error {
	a.registry = executor.NewRegistry()
	a.registry.Register(executor.NewShellRunner(""))
	a.registry.Register(executor.NewScriptRunner())
	return nil
}

func (a *Agent) setupEngine() error {
	slotWait := time.Duration(a.Config.SlotWaitSeconds) * time.Second
	pool := scheduler.NewSlotPool(a.Config.SlotCount, slotWait)
	a.engine = engine.NewEngine(a.metadataService, a.runArchive, pool, a.registry,
		secret.NewEnvProvider(), a.Config.MaxParallelJobs, &a.wg)
	a.engine.Start()
	return nil
}

func (a *Agent) setupExecutionService() error {
	a.workflowExecutionService = service.NewWorkflowExecutionService(a.engine, a.metadataService)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.metadataService, a.workflowExecutionService)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	var err error
	go func() error {
		err = a.httpServer.Start()
		if err != nil {
			_ = a.Shutdown()
			panic(err)
		}
		return nil
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		a.httpServer.Stop,
		func() error {
			a.engine.Stop()
			return nil
		},
		func() error {
			analytics.StopDataCollector()
			return nil
		},
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}
