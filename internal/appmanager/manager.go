package appmanager

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"DexRecon/internal/jobs"
	"DexRecon/internal/logger"
	"DexRecon/internal/serviceiface"

	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

var db *sql.DB
var pgxPool *pgxpool.Pool

func SetDB(database *sql.DB) {
	db = database
}

func SetPgxPool(pool *pgxpool.Pool) {
	pgxPool = pool
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return db
}

// GetPgxPool returns the pgx pool connection
func GetPgxPool() *pgxpool.Pool {
	return pgxPool
}

var serviceConstructors = map[string]func(map[string]interface{}) serviceiface.Service{
	"logger": func(cfg map[string]interface{}) serviceiface.Service {
		return logger.NewLoggerService(cfg)
	},
	"cron": func(cfg map[string]interface{}) serviceiface.Service {
		return jobs.NewCronService(cfg, pgxPool, db)
	},
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	mu       sync.Mutex
}

func NewAppManager() *AppManager {
	return &AppManager{
		services: make([]serviceiface.Service, 0),
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()

	for _, service := range am.services {
		fmt.Println("Starting service:", service.Name())
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
	}
	return nil
}

func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	for i := len(am.services) - 1; i >= 0; i-- {
		svc := am.services[i]
		if err := svc.Stop(); err != nil {
			return fmt.Errorf("failed to stop service %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// ------------------- YAML CONFIG -------------------

type ServiceSequencer struct {
	Services []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Config     map[string]interface{} `yaml:"config"`
}

func LoadServiceSequence(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seq ServiceSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, err
	}

	// sort by start_order
	sort.Slice(seq.Services, func(i, j int) bool {
		return seq.Services[i].StartOrder < seq.Services[j].StartOrder
	})

	return seq.Services, nil
}

func (am *AppManager) AutoRegisterServices(configs []ServiceConfig) {
	for _, svc := range configs {
		if constructor, ok := serviceConstructors[svc.Name]; ok {
			am.RegisterService(constructor(svc.Config))
		}
	}

	for _, svc := range am.services {
		if l, ok := svc.(*logger.LoggerService); ok {
			logger.SetGlobalLogger(l)
			break
		}
	}
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	for _, svc := range am.services {
		if svc.Name() == name {
			return svc
		}
	}
	return nil
}
