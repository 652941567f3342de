package services

import (
	"context"
	"log"

	"gorm.io/gorm"

	"contactos/internal/database"
	"contactos/internal/metrics"
)

// HealthResult reports service status
type HealthResult struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
}

// HealthService implements the health check
type HealthService struct {
	db      *gorm.DB
	service string
}

// NewHealthService creates a new health service
func NewHealthService(db *gorm.DB, service string) *HealthService {
	return &HealthService{db: db, service: service}
}

// Check pings the database and refreshes the connection gauges
func (s *HealthService) Check(ctx context.Context) *HealthResult {
	result := &HealthResult{Status: "healthy", Service: s.service, Database: "ok"}

	if err := database.HealthCheck(s.db.WithContext(ctx)); err != nil {
		log.Printf("[HEALTH] Database check failed: %v", err)
		result.Status = "unhealthy"
		result.Database = "unreachable"
		return result
	}
	if stats, err := database.GetStats(s.db); err == nil {
		metrics.UpdateDBConnections(stats.InUse, stats.Idle)
	}
	return result
}
