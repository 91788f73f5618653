package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/tradejournal/internal/database"
	"github.com/aristath/tradejournal/internal/reliability"
	"github.com/aristath/tradejournal/internal/scheduler"
	"github.com/aristath/tradejournal/internal/version"
)

// SystemHandlers serves runtime, database and maintenance status
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	manager   *database.Manager
	scheduler *scheduler.Scheduler
	backups   *reliability.BackupService
	startedAt time.Time

	cpuPercent func(interval time.Duration, percpu bool) ([]float64, error)
	memory     func() (*mem.VirtualMemoryStat, error)
	diskUsage  func(path string) (*disk.UsageStat, error)
}

// NewSystemHandlers creates system handlers. scheduler and backups may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	manager *database.Manager,
	sched *scheduler.Scheduler,
	backups *reliability.BackupService,
) *SystemHandlers {
	return &SystemHandlers{
		log:        log.With().Str("handler", "system").Logger(),
		dataDir:    dataDir,
		manager:    manager,
		scheduler:  sched,
		backups:    backups,
		startedAt:  time.Now(),
		cpuPercent: cpu.Percent,
		memory:     mem.VirtualMemory,
		diskUsage:  disk.Usage,
	}
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string              `json:"status"`
	Version       string              `json:"version"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	GoVersion     string              `json:"go_version"`
	Goroutines    int                 `json:"goroutines"`
	CPUPercent    float64             `json:"cpu_percent"`
	MemoryPercent float64             `json:"memory_percent"`
	Disk          *DiskUsageResponse  `json:"disk,omitempty"`
	Database      *DatabaseStatus     `json:"database"`
	Jobs          []scheduler.JobInfo `json:"jobs,omitempty"`
	LastChecked   string              `json:"last_checked"`
}

// DiskUsageResponse represents disk usage of the data directory's filesystem
type DiskUsageResponse struct {
	Path        string  `json:"path"`
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// DatabaseStatus describes the journal connection
type DatabaseStatus struct {
	Name     string          `json:"name"`
	Path     string          `json:"path"`
	Open     bool            `json:"open"`
	Driver   string          `json:"driver,omitempty"`
	OpenedAt string          `json:"opened_at,omitempty"`
	Stats    *database.Stats `json:"stats,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// GetSystemStatusSnapshot collects the current system status.
// Status is "degraded" when the database is unreachable.
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) SystemStatusResponse {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		Version:       version.Version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Disk:          h.getDiskUsage(),
		Database:      h.databaseStatus(ctx),
		LastChecked:   time.Now().Format(time.RFC3339),
	}
	if h.scheduler != nil {
		response.Jobs = h.scheduler.Jobs()
	}
	if response.Database.Error != "" {
		response.Status = "degraded"
	}

	return response
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")
	writeJSON(w, http.StatusOK, h.GetSystemStatusSnapshot(r.Context()), h.log)
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	status := h.databaseStatus(r.Context())
	if status.Error != "" {
		writeJSON(w, http.StatusServiceUnavailable, status, h.log)
		return
	}
	writeJSON(w, http.StatusOK, status, h.log)
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobInfo{}
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	}, h.log)
}

// HandleRunJob handles POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request, name string) {
	if h.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Scheduler not running", h.log)
		return
	}

	found := false
	for _, job := range h.scheduler.Jobs() {
		if job.Name == name {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "Unknown job: "+name, h.log)
		return
	}

	if err := h.scheduler.RunNow(name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), h.log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed", "job": name}, h.log)
}

// HandleListBackups handles GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, http.StatusServiceUnavailable, "Backups not configured", h.log)
		return
	}

	backups, err := h.backups.ListBackups(h.manager.Name())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		writeError(w, http.StatusInternalServerError, err.Error(), h.log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"backups": backups,
		"count":   len(backups),
	}, h.log)
}

// HandleCreateBackup handles POST /api/system/backups
func (h *SystemHandlers) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, http.StatusServiceUnavailable, "Backups not configured", h.log)
		return
	}

	info, err := h.backups.CreateBackup(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		writeError(w, http.StatusInternalServerError, err.Error(), h.log)
		return
	}
	writeJSON(w, http.StatusCreated, info, h.log)
}

func (h *SystemHandlers) databaseStatus(ctx context.Context) *DatabaseStatus {
	if h.manager == nil {
		return &DatabaseStatus{Error: "database not configured"}
	}

	status := &DatabaseStatus{Name: h.manager.Name(), Path: h.manager.Path()}
	db, err := h.manager.EnsureConnection(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	status.Open = true
	status.Driver = string(db.Driver())
	status.OpenedAt = db.OpenedAt().Format(time.RFC3339)

	if err := db.QuickCheck(ctx); err != nil {
		status.Error = err.Error()
		return status
	}
	stats, err := db.GetStats(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get database stats")
		status.Error = err.Error()
		return status
	}
	status.Stats = stats

	return status
}

func (h *SystemHandlers) getDiskUsage() *DiskUsageResponse {
	if h.dataDir == "" {
		return nil
	}
	usage, err := h.diskUsage(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Str("dir", h.dataDir).Msg("Failed to get disk usage")
		return nil
	}
	return &DiskUsageResponse{
		Path:        h.dataDir,
		TotalBytes:  usage.Total,
		FreeBytes:   usage.Free,
		UsedPercent: usage.UsedPercent,
	}
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short interval (100ms) so the status call stays fast
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := h.cpuPercent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	// Get memory statistics (instant, no blocking)
	memStat, err := h.memory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
