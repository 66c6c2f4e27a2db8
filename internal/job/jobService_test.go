package job

import (
	"testing"

	"github.com/akolanti/LayoutAPI/internal/data/store"
	"github.com/akolanti/LayoutAPI/internal/domain/jobModel"
)

func TestInitJobService(t *testing.T) {
	cfg := ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 2),
		RequestCount:      3,
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
		ResultStore:       store.InitInMemoryResultStore(),
	}
	s := InitJobService(cfg)

	if s.JobChannel != cfg.JobChannel || s.DispatcherChannel != cfg.DispatcherChannel {
		t.Error("channels not shared with the config")
	}
	if s.RequestCount != 3 || s.JobStore != cfg.JobStore || s.ResultStore != cfg.ResultStore {
		t.Errorf("service = %+v", s)
	}
}
