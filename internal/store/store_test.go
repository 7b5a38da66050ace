package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"wms-sap-sync/pkg/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), &Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		enabled bool
	}{
		{name: "sqlite", config: Config{Driver: DriverSQLite, DSN: "runs.db"}, enabled: true},
		{name: "postgres", config: Config{Driver: DriverPostgres, DSN: "postgres://localhost/runs"}, enabled: true},
		{name: "no dsn", config: Config{Driver: DriverSQLite}},
		{name: "unknown driver", config: Config{Driver: "mysql", DSN: "x"}, wantErr: true, enabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := tt.config.Enabled(); got != tt.enabled {
				t.Errorf("Enabled() = %v, want %v", got, tt.enabled)
			}
		})
	}
}

func TestOpenInvalidDriver(t *testing.T) {
	_, err := Open(context.Background(), &Config{Driver: "oracle", DSN: "x"})
	if !errors.IsCategory(err, errors.CategoryConfiguration) {
		t.Fatalf("Open() error = %v, want configuration error", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := &SyncRun{
		StartedAt:  time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		WMSFile:    "WMS.xlsx",
		SAPFile:    "SAP.xlsx",
		POFile:     "036.xls",
		OutputFile: "Check_Sync_WMS_vs_SAP.xlsx",
	}
	if err := s.StartRun(ctx, run); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if run.ID == 0 {
		t.Fatal("StartRun() did not assign an ID")
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != StatusRunning {
		t.Errorf("Status = %q, want %q", got.Status, StatusRunning)
	}
	if got.FinishedAt != nil {
		t.Errorf("FinishedAt = %v, want nil", got.FinishedAt)
	}
	if got.WMSFile != "WMS.xlsx" || got.POFile != "036.xls" {
		t.Errorf("files = %q/%q", got.WMSFile, got.POFile)
	}

	run.Status = StatusSuccess
	run.NoPORows = 12
	run.NoPOMismatches = 3
	run.WithPORows = 5
	run.WithPOMismatches = 1
	if err := s.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	got, err = s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", got.Status, StatusSuccess)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
	if got.NoPORows != 12 || got.NoPOMismatches != 3 || got.WithPORows != 5 || got.WithPOMismatches != 1 {
		t.Errorf("counts = %+v", got)
	}
}

func TestFinishRunUnknown(t *testing.T) {
	s := openTestStore(t)

	err := s.FinishRun(context.Background(), &SyncRun{ID: 42, Status: StatusFailed})
	reconcilerErr, ok := errors.AsReconcilerError(err)
	if !ok || reconcilerErr.Code != errors.CodeRecordNotFound {
		t.Fatalf("FinishRun() error = %v, want %s", err, errors.CodeRecordNotFound)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetRun(context.Background(), 7)
	reconcilerErr, ok := errors.AsReconcilerError(err)
	if !ok || reconcilerErr.Code != errors.CodeRecordNotFound {
		t.Fatalf("GetRun() error = %v, want %s", err, errors.CodeRecordNotFound)
	}
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := s.StartRun(ctx, &SyncRun{WMSFile: "WMS.xlsx"}); err != nil {
			t.Fatalf("StartRun() error = %v", err)
		}
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "limited", limit: 2, want: 2},
		{name: "more than stored", limit: 50, want: 4},
		{name: "zero uses default", limit: 0, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(ctx, tt.limit)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(runs) != tt.want {
				t.Fatalf("len(runs) = %d, want %d", len(runs), tt.want)
			}
			for i := 1; i < len(runs); i++ {
				if runs[i-1].ID < runs[i].ID {
					t.Errorf("runs not newest first: %d before %d", runs[i-1].ID, runs[i].ID)
				}
			}
		})
	}
}
