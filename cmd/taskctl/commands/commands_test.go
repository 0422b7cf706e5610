package commands

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benvon/smart-todo-sync/internal/apperrors"
	"github.com/benvon/smart-todo-sync/internal/models"
	"github.com/benvon/smart-todo-sync/internal/remote/remotetest"
)

// run executes the root command and returns stdout and stderr
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func setupEnv(t *testing.T, srv *remotetest.Server) {
	t.Helper()
	for _, key := range []string{"TASKS_CONFIG_FILE", "CACHE_BACKEND", "REMINDER_INTERVAL", "HTTP_TIMEOUT", "DEBUG_MODE", "OTEL_ENABLED", "NOTIFY_DISPLAY"} {
		t.Setenv(key, "")
	}
	t.Setenv("TASKS_BASE_URL", srv.URL)
	t.Setenv("TASKS_AUTH_TOKEN", remotetest.Token)
	t.Setenv("STATE_DB_PATH", filepath.Join(t.TempDir(), "state", "state.db"))
	t.Setenv("NOTIFY_PERMISSION", "granted")
}

func TestNextCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "cron rule",
			args: []string{"next", "endDate", "0 9 * * MON", "2024-01-01T00:00:00Z"},
			want: "2024-01-01T09:00:00Z\n",
		},
		{
			name: "offset rule with count",
			args: []string{"next", "completionDate", "D3", "2024-01-01", "--count", "2"},
			want: "2024-01-04T00:00:00Z\n2024-01-07T00:00:00Z\n",
		},
		{name: "unknown type", args: []string{"next", "weekly", "D3", "2024-01-01"}, wantErr: true},
		{name: "bad cron", args: []string{"next", "endDate", "not cron", "2024-01-01"}, wantErr: true},
		{name: "bad anchor", args: []string{"next", "completionDate", "D3", "tomorrow"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestTasksWorkflow(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()
	srv.SeedTag(models.Tag{ID: 1, Name: "home"})
	setupEnv(t, srv)

	if _, _, err := run(t, "tags", "list"); err != nil {
		t.Fatalf("tags list: %v", err)
	}

	out, stderr, err := run(t, "tasks", "add", "--title", "buy milk", "--tag", "1", "--priority", "1")
	if err != nil {
		t.Fatalf("tasks add: %v", err)
	}
	if !strings.Contains(out, "Created task 1") {
		t.Errorf("add output = %q", out)
	}
	if !strings.Contains(stderr, "Added buy milk") {
		t.Errorf("expected notification on stderr, got %q", stderr)
	}

	// done runs in a new invocation and relies on the saved state
	if _, stderr, err := run(t, "tasks", "done", "1"); err != nil {
		t.Fatalf("tasks done: %v", err)
	} else if !strings.Contains(stderr, "Marked as Done 1") {
		t.Errorf("expected done notification, got %q", stderr)
	}
	if task, _ := srv.Task(1); !task.IsDone() {
		t.Error("remote task should be done")
	}

	if _, _, err := run(t, "tasks", "edit", "1", "--title", "buy oat milk"); err != nil {
		t.Fatalf("tasks edit: %v", err)
	}
	if task, _ := srv.Task(1); task.Title != "buy oat milk" || len(task.Tags) != 1 {
		t.Errorf("remote task = %+v", task)
	}

	out, _, err = run(t, "tasks", "list", "--offline")
	if err != nil {
		t.Fatalf("tasks list: %v", err)
	}
	if !strings.Contains(out, "buy oat milk") || !strings.Contains(out, "home") {
		t.Errorf("list output = %q", out)
	}

	if _, _, err := run(t, "tasks", "rm", "1"); err != nil {
		t.Fatalf("tasks rm: %v", err)
	}
	out, _, err = run(t, "tasks", "list", "--offline")
	if err != nil {
		t.Fatalf("tasks list: %v", err)
	}
	if strings.Contains(out, "buy oat milk") {
		t.Errorf("removed task still listed: %q", out)
	}
}

func TestTasksDone_NotLoaded(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)

	_, _, err := run(t, "tasks", "done", "9")
	if err == nil || !strings.Contains(err.Error(), "not found locally") {
		t.Fatalf("error = %v, want not found locally", err)
	}
	if srv.Calls("mark_done") != 0 {
		t.Errorf("mark_done calls = %d, want 0", srv.Calls("mark_done"))
	}
}

func TestTasksAdd_MissingConfiguration(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)
	t.Setenv("TASKS_AUTH_TOKEN", "")

	_, _, err := run(t, "tasks", "add", "--title", "x")
	if err == nil || !strings.Contains(err.Error(), "missing configuration") {
		t.Fatalf("error = %v, want missing configuration", err)
	}
	if srv.Calls("create_task") != 0 {
		t.Errorf("create_task calls = %d, want 0", srv.Calls("create_task"))
	}
}

func TestTasksList_RemoteFailureHintsOffline(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)
	srv.FailNext("list_tags", 1)

	_, _, err := run(t, "tasks", "list")
	if !apperrors.IsRemote(err) {
		t.Fatalf("error = %v, want a remote failure", err)
	}

	var report bytes.Buffer
	ReportError(&report, err)
	if !strings.Contains(report.String(), "Error: ") || !strings.Contains(report.String(), "tasks list --offline") {
		t.Errorf("report = %q, want error and offline hint", report.String())
	}
}

func TestReportError_LocalFailureHasNoHint(t *testing.T) {
	var report bytes.Buffer
	ReportError(&report, errors.New("bad flag"))

	if report.String() != "Error: bad flag\n" {
		t.Errorf("report = %q", report.String())
	}
}

func TestTasksAdd_LogDisplayKeepsStderrQuiet(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)
	t.Setenv("NOTIFY_DISPLAY", "log")

	_, stderr, err := run(t, "tasks", "add", "--title", "  water plants\x07 ")
	if err != nil {
		t.Fatalf("tasks add: %v", err)
	}
	if strings.Contains(stderr, "Added") {
		t.Errorf("notification reached stderr with the log display: %q", stderr)
	}
	if task, ok := srv.Task(1); !ok || task.Title != "water plants" {
		t.Errorf("remote task = %+v, want sanitized title", task)
	}
}

func TestTagsAdd_SanitizesName(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)

	if _, _, err := run(t, "tags", "add", "--name", "\tgarden\r\n"); err != nil {
		t.Fatalf("tags add: %v", err)
	}
	out, _, err := run(t, "tags", "list")
	if err != nil {
		t.Fatalf("tags list: %v", err)
	}
	if !strings.Contains(out, "garden") || strings.Contains(out, "\r") {
		t.Errorf("tags list output = %q", out)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		wantSet bool
		wantErr bool
	}{
		{in: "", wantSet: false},
		{in: "2024-05-01", wantSet: true},
		{in: "2024-05-01T08:00:00+02:00", wantSet: true},
		{in: "05/01/2024", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDate(%q) error = %v", tt.in, err)
			}
			if got.IsSet() != tt.wantSet {
				t.Errorf("parseDate(%q) set = %v, want %v", tt.in, got.IsSet(), tt.wantSet)
			}
		})
	}
}
