package scheduler

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/playnet-public/gorcon-mc/pkg/common"
	"go.uber.org/zap/zaptest"
)

const testSchedule = `{
	"schedule": [
		{"type": "rcon", "command": "say restart in 5 minutes", "day": "*", "hour": "3", "minute": "55"},
		{"type": "rcon", "command": "stop", "day": "*", "hour": "4", "minute": "0"}
	]
}`

func Test_parseConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Schedule
		wantErr bool
	}{
		{
			"ok",
			testSchedule,
			Schedule{Events: []Event{
				{Type: "rcon", Command: "say restart in 5 minutes", Day: "*", Hour: "3", Minute: "55"},
				{Type: "rcon", Command: "stop", Day: "*", Hour: "4", Minute: "0"},
			}},
			false,
		},
		{"empty", `{}`, Schedule{}, false},
		{"invalid", `{"schedule": [`, Schedule{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseConfig([]byte(tt.content))
			if (err != nil) != tt.wantErr {
				t.Errorf("parseConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseConfig() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvent_Spec(t *testing.T) {
	e := Event{Day: "1-5", Hour: "4", Minute: "30"}
	if got, want := e.Spec(), "0 30 4 * * 1-5"; got != want {
		t.Errorf("Spec() = %q, want %q", got, want)
	}
}

func TestScheduler_BuildEvents(t *testing.T) {
	noop := func(string) {}
	tests := []struct {
		name    string
		events  []Event
		want    int
		wantErr bool
	}{
		{"ok", []Event{{Type: "rcon", Day: "*", Hour: "4", Minute: "0"}}, 1, false},
		{"builtin_log", []Event{{Type: "log", Command: "hello", Day: "*", Hour: "*", Minute: "*/5"}}, 1, false},
		{"unknown_type", []Event{{Type: "bash", Day: "*", Hour: "4", Minute: "0"}}, 0, true},
		{"invalid_spec", []Event{{Type: "rcon", Day: "*", Hour: "25", Minute: "0"}}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(zaptest.NewLogger(t), "", Schedule{Events: tt.events}, common.ScheduleFuncs{"rcon": noop})
			err := s.BuildEvents()
			if (err != nil) != tt.wantErr {
				t.Errorf("BuildEvents() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got := s.Entries(); got != tt.want {
				t.Errorf("Entries() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScheduler_UpdateFuncs(t *testing.T) {
	var got []string
	s := New(zaptest.NewLogger(t), "", Schedule{}, nil)
	s.UpdateFuncs(common.NewExtFuncs(
		common.NewExtFunc("rcon", func(cmd string) { got = append(got, cmd) }),
	))

	f, ok := s.Funcs["rcon"]
	if !ok {
		t.Fatal("rcon func not registered")
	}
	f("list")
	if !reflect.DeepEqual(got, []string{"list"}) {
		t.Errorf("calls = %v, want [list]", got)
	}
	for _, key := range []string{"scheduler", "log"} {
		if _, ok := s.Funcs[key]; !ok {
			t.Errorf("builtin %s func missing", key)
		}
	}
}

func TestScheduler_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.json")
	if err := os.WriteFile(path, []byte(testSchedule), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(zaptest.NewLogger(t), path, Schedule{}, common.ScheduleFuncs{"rcon": func(string) {}})
	s.Start()
	defer s.Stop()

	s.scheduleFunc("reload")
	if got := len(s.Sched.Events); got != 2 {
		t.Fatalf("events after reload = %d, want 2", got)
	}
	if got := s.Entries(); got != 2 {
		t.Errorf("Entries() = %d, want 2", got)
	}

	if err := s.Reload(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Reload() of missing file succeeded")
	}
	if got := s.Entries(); got != 2 {
		t.Errorf("failed reload changed entries to %d", got)
	}

	s.scheduleFunc("stop")
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if running {
		t.Error("scheduler still running after stop")
	}
}
