package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	raven "github.com/getsentry/raven-go"
	"github.com/playnet-public/gorcon-mc/pkg/common"
	"github.com/robfig/cron"
	"go.uber.org/zap"
)

//DefaultPath of the schedule file
const DefaultPath = "schedule.json"

//Schedule Object
type Schedule struct {
	Events []Event `json:"schedule"`
}

//Event describes one recurring call of a registered function
type Event struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Day     string `json:"day"`
	Hour    string `json:"hour"`
	Minute  string `json:"minute"`
}

//Spec returns the cron expression of e, events fire on second zero
func (e Event) Spec() string {
	return fmt.Sprintf("0 %s %s * * %s", e.Minute, e.Hour, e.Day)
}

//Scheduler executes functions based on a schedule
type Scheduler struct {
	log   *zap.Logger
	path  string
	Funcs common.ScheduleFuncs
	Sched Schedule

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

//New returns a new Scheduler instance. path is remembered for reloads without an explicit path.
func New(
	log *zap.Logger,
	path string,
	sched Schedule,
	funcs common.ScheduleFuncs,
) *Scheduler {
	if funcs == nil {
		funcs = make(common.ScheduleFuncs)
	}
	s := &Scheduler{
		log:   log,
		path:  path,
		Sched: sched,
		Funcs: funcs,
		cron:  cron.New(),
	}
	s.Funcs["scheduler"] = s.scheduleFunc
	s.Funcs["log"] = s.logFunc
	return s
}

func (s *Scheduler) scheduleFunc(cmd string) {
	if cmd == "" {
		s.log.Error("no cmd in scheduleFunc call")
		return
	}
	cmds := strings.Fields(cmd)
	switch cmds[0] {
	case "reload":
		path := ""
		if len(cmds) > 1 {
			path = cmds[1]
		}
		if err := s.Reload(path); err != nil {
			s.log.Error("schedule reload failed", zap.Error(err))
		}
	case "stop":
		s.Stop()
	default:
		s.log.Warn("unknown scheduler command", zap.String("cmd", cmd))
	}
}

func (s *Scheduler) logFunc(cmd string) {
	s.log.Info("scheduled log event", zap.String("msg", cmd))
}

//BuildEvents adds all time events to the Scheduler's cron
func (s *Scheduler) BuildEvents() (err error) {
	defer func() {
		if err != nil {
			raven.CaptureError(err, map[string]string{"app": "rcon", "module": "scheduler"})
		}
	}()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("scheduling events", zap.Int("count", len(s.Sched.Events)))
	for _, event := range s.Sched.Events {
		eventFunc, ok := s.Funcs[event.Type]
		if !ok {
			err = fmt.Errorf("no function defined for eventType %s", event.Type)
			s.log.Error("failed to schedule event", zap.Error(err))
			return
		}
		command := event.Command
		s.log.Debug("adding event", zap.String("type", event.Type), zap.String("spec", event.Spec()))
		if err = s.cron.AddFunc(event.Spec(), func() {
			eventFunc(command)
		}); err != nil {
			err = fmt.Errorf("event %s %q: %w", event.Type, event.Spec(), err)
			return
		}
	}
	return
}

//Start the cron loop
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Info("starting scheduler jobs")
	s.cron.Start()
	s.running = true
}

//Stop the cron loop. Running jobs are not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.log.Info("stopping scheduler jobs")
	s.cron.Stop()
	s.running = false
}

//Entries returns the number of scheduled jobs
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cron.Entries())
}

//Reload the scheduler jobs from file. An empty path reuses the last one.
func (s *Scheduler) Reload(path string) (err error) {
	if path == "" {
		s.mu.Lock()
		path = s.path
		s.mu.Unlock()
	}
	sched, err := ReadSchedule(path)
	if err != nil {
		return
	}
	s.Stop()
	s.mu.Lock()
	s.path = path
	s.Sched = sched
	s.cron = cron.New()
	s.mu.Unlock()

	if err = s.BuildEvents(); err != nil {
		return
	}
	s.Start()
	s.log.Info("schedule reloaded", zap.String("path", path), zap.Int("events", len(sched.Events)))
	return
}

//UpdateFuncs adds the functions of every ExtFuncs to the ScheduleFuncs
func (s *Scheduler) UpdateFuncs(funcs ...common.ExtFuncs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Funcs.Add(funcs...)
	s.log.Debug("schedule functions updated", zap.Strings("types", s.Funcs.Keys()))
}

//ReadSchedule json from path and return Schedule
func ReadSchedule(path string) (Schedule, error) {
	if path == "" {
		path = DefaultPath
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Schedule{}, err
	}
	return parseConfig(content)
}

func parseConfig(content []byte) (Schedule, error) {
	config := &Schedule{}
	if err := json.Unmarshal(content, config); err != nil {
		return Schedule{}, err
	}
	return *config, nil
}
