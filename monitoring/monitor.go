// Package monitoring turns a running simulation into a small web server that
// can pause and continue the run and show its live state.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/monitoring/web"
	"github.com/sarchlab/vmsim/sim"
)

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	engine      sim.Engine
	mmu         *mmu.Comp
	portNumber  int
	openBrowser bool

	// pauseLock serializes every pause and continue requested by the monitor.
	// userPaused remembers whether the user asked for the pause, so that a
	// state read does not resume a run the user paused.
	pauseLock  sync.Mutex
	userPaused bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	listener net.Listener
	server   *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor. Port 0 picks a free
// port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		slog.Warn("monitor port not allowed, using a random port instead",
			"port", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitor page in a browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e sim.Engine) {
	m.engine = e
}

// RegisterMMU registers the MMU whose state is shown.
func (m *Monitor) RegisterMMU(c *mmu.Comp) {
	m.mmu = c
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler that serves the monitor API and pages.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/stats", m.stats)
	r.HandleFunc("/api/frames", m.frames)
	r.HandleFunc("/api/process/{pid}", m.processDetails)
	r.HandleFunc("/api/mmu", m.mmuDetails)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns the URL it
// listens on.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", fmt.Errorf("monitor: %w", err)
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			slog.Error("monitor server stopped", "error", err)
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			slog.Warn("cannot open browser", "url", url, "error", err)
		}
	}

	return url, nil
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer() error {
	if m.server == nil {
		return nil
	}

	return m.server.Close()
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.pauseLock.Lock()
	defer m.pauseLock.Unlock()

	m.engine.Pause()
	m.userPaused = true

	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.pauseLock.Lock()
	defer m.pauseLock.Unlock()

	m.engine.Continue()
	m.userPaused = false

	w.WriteHeader(http.StatusOK)
}

// withEngineStopped runs f between two instructions.
func (m *Monitor) withEngineStopped(f func()) {
	m.pauseLock.Lock()
	defer m.pauseLock.Unlock()

	m.engine.Pause()
	defer func() {
		if !m.userPaused {
			m.engine.Continue()
		}
	}()

	f()
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.engine.CurrentTime()
	fmt.Fprintf(w, "{\"now\":%d}", now)
}

type processStatsRsp struct {
	PID   vm.PID          `json:"pid"`
	Stats vm.ProcessStats `json:"stats"`
}

type statsRsp struct {
	Instructions    uint64            `json:"instructions"`
	ContextSwitches uint64            `json:"context_switches"`
	ProcessExits    uint64            `json:"process_exits"`
	Cost            uint64            `json:"cost"`
	CurrentProcess  *vm.PID           `json:"current_process"`
	Processes       []processStatsRsp `json:"processes"`
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	if !m.mmuRegisteredOr404(w) {
		return
	}

	rsp := statsRsp{}

	m.withEngineStopped(func() {
		s := m.mmu.Stats()
		rsp.Instructions = s.Instructions
		rsp.ContextSwitches = s.ContextSwitches
		rsp.ProcessExits = s.ProcessExits
		rsp.Cost = s.Cost

		if pid, ok := m.mmu.CurrentProcess(); ok {
			rsp.CurrentProcess = &pid
		}

		for _, p := range m.mmu.Memory().Processes {
			rsp.Processes = append(rsp.Processes,
				processStatsRsp{PID: p.ID, Stats: p.Stats})
		}
	})

	writeJSON(w, rsp)
}

type frameRsp struct {
	Frame         int       `json:"frame"`
	Free          bool      `json:"free"`
	PID           vm.PID    `json:"pid"`
	Page          int       `json:"page"`
	TimeOfLastUse sim.VTime `json:"time_of_last_use"`
	Age           uint32    `json:"age"`
}

func (m *Monitor) frames(w http.ResponseWriter, _ *http.Request) {
	if !m.mmuRegisteredOr404(w) {
		return
	}

	rsp := []frameRsp{}

	m.withEngineStopped(func() {
		pool := m.mmu.Memory().Frames
		for i := 0; i < pool.Len(); i++ {
			f := pool.Frame(i)
			rsp = append(rsp, frameRsp{
				Frame:         f.Number,
				Free:          f.IsFree(),
				PID:           f.Owner,
				Page:          f.Page,
				TimeOfLastUse: f.TimeOfLastUse,
				Age:           f.Age,
			})
		}
	})

	writeJSON(w, rsp)
}

func (m *Monitor) processDetails(w http.ResponseWriter, r *http.Request) {
	if !m.mmuRegisteredOr404(w) {
		return
	}

	pid, err := strconv.Atoi(mux.Vars(r)["pid"])
	if err != nil {
		http.Error(w, "invalid pid", http.StatusBadRequest)
		return
	}

	proc, ok := m.mmu.Memory().Process(vm.PID(pid))
	if !ok {
		http.Error(w, "process not found", http.StatusNotFound)
		return
	}

	m.serialize(w, proc, 3)
}

func (m *Monitor) mmuDetails(w http.ResponseWriter, _ *http.Request) {
	if !m.mmuRegisteredOr404(w) {
		return
	}

	m.serialize(w, m.mmu, 1)
}

func (m *Monitor) serialize(w http.ResponseWriter, root any, depth int) {
	buf := bytes.NewBuffer(nil)

	var err error

	m.withEngineStopped(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(root)
		serializer.SetMaxDepth(depth)
		err = serializer.Serialize(buf)
	})

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	_, err = w.Write(buf.Bytes())
	dieOnErr(err)
}

func (m *Monitor) mmuRegisteredOr404(w http.ResponseWriter) bool {
	if m.mmu != nil {
		return true
	}

	http.Error(w, "no MMU registered", http.StatusNotFound)

	return false
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
