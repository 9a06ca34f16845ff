package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"
)

// BusyChecker reports whether the backend is already serving interactive
// work, in which case the monitor stays out of its way.
type BusyChecker interface {
	// Busy returns whether the backend is busy and a human-readable reason
	// when it is.
	Busy(ctx context.Context) (bool, string, error)
}

// BackendBusyChecker combines two signals: models the server reports as
// currently loaded, and the CPU share of backend-named processes. Either
// one alone marks the backend busy.
type BackendBusyChecker struct {
	// ServerURL is the ollama server probed for loaded models.
	ServerURL string
	// ProcessNames are matched case-insensitively against process names.
	ProcessNames []string
	// CPUThreshold is the summed CPU percentage above which the backend
	// counts as busy.
	CPUThreshold float64
	// SampleInterval is the window over which per-process CPU is measured.
	SampleInterval time.Duration
	// HTTPClient reaches the server; defaults to a short-timeout client.
	HTTPClient *http.Client
}

var _ BusyChecker = (*BackendBusyChecker)(nil)

func NewBackendBusyChecker(serverURL string) *BackendBusyChecker {
	return &BackendBusyChecker{
		ServerURL:      serverURL,
		ProcessNames:   []string{"ollama", "llama-server"},
		CPUThreshold:   30.0,
		SampleInterval: 500 * time.Millisecond,
		HTTPClient:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Busy checks the loaded-model signal first, then the CPU heuristic. A
// failing signal is logged and treated as not busy so that an unreachable
// server never wedges the monitor.
func (c *BackendBusyChecker) Busy(ctx context.Context) (bool, string, error) {
	loaded, err := c.loadedModels(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("busy check: could not query loaded models")
	} else if len(loaded) > 0 {
		return true, fmt.Sprintf("models loaded: %s", strings.Join(loaded, ", ")), nil
	}

	cpu, err := c.backendCPU(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("busy check: could not sample process cpu")
		return false, "", nil
	}
	if cpu >= c.CPUThreshold {
		return true, fmt.Sprintf("backend processes at %.0f%% cpu", cpu), nil
	}

	return false, "", nil
}

// loadedModels asks the ollama server which models are resident in memory.
// The endpoint is queried directly: the pinned client library predates it.
func (c *BackendBusyChecker) loadedModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(c.ServerURL, "/")+"/api/ps", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build ps request")
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "query loaded models")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d from /api/ps", resp.StatusCode)
	}

	var body struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode ps response")
	}

	names := make([]string, 0, len(body.Models))
	for _, model := range body.Models {
		names = append(names, model.Name)
	}
	return names, nil
}

// backendCPU sums CPU usage over the sample interval for every process
// whose name matches one of the configured backend names.
func (c *BackendBusyChecker) backendCPU(ctx context.Context) (float64, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list processes")
	}

	total := 0.0
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if !c.matchesBackend(name) {
			continue
		}
		pct, err := p.PercentWithContext(ctx, c.SampleInterval)
		if err != nil {
			continue
		}
		total += pct
	}
	return total, nil
}

func (c *BackendBusyChecker) matchesBackend(name string) bool {
	name = strings.ToLower(name)
	for _, candidate := range c.ProcessNames {
		if strings.Contains(name, strings.ToLower(candidate)) {
			return true
		}
	}
	return false
}
