package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/service"
)

// Errors are the service sentinels, so callers can match either
var (
	ErrScenarioNotFound = service.ErrScenarioNotFound
	ErrInvalidScenario  = service.ErrInvalidScenario
)

// DefaultScenarioName is loaded as the default scenario when present
const DefaultScenarioName = "default"

// extensions are tried in order when a scenario is named without one
var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles scenario loading and caching
type Manager struct {
	scenarioDir     string
	defaultScenario *catalog.Scenario
	scenarios       map[string]*catalog.Scenario
	mu              sync.RWMutex
}

// NewManager creates a new scenario manager reading from scenarioDir
func NewManager(scenarioDir string) (*Manager, error) {
	if _, err := os.Stat(scenarioDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario directory does not exist: %s", scenarioDir)
	}

	m := &Manager{
		scenarioDir: scenarioDir,
		scenarios:   make(map[string]*catalog.Scenario),
	}
	m.loadDefaultScenario()
	return m, nil
}

// LoadScenario loads a scenario by name. The name may carry a .json, .yaml
// or .yml extension; without one the extensions are tried in that order.
func (m *Manager) LoadScenario(name string) (*catalog.Scenario, error) {
	id, err := scenarioID(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	if s, exists := m.scenarios[id]; exists {
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, exists := m.scenarios[id]; exists {
		return s, nil
	}

	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := catalog.ParseScenario(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidScenario, filepath.Base(path), err)
	}
	if err := catalog.ValidateScenario(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	m.scenarios[id] = s
	log.Debug().Str("scenario", id).Str("file", filepath.Base(path)).Msg("scenario loaded")
	return s, nil
}

// ListScenarios returns information about every loadable scenario file.
// Invalid files are skipped.
func (m *Manager) ListScenarios() ([]*service.ScenarioInfo, error) {
	entries, err := os.ReadDir(m.scenarioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	seen := make(map[string]bool)
	var infos []*service.ScenarioInfo
	for _, entry := range entries {
		if entry.IsDir() || !isScenarioFile(entry.Name()) {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if seen[id] {
			continue
		}

		s, err := m.LoadScenario(entry.Name())
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping scenario")
			continue
		}
		seen[id] = true

		infos = append(infos, &service.ScenarioInfo{
			Filename:    entry.Name(),
			ScenarioID:  id,
			Name:        s.Name,
			Description: s.Description,
			Engines:     len(s.Engines),
			Vehicles:    countVehicles(s),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ScenarioID < infos[j].ScenarioID })
	return infos, nil
}

// GetDefault returns the default scenario
func (m *Manager) GetDefault() *catalog.Scenario {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultScenario
}

// SetDefault sets the default scenario by name
func (m *Manager) SetDefault(name string) error {
	s, err := m.LoadScenario(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultScenario = s
	return nil
}

// RefreshCache drops every cached scenario and reloads the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.scenarios = make(map[string]*catalog.Scenario)
	m.mu.Unlock()

	m.loadDefaultScenario()
}

// SaveScenario validates a scenario and writes it to disk. A .yaml or .yml
// extension on name selects YAML output, anything else is written as JSON.
func (m *Manager) SaveScenario(name string, s *catalog.Scenario) error {
	id, err := scenarioID(name)
	if err != nil {
		return err
	}
	if err := catalog.ValidateScenario(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	ext := strings.ToLower(filepath.Ext(name))
	var data []byte
	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	default:
		ext = ".json"
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}

	path := filepath.Join(m.scenarioDir, id+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}

	m.mu.Lock()
	m.scenarios[id] = s
	m.mu.Unlock()

	log.Info().Str("scenario", id).Str("file", filepath.Base(path)).Msg("scenario saved")
	return nil
}

// loadDefaultScenario picks "default", then the first listed scenario, then
// the built-in one
func (m *Manager) loadDefaultScenario() {
	s, err := m.LoadScenario(DefaultScenarioName)
	if err != nil {
		infos, listErr := m.ListScenarios()
		if listErr == nil && len(infos) > 0 {
			s, err = m.LoadScenario(infos[0].Filename)
		}
	}
	if err != nil || s == nil {
		log.Debug().Str("dir", m.scenarioDir).Msg("no scenario files found, using built-in default")
		s = catalog.DefaultScenario()
	}

	m.mu.Lock()
	m.defaultScenario = s
	m.mu.Unlock()
}

// resolve finds the file backing a scenario name. Caller holds the lock.
func (m *Manager) resolve(name string) (string, error) {
	if isScenarioFile(name) {
		path := filepath.Join(m.scenarioDir, name)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s", ErrScenarioNotFound, name)
		}
		return path, nil
	}
	for _, ext := range extensions {
		path := filepath.Join(m.scenarioDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrScenarioNotFound, name)
}

// scenarioID strips a known extension and rejects names that would escape
// the scenario directory
func scenarioID(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: invalid scenario name %q", ErrInvalidScenario, name)
	}
	if isScenarioFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name)), nil
	}
	return name, nil
}

func isScenarioFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func countVehicles(s *catalog.Scenario) int {
	n := 0
	for _, f := range s.Fleet {
		n += f.Count
	}
	return n
}
