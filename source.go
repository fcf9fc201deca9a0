// source.go: Trace source provider interface for the correlation engine
//
// The engine does not read capture files. Trace stores (ASCAD-style HDF5 groups,
// ChipWhisperer projects, lab databases) are wrapped as TraceSource providers and
// registered by name, powered by github.com/agilira/go-plugins for out-of-process
// providers. Every provider hands back a validated Dataset.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/agilira/go-errors"
	goplugins "github.com/agilira/go-plugins"
	"gonum.org/v1/gonum/mat"
)

// TraceRequest selects a named group of traces from a source.
type TraceRequest struct {
	Group      string                 `json:"group"`      // Named group, e.g. "attack" or "profiling"
	Limit      int                    `json:"limit"`      // Deterministic prefix length, 0 for all traces
	Parameters map[string]interface{} `json:"parameters"` // Source-specific parameters
}

// TraceResponse is what an out-of-process plugin source delivers. Data holds the
// Traces x Samples matrix in row-major order.
type TraceResponse struct {
	Success     bool                   `json:"success"`
	Traces      int                    `json:"traces"`
	Samples     int                    `json:"samples"`
	Data        []float64              `json:"data"`
	Plaintexts  [][]byte               `json:"plaintexts"`
	Keys        [][]byte               `json:"keys,omitempty"`
	Fingerprint string                 `json:"fingerprint"` // Dataset.Fingerprint of the payload, checked on receipt
	Error       string                 `json:"error"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// NewTraceResponse packs a dataset into a successful response, for plugin implementations.
func NewTraceResponse(ds *Dataset) TraceResponse {
	return TraceResponse{
		Success:     true,
		Traces:      ds.Len(),
		Samples:     ds.Samples(),
		Data:        mat.DenseCopyOf(ds.traces).RawMatrix().Data,
		Plaintexts:  ds.plaintexts,
		Keys:        ds.keys,
		Fingerprint: ds.Fingerprint(),
	}
}

// Dataset validates the payload of a response and rebuilds the dataset.
func (r TraceResponse) Dataset() (*Dataset, error) {
	if !r.Success {
		return nil, fmt.Errorf("%w: %s", ErrRemoteLoadFailed, r.Error)
	}
	if r.Traces < 1 || r.Samples < 1 || len(r.Data) != r.Traces*r.Samples {
		return nil, shapeMismatch("response carries %d values for %d x %d traces", len(r.Data), r.Traces, r.Samples)
	}

	ds, err := NewDataset(mat.NewDense(r.Traces, r.Samples, r.Data), r.Plaintexts, r.Keys)
	if err != nil {
		return nil, err
	}
	if r.Fingerprint != "" {
		if got := ds.Fingerprint(); got != r.Fingerprint {
			return nil, fmt.Errorf("%w: got %s, announced %s", ErrFingerprintMismatch, got, r.Fingerprint)
		}
	}
	return ds, nil
}

// TraceSource is implemented by every trace store the engine can attack.
type TraceSource interface {
	Name() string

	Initialize(ctx context.Context, config map[string]interface{}) error
	Close() error
	IsHealthy() bool

	// Load returns the requested group. A positive Limit selects the first Limit traces.
	Load(ctx context.Context, request TraceRequest) (*Dataset, error)
}

// SourceManagerConfig provides configuration for the source manager
type SourceManagerConfig struct {
	DefaultSource    string                            `json:"default_source"`    // Source used when no name is given
	SourceConfigs    map[string]map[string]interface{} `json:"source_configs"`    // Per-source configurations
	OperationTimeout time.Duration                     `json:"operation_timeout"` // Bound on Initialize and Load
}

// SourceManager keeps named trace sources and the plugin manager serving remote ones.
type SourceManager struct {
	mu            sync.RWMutex
	pluginManager *goplugins.Manager[TraceRequest, TraceResponse]
	sources       map[string]TraceSource
	defaultSource string
	config        *SourceManagerConfig
}

// Source errors with codes for auditing
var (
	ErrSourceNotInitialized = goerrors.New("SRC_001", "trace source not initialized")
	ErrSourceNotFound       = goerrors.New("SRC_002", "trace source not found")
	ErrSourceUnhealthy      = goerrors.New("SRC_003", "trace source health check failed")
	ErrGroupNotFound        = goerrors.New("SRC_004", "trace group not found")
	ErrRemoteLoadFailed     = goerrors.New("SRC_005", "plugin trace source reported failure")
	ErrFingerprintMismatch  = goerrors.New("SRC_006", "trace payload does not match its fingerprint")
)

// NewSourceManager creates a source manager. A nil config gets a 30 second timeout.
func NewSourceManager(config *SourceManagerConfig, pluginManager *goplugins.Manager[TraceRequest, TraceResponse]) (*SourceManager, error) {
	if config == nil {
		config = &SourceManagerConfig{
			OperationTimeout: 30 * time.Second,
		}
	}

	return &SourceManager{
		pluginManager: pluginManager,
		sources:       make(map[string]TraceSource),
		config:        config,
	}, nil
}

// PluginManager returns the plugin manager serving out-of-process sources, if any.
func (m *SourceManager) PluginManager() *goplugins.Manager[TraceRequest, TraceResponse] {
	return m.pluginManager
}

// RegisterSource initializes a source with its configuration and registers it
func (m *SourceManager) RegisterSource(name string, source TraceSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if source == nil {
		return fmt.Errorf("source cannot be nil")
	}

	ctx, cancel := m.operationContext(context.Background())
	defer cancel()

	if err := source.Initialize(ctx, m.config.SourceConfigs[name]); err != nil {
		return fmt.Errorf("failed to initialize trace source %s: %w", name, err)
	}

	m.sources[name] = source

	if m.defaultSource == "" || m.config.DefaultSource == name {
		m.defaultSource = name
	}

	return nil
}

// GetSource returns a healthy source by name; an empty name selects the default
func (m *SourceManager) GetSource(name string) (TraceSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name == "" {
		name = m.defaultSource
	}

	source, exists := m.sources[name]
	if !exists {
		return nil, fmt.Errorf("%w: source %s", ErrSourceNotFound, name)
	}

	if !source.IsHealthy() {
		return nil, fmt.Errorf("%w: source %s", ErrSourceUnhealthy, name)
	}

	return source, nil
}

// Load fetches a dataset from the named source within the configured timeout.
//
// Registered sources are tried first. Otherwise the request is executed by the plugin
// of that name in the plugin manager, whose response is validated and truncated to
// request.Limit traces.
func (m *SourceManager) Load(ctx context.Context, name string, request TraceRequest) (*Dataset, error) {
	source, err := m.GetSource(name)
	if errors.Is(err, ErrSourceNotFound) && m.hasPlugin(name) {
		return m.loadFromPlugin(ctx, name, request)
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := m.operationContext(ctx)
	defer cancel()

	ds, err := source.Load(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %q from %s: %w", request.Group, source.Name(), err)
	}
	return ds, nil
}

func (m *SourceManager) hasPlugin(name string) bool {
	if m.pluginManager == nil || name == "" {
		return false
	}
	_, err := m.pluginManager.GetPlugin(name)
	return err == nil
}

func (m *SourceManager) loadFromPlugin(ctx context.Context, name string, request TraceRequest) (*Dataset, error) {
	if request.Limit < 0 {
		return nil, invalidArgument("trace limit %d is negative", request.Limit)
	}

	ctx, cancel := m.operationContext(ctx)
	defer cancel()

	resp, err := m.pluginManager.Execute(ctx, name, request)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %q from plugin %s: %w", request.Group, name, err)
	}
	ds, err := resp.Dataset()
	if err != nil {
		return nil, fmt.Errorf("failed to load group %q from plugin %s: %w", request.Group, name, err)
	}
	if request.Limit > 0 && request.Limit != ds.Len() {
		return ds.Prefix(request.Limit)
	}
	return ds, nil
}

// Close shuts down all sources
func (m *SourceManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, source := range m.sources {
		if err := source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close trace source %s: %w", name, err))
		}
	}

	if m.pluginManager != nil {
		ctx, cancel := m.operationContext(context.Background())
		if err := m.pluginManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down plugin manager: %w", err))
		}
		cancel()
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close some trace sources: %v", errs)
	}
	return nil
}

func (m *SourceManager) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := m.config.OperationTimeout; timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// MemorySource serves datasets already held in memory, keyed by group name.
type MemorySource struct {
	mu          sync.RWMutex
	name        string
	groups      map[string]*Dataset
	initialized bool
}

// NewMemorySource creates an in-process source over the given groups.
func NewMemorySource(name string, groups map[string]*Dataset) *MemorySource {
	copied := make(map[string]*Dataset, len(groups))
	for group, ds := range groups {
		copied[group] = ds
	}
	return &MemorySource{name: name, groups: copied}
}

// Name returns the source name.
func (s *MemorySource) Name() string {
	return s.name
}

// Initialize marks the source ready. The configuration is unused.
func (s *MemorySource) Initialize(ctx context.Context, config map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return nil
}

// Close releases the groups.
func (s *MemorySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	s.groups = nil
	return nil
}

// IsHealthy reports whether the source is initialized.
func (s *MemorySource) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Load returns the requested group, truncated to request.Limit traces when positive.
func (s *MemorySource) Load(ctx context.Context, request TraceRequest) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrSourceNotInitialized
	}
	ds, ok := s.groups[request.Group]
	if !ok {
		return nil, fmt.Errorf("%w: group %q", ErrGroupNotFound, request.Group)
	}
	if request.Limit < 0 {
		return nil, invalidArgument("trace limit %d is negative", request.Limit)
	}
	if request.Limit == 0 {
		return ds, nil
	}
	return ds.Prefix(request.Limit)
}
