// internal/config/autocommit.go
package config

import "sync"

// TriggerToggles enables or disables each trigger kind independently.
type TriggerToggles struct {
	AfterToolExecution bool `json:"after_tool_execution"`
	AfterBuildSuccess  bool `json:"after_build_success"`
	AfterTestSuccess   bool `json:"after_test_success"`
	OnFileChange       bool `json:"on_file_change"`
	TimeBased          bool `json:"time_based"`
}

// Conditions gate when a qualifying trigger actually commits.
type Conditions struct {
	MinimumChanges  uint `json:"minimum_changes"`
	DebounceDelayMs uint `json:"debounce_delay_ms"`
	// MaxWaitMs caps how long continuous activity may defer a debounced
	// commit. 0 disables the ceiling.
	MaxWaitMs              uint     `json:"max_wait_ms"`
	SkipIfRecentCommit     bool     `json:"skip_if_recent_commit"`
	RequiredOutputKeywords []string `json:"required_output_keywords,omitempty"`
}

// BranchPolicy decides when a commit forks a new branch. Either threshold
// independently qualifies.
type BranchPolicy struct {
	Enabled            bool   `json:"enabled"`
	FileCountThreshold uint   `json:"file_count_threshold"`
	LineCountThreshold uint   `json:"line_count_threshold"`
	BranchPrefix       string `json:"branch_prefix"`
}

// AutoCommitConfig is the process-wide auto-commit configuration. Reads get
// value copies; mutation happens only through Store.Update.
type AutoCommitConfig struct {
	Enabled               bool           `json:"enabled"`
	Triggers              TriggerToggles `json:"triggers"`
	Conditions            Conditions     `json:"conditions"`
	CommitMessageTemplate string         `json:"commit_message_template"`
	AutoInitRepo          bool           `json:"auto_init_repo"`
	AutoPushToRemote      bool           `json:"auto_push_to_remote"`
	BranchPolicy          BranchPolicy   `json:"branch_policy"`
}

func DefaultAutoCommit() AutoCommitConfig {
	return AutoCommitConfig{
		Enabled: true,
		Triggers: TriggerToggles{
			AfterToolExecution: true,
			AfterBuildSuccess:  true,
			AfterTestSuccess:   true,
			OnFileChange:       true,
			TimeBased:          false,
		},
		Conditions: Conditions{
			MinimumChanges:     1,
			DebounceDelayMs:    2000,
			SkipIfRecentCommit: true,
		},
		CommitMessageTemplate: "checkpoint: {trigger} {summary} ({timestamp})",
		AutoInitRepo:          true,
		AutoPushToRemote:      false,
		BranchPolicy: BranchPolicy{
			Enabled:            true,
			FileCountThreshold: 5,
			LineCountThreshold: 200,
			BranchPrefix:       "auto",
		},
	}
}

// AutoCommitUpdate is a partial configuration change. Nil fields leave the
// current value untouched; non-nil sections replace the section whole.
type AutoCommitUpdate struct {
	Enabled               *bool           `json:"enabled,omitempty"`
	Triggers              *TriggerToggles `json:"triggers,omitempty"`
	Conditions            *Conditions     `json:"conditions,omitempty"`
	CommitMessageTemplate *string         `json:"commit_message_template,omitempty"`
	AutoInitRepo          *bool           `json:"auto_init_repo,omitempty"`
	AutoPushToRemote      *bool           `json:"auto_push_to_remote,omitempty"`
	BranchPolicy          *BranchPolicy   `json:"branch_policy,omitempty"`
}

// Merge applies u to c and returns the merged value.
func (c AutoCommitConfig) Merge(u AutoCommitUpdate) AutoCommitConfig {
	if u.Enabled != nil {
		c.Enabled = *u.Enabled
	}
	if u.Triggers != nil {
		c.Triggers = *u.Triggers
	}
	if u.Conditions != nil {
		c.Conditions = *u.Conditions
	}
	if u.CommitMessageTemplate != nil {
		c.CommitMessageTemplate = *u.CommitMessageTemplate
	}
	if u.AutoInitRepo != nil {
		c.AutoInitRepo = *u.AutoInitRepo
	}
	if u.AutoPushToRemote != nil {
		c.AutoPushToRemote = *u.AutoPushToRemote
	}
	if u.BranchPolicy != nil {
		c.BranchPolicy = *u.BranchPolicy
	}
	return c
}

// Store holds the live auto-commit configuration behind a mutex so the
// pipeline can read a consistent snapshot while the API applies updates.
type Store struct {
	mu  sync.RWMutex
	cfg AutoCommitConfig
}

func NewStore(cfg AutoCommitConfig) *Store {
	return &Store{cfg: cfg}
}

// Get returns a copy of the current configuration.
func (s *Store) Get() AutoCommitConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update merges a partial change and returns the resulting configuration.
func (s *Store) Update(u AutoCommitUpdate) AutoCommitConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = s.cfg.Merge(u)
	return s.cfg
}
