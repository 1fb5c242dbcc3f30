// Package migration copies records between the two providers and validates
// the outcome. Copies are upserts keyed by the source record id, so a
// migration can be re-run safely after a partial failure.
package migration

import (
	"context"
	"fmt"

	"github.com/splitsheet/splitsheet/internal/logging"
	"github.com/splitsheet/splitsheet/internal/provider"
)

// Actions accepted by Run.
const (
	ActionMigrateUsers      = "migrate-users"
	ActionMigrateAgreements = "migrate-agreements"
	ActionMigrateFiles      = "migrate-files"
	ActionFullMigration     = "full-migration"
	ActionValidate          = "validate"
)

// Tools copies records from the source provider to the target provider.
type Tools struct {
	source provider.Provider
	target provider.Provider
	log    logging.Logger
}

func NewTools(source, target provider.Provider, log logging.Logger) *Tools {
	return &Tools{source: source, target: target, log: log}
}

// RecordResult reports one record type's migration outcome. Failed records
// are skipped and reported; they never abort the run.
type RecordResult struct {
	Total    int      `json:"total"`
	Migrated int      `json:"migrated"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// FilesResult reports the file migration outcome.
type FilesResult struct {
	Migrated int    `json:"migrated"`
	Note     string `json:"note,omitempty"`
}

// FullResult aggregates a complete migration run.
type FullResult struct {
	Users      *RecordResult `json:"users"`
	Agreements *RecordResult `json:"agreements"`
	Files      *FilesResult  `json:"files"`
}

// ValidationResult compares record counts between the providers. Valid is
// true only when every count matches; each mismatch adds one issue string.
type ValidationResult struct {
	Valid            bool     `json:"valid"`
	Issues           []string `json:"issues"`
	SourceUsers      int      `json:"sourceUsers"`
	TargetUsers      int      `json:"targetUsers"`
	UsersMatch       bool     `json:"usersMatch"`
	SourceAgreements int      `json:"sourceAgreements"`
	TargetAgreements int      `json:"targetAgreements"`
	AgreementsMatch  bool     `json:"agreementsMatch"`
}

// RunResult is the uniform envelope returned by Run.
type RunResult struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MigrateUsers copies every source user to the target. Only a failure to
// list the source aborts; per-record failures are accumulated.
func (t *Tools) MigrateUsers(ctx context.Context) (*RecordResult, error) {
	users, err := t.source.Data().ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source users: %w", err)
	}

	result := &RecordResult{Total: len(users)}
	for _, user := range users {
		if err := t.target.Data().UpsertUser(ctx, user); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("user %s: %v", user.ID, err))
			t.log.Warn(ctx, "user migration failed", "userId", user.ID, "error", err)
			continue
		}
		result.Migrated++
	}

	t.log.Info(ctx, "users migrated",
		"total", result.Total, "migrated", result.Migrated, "failed", result.Failed)
	return result, nil
}

// MigrateAgreements copies every source agreement to the target, embedded
// signers included.
func (t *Tools) MigrateAgreements(ctx context.Context) (*RecordResult, error) {
	agreements, err := t.source.Data().ListAgreements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source agreements: %w", err)
	}

	result := &RecordResult{Total: len(agreements)}
	for _, agreement := range agreements {
		if err := t.target.Data().UpsertAgreement(ctx, agreement); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("agreement %s: %v", agreement.ID, err))
			t.log.Warn(ctx, "agreement migration failed", "agreementId", agreement.ID, "error", err)
			continue
		}
		result.Migrated++
	}

	t.log.Info(ctx, "agreements migrated",
		"total", result.Total, "migrated", result.Migrated, "failed", result.Failed)
	return result, nil
}

// MigrateFiles is not implemented yet: stored objects keep their source
// URLs, which remain reachable after a record migration.
func (t *Tools) MigrateFiles(ctx context.Context) (*FilesResult, error) {
	t.log.Info(ctx, "file migration skipped")
	return &FilesResult{Note: "file migration is not implemented; document URLs keep pointing at the source store"}, nil
}

// RunFullMigration migrates users, then agreements, then files.
func (t *Tools) RunFullMigration(ctx context.Context) (*FullResult, error) {
	users, err := t.MigrateUsers(ctx)
	if err != nil {
		return nil, err
	}
	agreements, err := t.MigrateAgreements(ctx)
	if err != nil {
		return nil, err
	}
	files, err := t.MigrateFiles(ctx)
	if err != nil {
		return nil, err
	}
	return &FullResult{Users: users, Agreements: agreements, Files: files}, nil
}

// ValidateMigration compares record counts on both sides. It is count-only:
// matching counts do not prove field-level equality.
func (t *Tools) ValidateMigration(ctx context.Context) (*ValidationResult, error) {
	sourceUsers, err := t.source.Data().ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source users: %w", err)
	}
	targetUsers, err := t.target.Data().ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list target users: %w", err)
	}
	sourceAgreements, err := t.source.Data().ListAgreements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source agreements: %w", err)
	}
	targetAgreements, err := t.target.Data().ListAgreements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list target agreements: %w", err)
	}

	result := &ValidationResult{
		Issues:           []string{},
		SourceUsers:      len(sourceUsers),
		TargetUsers:      len(targetUsers),
		UsersMatch:       len(sourceUsers) == len(targetUsers),
		SourceAgreements: len(sourceAgreements),
		TargetAgreements: len(targetAgreements),
		AgreementsMatch:  len(sourceAgreements) == len(targetAgreements),
	}
	if !result.UsersMatch {
		result.Issues = append(result.Issues,
			fmt.Sprintf("user count mismatch: source %d, target %d", result.SourceUsers, result.TargetUsers))
	}
	if !result.AgreementsMatch {
		result.Issues = append(result.Issues,
			fmt.Sprintf("agreement count mismatch: source %d, target %d", result.SourceAgreements, result.TargetAgreements))
	}
	result.Valid = len(result.Issues) == 0
	return result, nil
}

// Run dispatches an action by name and wraps the outcome in the uniform
// envelope.
func (t *Tools) Run(ctx context.Context, action string) *RunResult {
	var (
		result any
		err    error
	)

	switch action {
	case ActionMigrateUsers:
		result, err = t.MigrateUsers(ctx)
	case ActionMigrateAgreements:
		result, err = t.MigrateAgreements(ctx)
	case ActionMigrateFiles:
		result, err = t.MigrateFiles(ctx)
	case ActionFullMigration:
		result, err = t.RunFullMigration(ctx)
	case ActionValidate:
		result, err = t.ValidateMigration(ctx)
	default:
		err = fmt.Errorf("unknown action %q", action)
	}

	if err != nil {
		return &RunResult{Success: false, Action: action, Error: err.Error()}
	}
	return &RunResult{Success: true, Action: action, Result: result}
}
