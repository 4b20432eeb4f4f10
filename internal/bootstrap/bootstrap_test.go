package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirillkom/collector-appraisal/internal/config"
	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/usecase"
)

func TestGradingOptionsWithoutPath(t *testing.T) {
	opts, err := gradingOptions(config.Config{})
	if err != nil {
		t.Fatalf("gradingOptions() error = %v", err)
	}
	if len(opts) != 0 {
		t.Fatalf("expected no options, got %d", len(opts))
	}
}

func TestGradingOptionsAppliesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grading.yaml")
	raw := "categories:\n  comic:\n    factors: [spine, cover]\n    thresholds: [{grade: VF, min_score: 80}, {grade: G, min_score: 0}]\n    explanation: Graded on spine and cover.\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write tables: %v", err)
	}

	opts, err := gradingOptions(config.Config{GradingTablesPath: path})
	if err != nil {
		t.Fatalf("gradingOptions() error = %v", err)
	}
	grader := usecase.NewConditionGrader(nil, opts...)
	if got := grader.GradingExplanation(domain.CategoryComic); got != "Graded on spine and cover." {
		t.Fatalf("unexpected explanation %q", got)
	}
	if got := grader.Criteria(domain.CategoryCards).Factors[0]; got != "corners" {
		t.Fatalf("built-in cards criteria should survive, got %q", got)
	}
}

func TestGradingOptionsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grading.yaml")
	if err := os.WriteFile(path, []byte("categories: ["), 0o600); err != nil {
		t.Fatalf("write tables: %v", err)
	}
	if _, err := gradingOptions(config.Config{GradingTablesPath: path}); err == nil {
		t.Fatalf("expected error for malformed tables")
	}
}

func TestVisionPolicyLeavesRetryToClassifier(t *testing.T) {
	policy := visionPolicy(config.Config{AnalysisTimeout: 3 * time.Second})
	if policy.RetryMaxAttempts != 1 {
		t.Fatalf("expected a single vision attempt, got %d", policy.RetryMaxAttempts)
	}
	if policy.AttemptTimeout != 3*time.Second {
		t.Fatalf("expected attempt timeout from analysis timeout, got %s", policy.AttemptTimeout)
	}
	if !policy.BreakerEnabled {
		t.Fatalf("expected the breaker to stay enabled")
	}
}
