package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

type promotionScenario struct {
	env     *testEnv
	outcome *driving.PromotionOutcome
	err     error
}

func (s *promotionScenario) documentProposing(path, predicate, target string, strength float64) error {
	_, err := s.env.indexer.Ingest(context.Background(), domain.SourceDocument{
		Path:     path,
		Content:  "# " + domain.EntityIDFromPath(path) + "\n\nBody text.",
		Metadata: edgeMeta(map[string]any{"predicate": predicate, "target_id": target, "strength": strength}),
	})
	return err
}

func (s *promotionScenario) materialized() error {
	_, err := s.env.promotion.Materialize(context.Background(), driving.MaterializeOptions{})
	return err
}

func (s *promotionScenario) rebuilt() error {
	_, err := s.env.promotion.Materialize(context.Background(), driving.MaterializeOptions{Clear: true})
	return err
}

func (s *promotionScenario) promoted(src, predicate, dst string) error {
	s.outcome, s.err = s.env.promotion.Promote(context.Background(), driving.PromotionRequest{
		Key:      domain.NewClaimKey(src, dst, predicate),
		Reviewer: "reviewer",
	})
	return nil
}

func (s *promotionScenario) rejected(src, predicate, dst string) error {
	s.outcome, s.err = s.env.promotion.Reject(context.Background(), domain.NewClaimKey(src, dst, predicate), "reviewer", "not supported")
	return s.err
}

func (s *promotionScenario) edgeHasPredicate(predicate string) error {
	if s.err != nil {
		return fmt.Errorf("promotion failed: %w", s.err)
	}
	if got := string(s.outcome.Edge.Predicate); got != predicate {
		return fmt.Errorf("expected predicate %q, got %q", predicate, got)
	}
	return nil
}

func (s *promotionScenario) failsUnmapped() error {
	if !errors.Is(s.err, domain.ErrUnmappedPredicate) {
		return fmt.Errorf("expected ErrUnmappedPredicate, got %v", s.err)
	}
	return nil
}

func (s *promotionScenario) claimIs(src, predicate, dst, status string) error {
	rel, err := s.env.graph.Relation(context.Background(), domain.NewClaimKey(src, dst, predicate))
	if err != nil {
		return err
	}
	if string(rel.Status) != status {
		return fmt.Errorf("expected status %q, got %q", status, rel.Status)
	}
	return nil
}

func (s *promotionScenario) committedEdges(n int) error {
	if got := s.env.edges.Count(); got != n {
		return fmt.Errorf("expected %d committed edges, got %d", n, got)
	}
	return nil
}

func TestPromotionFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name: "promotion",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			s := &promotionScenario{}
			sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				s.env = newTestEnv(t)
				s.outcome, s.err = nil, nil
				return ctx, nil
			})

			sc.Step(`^a document "([^"]*)" proposing "([^"]*)" to "([^"]*)" with strength ([0-9.]+)$`, s.documentProposing)
			sc.Step(`^the exploration graph is materialized$`, s.materialized)
			sc.Step(`^the exploration graph is rebuilt from scratch$`, s.rebuilt)
			sc.Step(`^the claim "([^"]*)" "([^"]*)" "([^"]*)" is promoted$`, s.promoted)
			sc.Step(`^the claim "([^"]*)" "([^"]*)" "([^"]*)" is rejected$`, s.rejected)
			sc.Step(`^the promoted edge has predicate "([^"]*)"$`, s.edgeHasPredicate)
			sc.Step(`^promotion fails because the predicate is unmapped$`, s.failsUnmapped)
			sc.Step(`^the claim "([^"]*)" "([^"]*)" "([^"]*)" is "([^"]*)"$`, s.claimIs)
			sc.Step(`^(\d+) committed edges? exists?$`, s.committedEdges)
		},
		Options: &godog.Options{
			Format:   "progress",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("promotion feature scenarios failed")
	}
}
