package graph

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Linker records identity edges. Implementations must be safe to call from
// request goroutines.
type Linker interface {
	LinkAuthorship(ctx context.Context, authorID, reviewID string) error
	LinkClaim(ctx context.Context, customerID, reviewID string, at time.Time) error
	LinkResemblance(ctx context.Context, profileID, existingID, duplicateType string) error
}

// LinkService writes identity edges:
//
//	(:Profile)-[:WROTE]->(:Review)<-[:CLAIMED]-(:Profile)
//	(:Profile)-[:RESEMBLES {type}]->(:Profile)
type LinkService struct {
	client *Client
	logger ectologger.Logger
}

// NewLinkService creates a new link service
func NewLinkService(client *Client, logger ectologger.Logger) *LinkService {
	return &LinkService{
		client: client,
		logger: logger,
	}
}

// LinkAuthorship records that a business wrote a review
func (s *LinkService) LinkAuthorship(ctx context.Context, authorID, reviewID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkService.LinkAuthorship")
	defer span.End()

	return s.write(ctx, `
		MERGE (p:Profile {id: $author_id})
		MERGE (r:Review {id: $review_id})
		MERGE (p)-[:WROTE]->(r)
	`, map[string]any{
		"author_id": authorID,
		"review_id": reviewID,
	})
}

// LinkClaim records that a customer claimed a review. MERGE keeps repeated
// calls for the same pair from creating parallel edges.
func (s *LinkService) LinkClaim(ctx context.Context, customerID, reviewID string, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkService.LinkClaim")
	defer span.End()

	return s.write(ctx, `
		MERGE (c:Profile {id: $customer_id})
		MERGE (r:Review {id: $review_id})
		MERGE (c)-[e:CLAIMED]->(r)
		ON CREATE SET e.claimed_at = $claimed_at
	`, map[string]any{
		"customer_id": customerID,
		"review_id":   reviewID,
		"claimed_at":  at.UTC().Format(time.RFC3339),
	})
}

// LinkResemblance records a soft duplicate between a new and an existing profile
func (s *LinkService) LinkResemblance(ctx context.Context, profileID, existingID, duplicateType string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkService.LinkResemblance")
	defer span.End()

	return s.write(ctx, `
		MERGE (a:Profile {id: $profile_id})
		MERGE (b:Profile {id: $existing_id})
		MERGE (a)-[e:RESEMBLES]->(b)
		SET e.type = $type
	`, map[string]any{
		"profile_id":  profileID,
		"existing_id": existingID,
		"type":        duplicateType,
	})
}

func (s *LinkService) write(ctx context.Context, cypher string, params map[string]any) error {
	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		_, err = result.Consume(ctx)
		return nil, err
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to write graph link")
	}
	return err
}

// NoopLinker discards links. Used when the graph database is disabled.
type NoopLinker struct{}

func (NoopLinker) LinkAuthorship(context.Context, string, string) error { return nil }

func (NoopLinker) LinkClaim(context.Context, string, string, time.Time) error { return nil }

func (NoopLinker) LinkResemblance(context.Context, string, string, string) error { return nil }
