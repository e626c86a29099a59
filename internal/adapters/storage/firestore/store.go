package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/sourcechat/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store for the given project.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// NewStoreFromClient wraps an existing client, e.g. one pointed at the emulator.
func NewStoreFromClient(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sourcesCol(agentID domain.AgentID) *firestore.CollectionRef {
	return s.client.Collection("agents").Doc(string(agentID)).Collection("sources")
}

func (s *Store) userDoc(id domain.UserID) *firestore.DocumentRef {
	return s.client.Collection("users").Doc(string(id))
}

func (s *Store) ratingsCol() *firestore.CollectionRef {
	return s.client.Collection("ratings")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sourceDoc struct {
	Nickname    string `firestore:"nickname"`
	Name        string `firestore:"name"`
	Type        string `firestore:"type"`
	Description string `firestore:"description"`
}

type userDoc struct {
	TeamID    string `firestore:"team_id"`
	Namespace string `firestore:"namespace"`
}

type ratingDoc struct {
	SessionID string    `firestore:"session_id"`
	MessageID string    `firestore:"message_id"`
	UserID    string    `firestore:"user_id"`
	AgentID   string    `firestore:"agent_id"`
	Value     string    `firestore:"value"`
	Comment   string    `firestore:"comment"`
	Question  string    `firestore:"question"`
	Answer    string    `firestore:"answer"`
	CreatedAt time.Time `firestore:"created_at"`
}

// ─────────────────────────────────────────
// SourceStore implementation
// ─────────────────────────────────────────

func (s *Store) ListSources(ctx context.Context, agentID domain.AgentID) ([]domain.Source, error) {
	iter := s.sourcesCol(agentID).Documents(ctx)
	defer iter.Stop()

	var out []domain.Source
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListSources: %w", err)
		}

		var doc sourceDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sourceDoc: %w", err)
		}

		out = append(out, domain.Source{
			ID:          domain.SourceID(snap.Ref.ID),
			Nickname:    doc.Nickname,
			Name:        doc.Name,
			Type:        domain.ParseSourceType(doc.Type),
			Description: doc.Description,
		})
	}
	return out, nil
}

// ─────────────────────────────────────────
// ProfileStore implementation
// ─────────────────────────────────────────

func (s *Store) GetProfile(ctx context.Context, userID domain.UserID) (*domain.Profile, error) {
	snap, err := s.userDoc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("profile %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetProfile: %w", err)
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetProfile decode: %w", err)
	}

	return &domain.Profile{
		UserID:    userID,
		TeamID:    domain.TeamID(doc.TeamID),
		Namespace: doc.Namespace,
	}, nil
}

// ─────────────────────────────────────────
// RatingStore implementation
// ─────────────────────────────────────────

// SaveRating writes one doc per rated message, so re-rating overwrites.
func (s *Store) SaveRating(ctx context.Context, r *domain.Rating) error {
	doc := ratingDoc{
		SessionID: string(r.SessionID),
		MessageID: string(r.MessageID),
		UserID:    string(r.UserID),
		AgentID:   string(r.AgentID),
		Value:     string(r.Value),
		Comment:   r.Comment,
		Question:  r.Question,
		Answer:    r.Answer,
		CreatedAt: r.CreatedAt,
	}

	if _, err := s.ratingsCol().Doc(r.Key()).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore SaveRating: %w", err)
	}
	return nil
}

// ListRatingsByAgent returns the newest `limit` ratings, newest first.
func (s *Store) ListRatingsByAgent(ctx context.Context, agentID domain.AgentID, limit int) ([]*domain.Rating, error) {
	q := s.ratingsCol().Where("agent_id", "==", string(agentID)).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Rating
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListRatingsByAgent: %w", err)
		}

		var doc ratingDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode ratingDoc: %w", err)
		}

		out = append(out, &domain.Rating{
			ID:        snap.Ref.ID,
			SessionID: domain.SessionID(doc.SessionID),
			MessageID: domain.MessageID(doc.MessageID),
			UserID:    domain.UserID(doc.UserID),
			AgentID:   domain.AgentID(doc.AgentID),
			Value:     domain.RatingValue(doc.Value),
			Comment:   doc.Comment,
			Question:  doc.Question,
			Answer:    doc.Answer,
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}
