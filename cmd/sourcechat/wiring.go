package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/PabloGalante/sourcechat/internal/adapters/backend"
	firestorestore "github.com/PabloGalante/sourcechat/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/sourcechat/internal/adapters/storage/memory"
	"github.com/PabloGalante/sourcechat/internal/app/chat"
	"github.com/PabloGalante/sourcechat/internal/app/feedback"
	"github.com/PabloGalante/sourcechat/internal/config"
	"github.com/PabloGalante/sourcechat/internal/domain"
	"github.com/PabloGalante/sourcechat/internal/observability"
)

type app struct {
	svc      *chat.Service
	feedback *feedback.Service
	closers  []func() error
}

func (a *app) Close() {
	if a.svc != nil {
		a.svc.Shutdown()
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			observability.Logger().Warn("close failed", zap.Error(err))
		}
	}
}

type stores struct {
	sources  domain.SourceStore
	profiles domain.ProfileStore
	ratings  domain.RatingStore
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := observability.Logger()
	a := &app{}

	// Storage: Firestore or Memory
	var st stores
	switch cfg.StorageBackend {
	case "firestore":
		log.Info("using firestore storage", zap.String("project", cfg.GCPProjectID))
		fs, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("initializing firestore store: %w", err)
		}
		a.closers = append(a.closers, fs.Close)

		// 1 store, implements 3 interfaces
		st = stores{sources: fs, profiles: fs, ratings: fs}

	default:
		log.Info("using in-memory storage")
		sources := memstore.NewSourceStore()
		profiles := memstore.NewProfileStore()
		seedDemo(sources, profiles)
		st = stores{sources: sources, profiles: profiles, ratings: memstore.NewRatingStore()}
	}

	// Answer backend: mock, remote RAG service or local Gemini
	var ab domain.AnswerBackend
	switch cfg.AnswerBackend {
	case "http":
		log.Info("using http answer backend", zap.String("url", cfg.BackendURL))
		ab = backend.NewHTTPClient(cfg.BackendURL, cfg.AskPath, cfg.ConfirmPath, cfg.HTTPTimeout)
	case "vertex":
		log.Info("using vertex answer backend", zap.String("model", cfg.ModelName))
		v, err := backend.NewVertexBackend(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName, st.sources)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initializing vertex backend: %w", err)
		}
		ab = v
	default:
		log.Info("using mock answer backend", zap.String("suggestion", cfg.MockSuggestion))
		ab = backend.NewMock(cfg.MockSuggestion)
	}

	a.svc = chat.NewService(ab, st.sources, st.profiles, st.ratings,
		chat.WithCountdown(cfg.CountdownSeconds),
		chat.WithModelProvider(cfg.ModelProvider),
	)
	a.feedback = feedback.NewService(st.ratings)
	return a, nil
}

const (
	demoUser  domain.UserID  = "local"
	demoAgent domain.AgentID = "demo"
)

// seedDemo gives local mode a user and an agent to talk to.
func seedDemo(sources *memstore.SourceStore, profiles *memstore.ProfileStore) {
	profiles.PutProfile(domain.Profile{UserID: demoUser, TeamID: "local-team", Namespace: "local"})
	sources.PutSources(demoAgent,
		domain.Source{ID: "handbook", Nickname: "handbook", Name: "Employee handbook", Type: domain.SourceDocument,
			Description: "Policies, benefits and vacation rules."},
		domain.Source{ID: "sales", Nickname: "sales", Name: "Sales pipeline", Type: domain.SourceTable,
			Description: "Deals by stage, owner and amount."},
		domain.Source{ID: "site", Name: "Company website", Type: domain.SourceWebsite,
			Description: "Public product pages."},
	)
}
