// Package app wires configuration into the analysis services shared by the
// HTTP server and the aquactl command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"aquavision/internal/analytics"
	"aquavision/internal/auth"
	"aquavision/internal/config"
	"aquavision/internal/database"
	"aquavision/internal/detection"
	"aquavision/internal/earthengine"
	"aquavision/internal/mapview"
	"aquavision/internal/pipeline"
	"aquavision/internal/potability"
	"aquavision/internal/routes"
	"aquavision/internal/services"
	"aquavision/internal/store"
	"aquavision/internal/tiles"
)

const (
	jwtIssuer   = "aquavision"
	loadTimeout = 2 * time.Minute
)

type App struct {
	Services routes.Services

	Potability *potability.Model
	Detector   *detection.Detector

	db      *bun.DB
	tracker analytics.Tracker
	logr    *zap.Logger
}

// Build constructs every service. Model and detector load failures are
// logged and leave those handles unloaded; their endpoints answer 503.
func Build(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*App, error) {
	a := &App{logr: logr}

	runs, operators, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.tracker, err = analytics.NewPostHog(cfg.PostHogKey, cfg.PostHogHost, logr)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("analytics: %w", err)
	}

	ee, err := NewEarthEngine(cfg, logr)
	if err != nil {
		a.Close()
		return nil, err
	}

	params := pipeline.DefaultParams()
	params.StartDate = cfg.TurbidityStartDate
	params.EndDate = cfg.TurbidityEndDate
	params.CloudCeiling = cfg.TurbidityCloudCeiling
	if err := params.Validate(); err != nil {
		a.Close()
		return nil, fmt.Errorf("turbidity window: %w", err)
	}

	a.Potability = potability.NewModel(
		potability.NewRemoteClassifier(cfg.PotabilityEndpoint, nil, logr),
		potability.DefaultOptions(cfg.PotabilityDataset, cfg.PotabilityModel),
		logr,
	)
	a.Detector = detection.NewDetector(
		detection.NewClient(cfg.DetectorEndpoint, nil, logr),
		detection.Options{WeightsPath: cfg.DetectorWeights, ResultsDir: cfg.DetectionResultsDir, MaxSide: detection.DefaultMaxSide},
		logr,
	)
	a.loadModels(ctx)

	pages, err := mapview.NewPages()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Services = routes.Services{
		Turbidity: services.NewTurbidityService(
			pipeline.New(ee, params, logr),
			tiles.NewRenderer(ee, logr),
			mapview.DefaultState(cfg),
			runs, a.tracker, logr,
		),
		Potability: services.NewPotabilityService(a.Potability, runs, a.tracker, logr),
		Detection:  services.NewDetectionService(a.Detector, runs, a.tracker, logr),
		Runs:       services.NewRunService(runs, logr),
		Pages:      pages,
	}

	if cfg.AuthEnabled {
		if operators == nil {
			a.Close()
			return nil, errors.New("AUTH_ENABLED requires DATABASE_URL for operator accounts")
		}
		jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, jwtIssuer)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("jwt manager: %w", err)
		}
		dir := auth.NewLDAPDirectory(cfg.LDAPServer, cfg.LDAPBaseDN, cfg.LDAPDomain, logr)
		a.Services.Auth = services.NewAuthService(operators, dir, jwtMgr, cfg.AccessTokenTTL, logr)
		a.Services.Verifier = jwtMgr
	}

	return a, nil
}

// NewEarthEngine picks service-account credentials when a key file is
// configured and falls back to a static access token.
func NewEarthEngine(cfg *config.Config, logr *zap.Logger) (*earthengine.Client, error) {
	var (
		tokens  earthengine.TokenSource = earthengine.StaticToken(cfg.EEAccessToken)
		project                         = cfg.EEProject
	)

	if cfg.EEServiceAccountKey != "" {
		sa, err := earthengine.LoadServiceAccount(cfg.EEServiceAccountKey, &http.Client{Timeout: 30 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("earth engine credentials: %w", err)
		}
		if project == "" {
			project = sa.ProjectID()
		}
		tokens = sa
		logr.Info("earth engine service account", zap.String("email", sa.Email()), zap.String("project", project))
	} else if cfg.EEAccessToken == "" {
		logr.Warn("no earth engine credentials configured; turbidity analysis will fail")
	}

	return earthengine.NewClient(project, tokens,
		earthengine.WithBaseURL(cfg.EEBaseURL),
		earthengine.WithTimeout(cfg.EETimeout),
		earthengine.WithLogger(logr),
	), nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (store.Runs, store.Operators, error) {
	if cfg.DatabaseURL == "" {
		a.logr.Info("DATABASE_URL not set; run history disabled")
		return store.Disabled{}, nil, nil
	}

	db, err := database.New(cfg.DatabaseURL, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	a.db = db
	return store.NewRunStore(db), store.NewOperatorStore(db), nil
}

func (a *App) loadModels(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	if err := a.Potability.Load(ctx); err != nil {
		a.logr.Error("potability model unavailable", zap.Error(err))
	}
	if err := a.Detector.Load(ctx); err != nil {
		a.logr.Error("detector unavailable", zap.Error(err))
	}
}

// Close flushes analytics and releases the database.
func (a *App) Close() {
	if a.tracker != nil {
		if err := a.tracker.Close(); err != nil {
			a.logr.Warn("analytics flush failed", zap.Error(err))
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
