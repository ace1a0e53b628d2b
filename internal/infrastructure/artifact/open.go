package artifact

import (
	"context"
	"time"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/internal/infrastructure/persistence"
	"github.com/turtacn/riskserve/pkg/logger"
)

// Opened is a store together with the resources it holds.
type Opened struct {
	Store *Store
	Conn  *persistence.DBConnection
	Paths config.Paths
}

// Close releases the metadata database.
func (o *Opened) Close() {
	o.Conn.Close()
}

// Open resolves the tracking paths, connects the metadata database and returns a
// Store on top of it. The server and the admin CLI share this path.
func Open(ctx context.Context, tc *config.TrackingConfig, log logger.Logger) (*Opened, error) {
	paths, err := config.ResolvePaths(*tc)
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	conn, err := persistence.NewDBConnection(ctx, tc, paths, log)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(Options{
		Experiment:       tc.Experiment,
		ArtifactDir:      paths.ArtifactDir,
		ScalerMirrorPath: paths.ScalerPath,
		CacheTTL:         time.Duration(tc.CacheTTL) * time.Minute,
	}, persistence.NewVersionRepository(conn), log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Opened{Store: store, Conn: conn, Paths: paths}, nil
}

//Personal.AI order the ending
