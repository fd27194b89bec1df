package detach

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gnana997/detachr/pkg/document"
	"github.com/gnana997/detachr/pkg/util"
)

// FontLoader makes a font face available for text edits.
type FontLoader interface {
	LoadFont(ctx context.Context, font document.FontName) error
}

// LoadFonts requests every font concurrently and waits for all of them.
// The returned map holds the faces that failed, with their errors; a
// single failure does not stop the other loads.
func LoadFonts(ctx context.Context, loader FontLoader, fonts []document.FontName, logger *slog.Logger) (map[document.FontName]error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	failed := make(map[document.FontName]error)
	if len(fonts) == 0 {
		return failed, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(util.GetOptimalPoolSize())
	for _, font := range fonts {
		g.Go(func() error {
			if err := loader.LoadFont(gctx, font); err != nil {
				logger.Warn("font load failed", "font", font.String(), "error", err)
				mu.Lock()
				failed[font] = err
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Debug("fonts loaded", "requested", len(fonts), "failed", len(failed))
	return failed, nil
}
