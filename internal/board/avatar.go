package board

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/qalthos/infoboard/internal/domain"
)

// prefetchConcurrency bounds the parallel avatar downloads.
const prefetchConcurrency = 4

// PrefetchAvatars downloads the avatars of the given users into dir,
// skipping files already cached. Individual download failures are logged
// per user and never fail the whole prefetch; a stale board beats a broken
// one.
func PrefetchAvatars(ctx context.Context, users []domain.User, dir string, logger *log.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create avatar cache %q: %w", dir, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)
	for _, user := range users {
		if user.AvatarURL == "" || user.AvatarFile == "" {
			continue
		}
		path := filepath.Join(dir, user.AvatarFile)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		g.Go(func() error {
			if err := fetchAvatar(ctx, user.AvatarURL, path); err != nil {
				logger.Printf("avatar for %s not cached: %v", user.Login, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func fetchAvatar(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	// Write to a temp file first so a cut download never leaves a truncated
	// image behind.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".avatar-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
