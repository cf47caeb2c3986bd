package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/zhouruiyy/framework-auto-builder/pkg/cache"
)

// cacheDir returns the analysis cache directory, created on demand by
// the cache itself.
func cacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "framebuild"), nil
}

// openCache opens the on-disk analysis cache. Cache trouble is never
// fatal to a build: on any error the caller gets a nil cache, which the
// pipeline treats as caching disabled.
func openCache(logger *log.Logger) cache.Cache {
	dir, err := cacheDir()
	if err != nil {
		logger.Warn("cache unavailable", "err", err)
		return nil
	}
	c, err := cache.NewFileCache(dir)
	if err != nil {
		logger.Warn("cache unavailable", "dir", dir, "err", err)
		return nil
	}
	return c
}

// newCacheCmd creates the cache management command.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the analysis cache",
	}
	cmd.AddCommand(newCacheClearCmd())
	cmd.AddCommand(newCachePathCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached analysis entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				fmt.Printf("%s cache is empty\n", styleDim.Render(iconInfo))
				return nil
			}
			count := 0
			err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
				if err != nil || path == dir || d.IsDir() {
					return nil
				}
				if err := os.Remove(path); err == nil {
					count++
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s cleared %d cached entries\n", styleSuccess.Render(iconSuccess), count)
			fmt.Printf("  %s\n", styleDim.Render(dir))
			return nil
		},
	}
}

func newCachePathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}
