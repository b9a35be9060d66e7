package main

import (
	"github.com/tverberg/blogsmith/internal/config"
	"github.com/tverberg/blogsmith/internal/content"
)

// discoverFiles enumerates content files using the configured globs.
func discoverFiles(cfg *config.Config) ([]string, error) {
	files, err := content.NewDiscovery(cfg.Content.Dir, cfg.Content.Include, cfg.Content.Exclude).Discover()
	if err != nil {
		return nil, err
	}
	rels := make([]string, 0, len(files))
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	return rels, nil
}
