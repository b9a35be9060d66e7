package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goliatone/go-slug"

	"github.com/tverberg/blogsmith/internal/config"
)

const postTemplate = `---
title: %q
date: %s
tags: []
description: ""
draft: true
---

Write here.
`

// runNew scaffolds a draft post named after the slugified title.
func runNew(title string) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	s, err := slug.Normalize(title)
	if err != nil || s == "" {
		return fmt.Errorf("cannot derive a slug from %q", title)
	}

	path := filepath.Join(cfg.Content.Dir, s+".md")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("post already exists: %s", path)
	}

	doc := fmt.Sprintf(postTemplate, title, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write post file: %w", err)
	}

	fmt.Printf("created %s\n", path)
	return nil
}
