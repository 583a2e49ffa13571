package main

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// loadStockImages reads category fallback images from an INI file. Every key
// of the [stock_images] section is a category name mapped to an image URL:
//
//	[stock_images]
//	Chicken = https://example.com/chicken.jpg
//	Ice Cream = https://example.com/ice-cream.jpg
func loadStockImages(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading stock images: %w", err)
	}

	images := make(map[string]string)
	for _, key := range cfg.Section("stock_images").Keys() {
		url := strings.TrimSpace(key.String())
		if url == "" {
			continue
		}
		images[strings.TrimSpace(key.Name())] = url
	}
	return images, nil
}
