package main

import (
	"encoding/json"
	"fmt"
	"os"
)

func loadBatchManifest(path string) (*batchManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch manifest %s: %w", path, err)
	}

	var m batchManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing batch manifest %s: %w", path, err)
	}

	return &m, nil
}
