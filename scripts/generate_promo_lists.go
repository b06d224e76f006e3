package main

import (
	"compress/gzip"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Generates gzipped promo code lists for local development. The server
// loads these via PROMO_CODES_FILE; a code in any list is valid.
func main() {
	dataDir := "data/promos"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	lists := map[string][]string{
		"codes.gz": {
			"WELCOME10",
			"FIRSTBUY",
			"GOLDLOVE",
		},
		"seasonal.gz": {
			"FESTIVE20",
			"DIWALI2026",
			"RAKHI2026",
		},
	}

	for filename, codes := range lists {
		path := filepath.Join(dataDir, filename)
		if err := writeList(path, codes); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		fmt.Printf("wrote %s (%d codes)\n", path, len(codes))
	}
}

func writeList(path string, codes []string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	for _, code := range codes {
		if _, err := fmt.Fprintln(gz, code); err != nil {
			return err
		}
	}
	return gz.Close()
}
