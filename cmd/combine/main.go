// Command combine merges the labeled CSV datasets in a directory into a
// single deduplicated training file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/serenity-health/risk-api/internal/dataset"
	"github.com/serenity-health/risk-api/pkg/logging"
)

func main() {
	dir := flag.String("dir", "data", "directory containing the input CSV datasets")
	output := flag.String("output", "combined.csv", "output file name, written inside -dir")
	minLength := flag.Int("min-length", 3, "minimum text length to keep a row")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := logging.New(*logLevel)

	combiner := dataset.NewCombiner(logger)
	combiner.MinTextLength = *minLength

	stats, err := combiner.Combine(*dir, *output)
	if err != nil {
		logger.Error("combine failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("combined %d files: %d rows written (%d dropped, %d duplicates)\n",
		stats.Files, stats.Written, stats.Dropped, stats.Duplicates)
}
