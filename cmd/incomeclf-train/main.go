// Command incomeclf-train runs the training pipeline: it ingests a raw
// census CSV, searches the classifier grids, and persists the champion
// artifact.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/paveg/incomeclf"
	"github.com/paveg/incomeclf/internal/version"
)

func customUsage() {
	fmt.Fprintf(os.Stderr, "Income classifier trainer (version %s)\n\n", version.Version)
	fmt.Fprintf(os.Stderr, "Usage: incomeclf-train --data FILE [options]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	fmt.Fprintf(os.Stderr, "  --data FILE\n\t\tPath to the raw census CSV dataset (required)\n")
	fmt.Fprintf(os.Stderr, "  --artifact FILE\n\t\tWhere to write the champion artifact (default: artifacts/champion.bin)\n")
	fmt.Fprintf(os.Stderr, "  --config FILE\n\t\tJSON or YAML configuration file\n")
	fmt.Fprintf(os.Stderr, "  --schema FILE\n\t\tYAML feature schema (default: built-in census schema)\n")
	fmt.Fprintf(os.Stderr, "  --folds N\n\t\tNumber of cross-validation folds (default: 5)\n")
	fmt.Fprintf(os.Stderr, "  --seed N\n\t\tRandom seed for splits and stochastic families (default: 42)\n")
	fmt.Fprintf(os.Stderr, "  --verbose\n\t\tEnable verbose logging\n")
	fmt.Fprintf(os.Stderr, "  -v, --version\n\t\tPrint version information and exit\n")
	fmt.Fprintf(os.Stderr, "  -h, --help\n\t\tShow this help message and exit\n")
}

func main() {
	versionFlag := flag.Bool("v", false, "Print version and exit")
	flag.BoolVar(versionFlag, "version", false, "Print version and exit") // alias
	dataFlag := flag.String("data", "", "Path to the raw census CSV dataset")
	artifactFlag := flag.String("artifact", "", "Where to write the champion artifact")
	configFlag := flag.String("config", "", "JSON or YAML configuration file")
	schemaFlag := flag.String("schema", "", "YAML feature schema file")
	foldsFlag := flag.Int("folds", 0, "Number of cross-validation folds")
	seedFlag := flag.Int64("seed", 0, "Random seed")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose logging")

	//nolint:reassign // Standard Go pattern for customizing flag usage message
	flag.Usage = customUsage

	flag.Parse()

	if *versionFlag {
		fmt.Print(version.Info().String())
		return
	}

	cfg := incomeclf.DefaultConfig()
	if *configFlag != "" {
		loaded, err := incomeclf.LoadConfig(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *dataFlag != "" {
		cfg.DataPath = *dataFlag
	}
	if *artifactFlag != "" {
		cfg.ArtifactPath = *artifactFlag
	}
	if *schemaFlag != "" {
		cfg.SchemaPath = *schemaFlag
	}
	if *foldsFlag > 0 {
		cfg.CVFolds = *foldsFlag
	}
	if *seedFlag != 0 {
		cfg.Seed = *seedFlag
	}
	if *verboseFlag {
		cfg.VerboseLogging = true
	}

	if cfg.DataPath == "" {
		flag.Usage()
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	report, err := incomeclf.Train(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "training failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Print(report.String())
	fmt.Printf("  Duration:      %s\n", report.Duration.Round(1e7))
}
