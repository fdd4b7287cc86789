// Command incomeclf-predict loads the champion artifact and scores one
// feature record supplied as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/paveg/incomeclf"
	"github.com/paveg/incomeclf/internal/version"
)

func customUsage() {
	fmt.Fprintf(os.Stderr, "Income classifier predictor (version %s)\n\n", version.Version)
	fmt.Fprintf(os.Stderr, "Usage: incomeclf-predict --features JSON [options]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	fmt.Fprintf(os.Stderr, "  --features JSON\n\t\tFeature record as a JSON object, or @FILE to read from a file\n")
	fmt.Fprintf(os.Stderr, "  --artifact FILE\n\t\tChampion artifact to load (default: artifacts/champion.bin)\n")
	fmt.Fprintf(os.Stderr, "  --schema FILE\n\t\tYAML feature schema (default: built-in census schema)\n")
	fmt.Fprintf(os.Stderr, "  --top N\n\t\tNumber of ranked feature contributions to return (default: 8)\n")
	fmt.Fprintf(os.Stderr, "  -v, --version\n\t\tPrint version information and exit\n")
	fmt.Fprintf(os.Stderr, "  -h, --help\n\t\tShow this help message and exit\n")
}

func main() {
	versionFlag := flag.Bool("v", false, "Print version and exit")
	flag.BoolVar(versionFlag, "version", false, "Print version and exit") // alias
	featuresFlag := flag.String("features", "", "Feature record as JSON, or @FILE")
	artifactFlag := flag.String("artifact", "", "Champion artifact to load")
	schemaFlag := flag.String("schema", "", "YAML feature schema file")
	topFlag := flag.Int("top", 0, "Number of ranked feature contributions")

	//nolint:reassign // Standard Go pattern for customizing flag usage message
	flag.Usage = customUsage

	flag.Parse()

	if *versionFlag {
		fmt.Print(version.Info().String())
		return
	}
	if *featuresFlag == "" {
		flag.Usage()
		os.Exit(1)
	}

	raw := *featuresFlag
	if strings.HasPrefix(raw, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(raw, "@"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		raw = string(data)
	}
	var features map[string]float64
	if err := json.Unmarshal([]byte(raw), &features); err != nil {
		fmt.Fprintf(os.Stderr, "invalid feature JSON: %v\n", err)
		os.Exit(1)
	}

	cfg := incomeclf.DefaultConfig()
	if *artifactFlag != "" {
		cfg.ArtifactPath = *artifactFlag
	}
	if *schemaFlag != "" {
		cfg.SchemaPath = *schemaFlag
	}

	engine, err := incomeclf.NewEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *topFlag > 0 {
		engine.SetTopN(*topFlag)
	}
	if err := engine.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	result, err := engine.Predict(features)
	if err != nil {
		fmt.Fprintf(os.Stderr, "prediction failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
