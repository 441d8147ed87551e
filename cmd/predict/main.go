// Command predict runs the risk analysis pipeline from the terminal. Text is
// taken from the command line, or read line by line from stdin when no
// arguments are given.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/serenity-health/risk-api/internal/model"
	"github.com/serenity-health/risk-api/internal/risk"
	"github.com/serenity-health/risk-api/pkg/logging"
)

func main() {
	modelPath := flag.String("model", "models/text_classifier.json", "path to the classifier bundle")
	labelsPath := flag.String("labels", "models/labels.json", "path to the optional label override file")
	flag.Parse()

	logger := logging.New("error")

	bundle, err := model.LoadBundle(*modelPath, *labelsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load model: %v\n", err)
		os.Exit(1)
	}
	adapter := model.NewAdapter(bundle, logger)

	matcher := risk.NewPatternMatcher(logger)
	engine := risk.NewEngine(logger)

	if args := flag.Args(); len(args) > 0 {
		analyze(adapter, matcher, engine, strings.Join(args, " "))
		return
	}

	fmt.Println("Enter text to analyze (Ctrl-D to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		analyze(adapter, matcher, engine, text)
	}
}

func analyze(adapter *model.Adapter, matcher *risk.PatternMatcher, engine *risk.Engine, text string) {
	ctx := context.Background()

	flags := matcher.Match(ctx, text)

	pred, err := adapter.Predict(ctx, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "prediction failed: %v\n", err)
		action := engine.Decide("", 0, flags)
		fmt.Printf("flags:      %v\naction:     %s\n", flags.Strings(), action)
		return
	}

	action := engine.Decide(pred.Label, pred.Confidence, flags)

	fmt.Printf("label:      %s\n", pred.Label)
	fmt.Printf("confidence: %.4f\n", pred.Confidence)
	if len(pred.Probabilities) > 0 {
		labels := make([]string, 0, len(pred.Probabilities))
		for label := range pred.Probabilities {
			labels = append(labels, label)
		}
		sort.Slice(labels, func(i, j int) bool {
			return pred.Probabilities[labels[i]] > pred.Probabilities[labels[j]]
		})
		fmt.Println("probabilities:")
		for _, label := range labels {
			fmt.Printf("  %-12s %.4f\n", label, pred.Probabilities[label])
		}
	}
	fmt.Printf("flags:      %v\n", flags.Strings())
	fmt.Printf("action:     %s\n", action)
}
