package main

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/jonathan/resume-builder/internal/assist"
	"github.com/jonathan/resume-builder/internal/editor"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/spf13/cobra"
)

var (
	generateInput    string
	generateOutput   string
	generateTarget   string
	generateIndex    int
	generateTone     string
	generateKeywords string
	generateOffline  bool
	generateSeed     uint64
	generateProxyURL string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the summary or an experience description with the assistant",
	Long: `Generate text for the summary or one experience entry, the same way AI Write does in the editor:
through the completion proxy, falling back to offline suggestions when the proxy fails.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateInput, "in", "i", "", "Path to a resume JSON document (default: demo document)")
	generateCmd.Flags().StringVarP(&generateOutput, "out", "o", "", "Write the updated document here")
	generateCmd.Flags().StringVar(&generateTarget, "target", string(assist.KindSummary), "Target: summary or experience")
	generateCmd.Flags().IntVar(&generateIndex, "index", 0, "Experience entry index (with --target experience)")
	generateCmd.Flags().StringVar(&generateTone, "tone", assist.ToneProfessional, "Tone: professional, energetic or executive")
	generateCmd.Flags().StringVar(&generateKeywords, "keywords", "", "Keywords to include")
	generateCmd.Flags().BoolVar(&generateOffline, "offline", false, "Skip the proxy and use offline suggestions")
	generateCmd.Flags().Uint64Var(&generateSeed, "rand-seed", 0, "Seed for offline suggestions (0: random)")
	generateCmd.Flags().StringVar(&generateProxyURL, "proxy-url", "", "Base URL of the completion proxy (default from config)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadSettings()
	if err != nil {
		return err
	}

	doc, err := loadDocument(generateInput)
	if err != nil {
		return err
	}
	session := editor.NewSession(doc, editor.RenderFunc(rendering.Render), logger)

	target := assist.Target{Kind: assist.Kind(generateTarget)}
	if target.Kind == assist.KindExperience {
		controls, err := session.Controls(editor.KindExperience)
		if err != nil {
			return err
		}
		if generateIndex < 0 || generateIndex >= len(controls) {
			return fmt.Errorf("experience index %d out of range (document has %d entries)", generateIndex, len(controls))
		}
		target.ID = controls[generateIndex].ID
	}

	var completer assist.Completer
	proxyURL := cfg.Assist.ProxyURL
	if generateProxyURL != "" {
		proxyURL = generateProxyURL
	}
	if !generateOffline && proxyURL != "" {
		completer = assist.NewProxyClient(proxyURL, cfg.Assist.Token, cfg.AssistTimeout())
	}

	opts := []assist.Option{
		assist.WithLogger(logger),
		assist.WithSampling(cfg.Assist.Temperature, cfg.Assist.MaxTokens),
	}
	if generateSeed != 0 {
		opts = append(opts, assist.WithFallback(assist.NewFallback(rand.NewPCG(generateSeed, generateSeed))))
	}
	controller := assist.NewController(session, completer, opts...)

	result, err := controller.Generate(context.Background(), target, generateTone, generateKeywords)
	if err != nil {
		return err
	}

	title := "GENERATED SUMMARY"
	if target.Kind == assist.KindExperience {
		title = fmt.Sprintf("GENERATED EXPERIENCE #%d", generateIndex)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintGenerated(title, string(result.Source), result.Text)

	if generateOutput == "" {
		return nil
	}
	data, err := session.Export()
	if err != nil {
		return err
	}
	return writeOutput(generateOutput, data)
}
