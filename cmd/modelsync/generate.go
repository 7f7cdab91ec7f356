package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"modelsync/internal/apiclient"
	"modelsync/internal/manager"
	"modelsync/pkg/types"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		req  types.GenerationRequest
		seed int64
		out  string
	)
	cmd := &cobra.Command{
		Use:     "generate",
		Short:   "Generate an image with the selected model",
		Example: "  modelsync generate --prompt \"a lighthouse at dusk\" --out lighthouse.png",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			res, err := a.generate(ctx, req)
			if err != nil {
				return err
			}
			img := res.Image
			fmt.Fprintf(a.out, "request %s: image %s (%dx%d, seed %d) in %.1fs\n",
				res.RequestID, img.ImageID, img.Width, img.Height, img.Seed, img.GenerationTime)
			if img.ImageURL != "" {
				fmt.Fprintf(a.out, "url: %s%s\n", a.cfg.ServerURL, img.ImageURL)
			}
			if out == "" {
				return nil
			}
			if img.ImageBase64 == "" {
				return fmt.Errorf("backend returned no inline image; fetch %s instead", img.ImageURL)
			}
			data, err := base64.StdEncoding.DecodeString(img.ImageBase64)
			if err != nil {
				return fmt.Errorf("decode image: %w", err)
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&req.Prompt, "prompt", "p", "", "Prompt text (required)")
	f.StringVarP(&req.ModelID, "model", "m", "", "Model id; defaults to the selected model")
	f.IntVar(&req.Width, "width", manager.DefaultImageSize, "Image width")
	f.IntVar(&req.Height, "height", manager.DefaultImageSize, "Image height")
	f.IntVar(&req.NumInferenceSteps, "steps", manager.DefaultSteps, "Inference steps")
	f.Float64Var(&req.GuidanceScale, "guidance", manager.DefaultGuidanceScale, "Guidance scale")
	f.Int64Var(&seed, "seed", 0, "Seed; omitted lets the backend choose")
	f.StringVar(&req.NegativePrompt, "negative", "", "Negative prompt")
	f.StringVarP(&out, "out", "o", "", "Write the image to this file")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

// generate syncs the registry once so selection and readiness are known,
// then submits req through the guard.
func (a *app) generate(ctx context.Context, req types.GenerationRequest) (manager.Result, error) {
	st, err := a.buildStack()
	if err != nil {
		return manager.Result{}, err
	}
	defer func() { _ = st.shutdown() }()
	if _, err := st.start(ctx); err != nil {
		return manager.Result{}, err
	}
	res, err := st.mgr.Generate(ctx, req)
	if err != nil {
		return manager.Result{}, fmt.Errorf("generate: %s", apiclient.DetailOf(err))
	}
	return res, nil
}
