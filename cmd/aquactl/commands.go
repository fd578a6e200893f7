package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aquavision/internal/analytics"
	"aquavision/internal/app"
	"aquavision/internal/config"
	"aquavision/internal/detection"
	"aquavision/internal/geometry"
	"aquavision/internal/logger"
	"aquavision/internal/mapview"
	"aquavision/internal/models"
	"aquavision/internal/pipeline"
	"aquavision/internal/potability"
	"aquavision/internal/services"
	"aquavision/internal/store"
	"aquavision/internal/tiles"
)

type cli struct {
	verbose bool
	cfg     *config.Config
	logr    *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "aquactl",
		Short:         "Run the water-quality analyses from the command line",
		Long:          `aquactl runs turbidity, potability and waste-detection analyses against the same backends as the server, using the server's environment configuration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.cfg = config.Load()
			if c.verbose {
				c.logr = logger.New(c.cfg).Logger
			} else {
				c.logr = logger.Nop().Logger
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(c.turbidityCmd(), c.potabilityCmd(), c.detectCmd(), c.legendCmd())
	return root
}

func (c *cli) turbidityCmd() *cobra.Command {
	var bbox string

	cmd := &cobra.Command{
		Use:   "turbidity",
		Short: "Compute NDWI and NDTI overlays for a bounding box",
		RunE: func(cmd *cobra.Command, args []string) error {
			box, err := geometry.ParseBBox(bbox)
			if err != nil {
				return err
			}

			ee, err := app.NewEarthEngine(c.cfg, c.logr)
			if err != nil {
				return err
			}
			params := pipeline.DefaultParams()
			params.StartDate = c.cfg.TurbidityStartDate
			params.EndDate = c.cfg.TurbidityEndDate
			params.CloudCeiling = c.cfg.TurbidityCloudCeiling
			if err := params.Validate(); err != nil {
				return err
			}

			svc := services.NewTurbidityService(
				pipeline.New(ee, params, c.logr),
				tiles.NewRenderer(ee, c.logr),
				mapview.DefaultState(c.cfg),
				store.Disabled{}, analytics.Nop{}, c.logr,
			)
			resp, err := svc.AnalyzeBBox(cmd.Context(), box, "")
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVarP(&bbox, "bbox", "b", "", "Bounding box as minLon,minLat,maxLon,maxLat")
	_ = cmd.MarkFlagRequired("bbox")
	return cmd
}

func (c *cli) potabilityCmd() *cobra.Command {
	var sample models.WaterSample

	cmd := &cobra.Command{
		Use:   "potability",
		Short: "Predict whether a water sample is potable",
		RunE: func(cmd *cobra.Command, args []string) error {
			model := potability.NewModel(
				potability.NewRemoteClassifier(c.cfg.PotabilityEndpoint, nil, c.logr),
				potability.DefaultOptions(c.cfg.PotabilityDataset, c.cfg.PotabilityModel),
				c.logr,
			)
			if err := model.Load(cmd.Context()); err != nil {
				return fmt.Errorf("load potability model: %w", err)
			}

			result, err := services.NewPotabilityService(model, store.Disabled{}, analytics.Nop{}, c.logr).
				Predict(cmd.Context(), sample, "")
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&sample.PH, "ph", 7, "pH value (0-14)")
	f.Float64Var(&sample.Hardness, "hardness", 0, "Hardness (mg/L)")
	f.Float64Var(&sample.Solids, "solids", 0, "Solids (ppm)")
	f.Float64Var(&sample.Chloramines, "chloramines", 0, "Chloramines (ppm)")
	f.Float64Var(&sample.Sulfate, "sulfate", 0, "Sulfate (mg/L)")
	f.Float64Var(&sample.Conductivity, "conductivity", 0, "Conductivity (μS/cm)")
	f.Float64Var(&sample.OrganicCarbon, "organic-carbon", 0, "Organic carbon (mg/L)")
	f.Float64Var(&sample.Trihalomethanes, "trihalomethanes", 0, "Trihalomethanes (μg/L)")
	f.Float64Var(&sample.Turbidity, "turbidity", 0, "Turbidity (NTU)")
	return cmd
}

func (c *cli) detectCmd() *cobra.Command {
	var imagePath, outPath string

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect plastic waste in an underwater image",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(imagePath)
			if err != nil {
				return err
			}
			defer f.Close()

			det := detection.NewDetector(
				detection.NewClient(c.cfg.DetectorEndpoint, nil, c.logr),
				detection.Options{WeightsPath: c.cfg.DetectorWeights, MaxSide: detection.DefaultMaxSide},
				c.logr,
			)
			if err := det.Load(cmd.Context()); err != nil {
				return fmt.Errorf("load detector: %w", err)
			}

			result, err := services.NewDetectionService(det, store.Disabled{}, analytics.Nop{}, c.logr).
				Detect(cmd.Context(), f, imagePath, "")
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := writeAnnotated(outPath, result.ImageBase64); err != nil {
					return err
				}
				result.SavedPath = outPath
			}
			result.ImageBase64 = ""
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Image to analyse (jpg or png)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the annotated JPEG here")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func (c *cli) legendCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:       "legend NDWI|NDTI",
		Short:     "Render a colour legend for a spectral index",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{pipeline.IndexNDWI, pipeline.IndexNDTI},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToUpper(args[0])
			ramp := pipeline.NDWIPalette
			switch name {
			case pipeline.IndexNDWI:
			case pipeline.IndexNDTI:
				ramp = pipeline.NDTIPalette
			default:
				return fmt.Errorf("unknown index %q", args[0])
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return mapview.WriteLegend(out, name, ramp)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output PNG path (default stdout)")
	return cmd
}

func writeAnnotated(path, encoded string) error {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode annotated image: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

