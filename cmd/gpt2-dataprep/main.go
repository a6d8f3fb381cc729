// Command gpt2-dataprep prepares fine-tuning corpora for the GPT-2 trainer.
// It maps JSONL, CSV or plain-text records into the label/text layout,
// splits them by position into train/validation/test artifacts, and can
// inspect, measure or fetch those artifacts. Locations may be local paths,
// s3://bucket/key URLs or (for reads) http(s):// URLs.
package main

import (
	goflag "flag"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/trisongz/gpt2-text-generation/pkg/config"
	"github.com/trisongz/gpt2-text-generation/pkg/storage"
)

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	if err := newRootCmd().Execute(); err != nil {
		klog.Flush()
		os.Exit(1)
	}
}

// app carries what every subcommand shares.
type app struct {
	v         *viper.Viper
	cfgFile   string
	rootFlags *pflag.FlagSet
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:          "gpt2-dataprep",
		Short:        "Prepare label/text datasets for GPT-2 fine-tuning",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	a.rootFlags = pflag.NewFlagSet("root", pflag.ContinueOnError)
	a.rootFlags.StringVarP(&a.cfgFile, "config", "c", "", "YAML config file")
	a.rootFlags.String("s3-endpoint", "", "S3-compatible endpoint URL")
	a.rootFlags.String("s3-region", "", "S3 region")
	a.rootFlags.String("s3-access-key", "", "S3 access key (default credential chain when empty)")
	a.rootFlags.String("s3-secret-key", "", "S3 secret key")
	a.rootFlags.Bool("s3-path-style", false, "use path-style S3 addressing (MinIO)")
	rootCmd.PersistentFlags().AddFlagSet(a.rootFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(goflag.CommandLine)

	transformFlags := pflag.NewFlagSet("transform", pflag.ContinueOnError)
	transformFlags.StringP("input", "i", "", "input JSONL, CSV or text file (or a directory holding exactly one)")
	transformFlags.StringP("output", "o", "", "output base path; writes <base>_{train|val|test}.<format>")
	transformFlags.String("input-format", "", "input format: jsonl, csv or txt (default from extension)")
	transformFlags.StringP("format", "f", "csv", "output format: csv or jsonl")
	transformFlags.String("text-field", "text", "field holding the target text")
	transformFlags.String("label-field", "", "field holding the label; empty for label-less output")
	transformFlags.StringSlice("fields", nil, "ordered field list: text[,label]; overrides --text-field/--label-field")
	transformFlags.Bool("skip-invalid", false, "skip and count records that cannot be mapped or encoded instead of aborting")
	transformFlags.Bool("manifest", true, "write <base>_manifest.yaml")
	transformFlags.String("metrics-file", "", "write run metrics in prometheus textfile format")

	transformCmd := &cobra.Command{
		Use:   "transform",
		Short: "Map input records and split them into train/val/test artifacts",
		Example: `  gpt2-dataprep transform -i data/raw/reviews.jsonl -o data/processed/reviews --label-field label
  gpt2-dataprep transform -i s3://corpora/reviews.jsonl --fields text,label -f jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(transformFlags)
			if err != nil {
				return err
			}
			return RunTransform(cmd.Context(), cfg, storage.New(storageOptions(cfg)), cmd.OutOrStdout())
		},
	}
	transformCmd.Flags().AddFlagSet(transformFlags)
	rootCmd.AddCommand(transformCmd)

	var sel selection
	inspectFlags := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	inspectFlags.StringP("output", "o", "", "output base path of a transform run")
	inspectFlags.StringP("format", "f", "csv", "artifact format when no manifest exists")
	inspectFlags.String("label-field", "", "set when artifacts carry labels and no manifest exists")
	addSelectionFlags(inspectFlags, &sel)
	inspectFlags.IntVarP(&sel.samples, "samples", "n", 3, "canonical records to print per partition")

	inspectCmd := &cobra.Command{
		Use:     "inspect",
		Short:   "Load split artifacts as datasets and print counts and samples",
		Example: `  gpt2-dataprep inspect -o data/processed/reviews --test=false`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(inspectFlags)
			if err != nil {
				return err
			}
			return RunInspect(cmd.Context(), cfg, storage.New(storageOptions(cfg)), sel, cmd.OutOrStdout())
		},
	}
	inspectCmd.Flags().AddFlagSet(inspectFlags)
	rootCmd.AddCommand(inspectCmd)

	var msel selection
	measureFlags := pflag.NewFlagSet("measure", pflag.ContinueOnError)
	measureFlags.StringP("output", "o", "", "output base path of a transform run")
	measureFlags.StringP("format", "f", "csv", "artifact format when no manifest exists")
	measureFlags.String("label-field", "", "set when artifacts carry labels and no manifest exists")
	addSelectionFlags(measureFlags, &msel)
	measureFlags.IntVar(&msel.samples, "sample-records", 200, "records per partition sent for token counting")

	measureCmd := &cobra.Command{
		Use:     "measure",
		Short:   "Measure features and token counts per partition, appending JSONL records to <base>_measure.jsonl",
		Example: `  gpt2-dataprep measure -o data/processed/reviews`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(measureFlags)
			if err != nil {
				return err
			}
			return RunMeasure(cmd.Context(), cfg, storage.New(storageOptions(cfg)), msel, cmd.OutOrStdout())
		},
	}
	measureCmd.Flags().AddFlagSet(measureFlags)
	rootCmd.AddCommand(measureCmd)

	var getURL, getOut string
	getDataCmd := &cobra.Command{
		Use:     "get-data",
		Short:   "Copy a remote corpus (http(s):// or s3://) to a local file under data/raw",
		Example: `  gpt2-dataprep get-data --url https://example.com/reviews.jsonl`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(nil)
			if err != nil {
				return err
			}
			return RunGetData(cmd.Context(), storage.New(storageOptions(cfg)), getURL, getOut, cmd.OutOrStdout())
		},
	}
	getDataCmd.Flags().StringVar(&getURL, "url", "", "source location")
	getDataCmd.Flags().StringVar(&getOut, "out", "", "destination (default data/raw/<basename>)")
	_ = getDataCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(getDataCmd)

	return rootCmd
}

// load binds the root flags and the running command's flags to viper, reads
// the config file, and validates the result.
func (a *app) load(fs *pflag.FlagSet) (*config.Config, error) {
	if err := bindFlags(a.v, a.rootFlags); err != nil {
		return nil, err
	}
	if fs != nil {
		if err := bindFlags(a.v, fs); err != nil {
			return nil, err
		}
	}
	if a.cfgFile != "" {
		if err := config.LoadFile(a.v, a.cfgFile); err != nil {
			return nil, err
		}
	}
	return config.Load(a.v)
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Name == "config" {
			return
		}
		err = v.BindPFlag(flagKey(f.Name), f)
	})
	return err
}

// flagKey maps a flag name to its config key: --s3-path-style to
// s3.path_style, --label-field to label_field.
func flagKey(name string) string {
	if rest, ok := strings.CutPrefix(name, "s3-"); ok {
		return "s3." + strings.ReplaceAll(rest, "-", "_")
	}
	return strings.ReplaceAll(name, "-", "_")
}

func storageOptions(cfg *config.Config) storage.Options {
	return storage.Options{S3: cfg.S3}
}
