// Command oocvec drives the vector space build pipeline: converting
// source embeddings into an out-of-core store, exporting a finalized
// store, and reducing association tables.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/oocvec"
	"github.com/hupe1980/oocvec/assoc"
	"github.com/hupe1980/oocvec/dense"
	"github.com/hupe1980/oocvec/formats"
	"github.com/klauspost/compress/gzip"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "oocvec",
	Short: "Build and export out-of-core semantic vector spaces",
}

var buildCmd = &cobra.Command{
	Use:   "build INPUT STOREDIR",
	Short: "Convert source embeddings into a finalized vector store",
	Long: `Build streams (label, vector) rows from INPUT into a new store at
STOREDIR, combines repeated labels by weighted average, and runs the
two normalization passes (column L1, then row L2). INPUT may be
gzip-compressed (.gz).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		lang, _ := cmd.Flags().GetString("lang")
		rows, _ := cmd.Flags().GetInt("rows")
		requirePrefix, _ := cmd.Flags().GetBool("require-prefix")

		in, err := formats.OpenMaybeGzip(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		st, err := oocvec.Open(args[1], oocvec.WithLogger(newLogger()))
		if err != nil {
			return err
		}
		if st.Phase() != oocvec.PhaseWritable {
			return fmt.Errorf("store at %s is already finalized", args[1])
		}

		if err := formats.Convert(st, in, formats.ConvertOptions{
			Format:        formats.Format(format),
			Language:      lang,
			MaxRows:       rows,
			RequirePrefix: requirePrefix,
		}); err != nil {
			return err
		}

		fmt.Printf("built store at %s: %d labels, %d dimensions\n", args[1], st.Len(), st.Dim())
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export STOREDIR OUTPUT",
	Short: "Export a finalized store as fastText-style text",
	Long: `Export materializes the store's vectors and writes them in the
fastText text format. OUTPUT ending in .gz is gzip-compressed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, _ := cmd.Flags().GetString("lang")

		st, err := oocvec.Open(args[0], oocvec.WithLogger(newLogger()))
		if err != nil {
			return err
		}
		m, err := dense.FromStore(st)
		if err != nil {
			return err
		}

		out, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer out.Close()

		if strings.HasSuffix(args[1], ".gz") {
			zw := gzip.NewWriter(out)
			if err := dense.ExportText(zw, m, lang); err != nil {
				zw.Close()
				return err
			}
			return zw.Close()
		}
		return dense.ExportText(out, m, lang)
	},
}

var reduceAssocCmd = &cobra.Command{
	Use:   "reduce-assoc INPUT OUTPUT",
	Short: "Remove uncommon and unlikely-useful associations from a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cutoff, _ := cmd.Flags().GetInt("cutoff")
		enCutoff, _ := cmd.Flags().GetInt("en-cutoff")
		return assoc.Reduce(args[0], args[1], assoc.Options{
			Cutoff:   cutoff,
			EnCutoff: enCutoff,
		})
	},
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	buildCmd.Flags().String("format", string(formats.FormatFastText), "input format: fasttext, glove or word2vec")
	buildCmd.Flags().String("lang", "en", "two-letter language code")
	buildCmd.Flags().Int("rows", 0, "maximum rows to accept (0 = no limit)")
	buildCmd.Flags().Bool("require-prefix", false, "drop rows without the /c/<lang>/ prefix instead of adding it")

	exportCmd.Flags().String("lang", "", "export only this language, stripping its prefix")

	reduceAssocCmd.Flags().Int("cutoff", assoc.DefaultCutoff, "minimum occurrences for non-English concepts")
	reduceAssocCmd.Flags().Int("en-cutoff", assoc.DefaultCutoff, "minimum occurrences for English concepts")

	rootCmd.AddCommand(buildCmd, exportCmd, reduceAssocCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
