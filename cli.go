package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// Set with -ldflags at build time.
var (
	version   = "dev"
	gitCommit = "none"
)

var (
	flagMaxDimension int
	flagLanguages    string
	flagPdftoppm     string
	flagFont         string

	flagFormat  string
	flagProject string
	flagSlide   int
	flagOutput  string
)

var rootCmd = &cobra.Command{
	Use:   "slidemask [file]",
	Short: "Mask and re-letter slides in the terminal",
	Long: "slidemask opens a PDF or image as a deck of slides, lets you cover\n" +
		"regions with masks, add or OCR text, and export to PPTX, PDF or PNG.",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		config := loadConfig()
		applyFlagOverrides(config)

		closeLog, err := setupTUILogging()
		if err != nil {
			return err
		}
		defer closeLog()

		var source string
		if len(args) == 1 {
			source = args[0]
		}
		m, err := initialModel(config, source)
		if err != nil {
			return err
		}
		p := tea.NewProgram(
			m,
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(),
		)
		_, err = p.Run()
		return err
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export a file and its saved annotations without opening the editor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log.SetOutput(os.Stderr)
		config := loadConfig()
		applyFlagOverrides(config)
		return runExport(cmd.Context(), config, args[0])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "slidemask %s (%s) %s %s/%s\n",
			version, gitCommit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&flagMaxDimension, "max-dimension", 0, "downscale pages so neither side exceeds this many pixels")
	pf.StringVar(&flagLanguages, "lang", "", "OCR languages, e.g. jpn+eng")
	pf.StringVar(&flagPdftoppm, "pdftoppm", "", "path to the pdftoppm binary")
	pf.StringVar(&flagFont, "font", "", "TrueType font for slide text (needed for CJK text)")

	ef := exportCmd.Flags()
	ef.StringVarP(&flagFormat, "format", "f", "", "pptx, pdf or png (default: from the output extension)")
	ef.StringVarP(&flagProject, "project", "p", "", "annotation project to apply (default: <file>.slidemask.json if present)")
	ef.IntVar(&flagSlide, "slide", 0, "export only this slide (1-based)")
	ef.StringVarP(&flagOutput, "output", "o", "", "output file")
	exportCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func applyFlagOverrides(c *Config) {
	if flagMaxDimension > 0 {
		c.MaxDimension = flagMaxDimension
	}
	if langs := splitLanguages(flagLanguages); len(langs) > 0 {
		c.OCRLanguages = langs
	}
	if flagPdftoppm != "" {
		c.PdftoppmPath = flagPdftoppm
	}
	if flagFont != "" {
		c.FontPath = flagFont
	}
}

// setupTUILogging keeps log output off the alternate screen. Setting
// SLIDEMASK_DEBUG sends it to that file instead.
func setupTUILogging() (func(), error) {
	path := os.Getenv("SLIDEMASK_DEBUG")
	if path == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := tea.LogToFile(path, "slidemask")
	if err != nil {
		return nil, fmt.Errorf("failed to open debug log: %w", err)
	}
	return func() { f.Close() }, nil
}

func runExport(ctx context.Context, config *Config, source string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := exportFormatFor(flagFormat, flagOutput)
	if err != nil {
		return err
	}
	ttf, err := loadFontFile(config.FontPath)
	if err != nil {
		return err
	}

	pages, err := NewIngester(config).Load(ctx, source)
	if err != nil {
		return err
	}
	doc := NewDocument(pages)

	projPath := flagProject
	if projPath == "" {
		if _, err := os.Stat(projectPath(source)); err == nil {
			projPath = projectPath(source)
		}
	}
	if projPath != "" {
		p, err := LoadProject(projPath)
		if err != nil {
			return err
		}
		p.Apply(doc)
		log.Printf("applied %s", projPath)
	}

	slides := doc.Slides()
	if flagSlide != 0 {
		s := doc.Slide(flagSlide - 1)
		if s == nil {
			return fmt.Errorf("slide %d out of range (1-%d)", flagSlide, doc.Len())
		}
		slides = []*Slide{s}
	}

	out := config.GetSavePath(flagOutput)
	if err := ExportSlides(ctx, slides, format, out, ExportOptions{FontScale: config.ExportFontScale, FontData: ttf}); err != nil {
		return err
	}
	log.Printf("exported %d slide(s) to %s", len(slides), out)
	return nil
}

// exportFormatFor prefers an explicit format and otherwise uses the output
// file's extension.
func exportFormatFor(format, output string) (ExportFormat, error) {
	if format != "" {
		return parseExportFormat(format)
	}
	ext := strings.ToLower(filepath.Ext(output))
	if ext == "" {
		return 0, fmt.Errorf("%w: cannot infer format from %q", errUnsupportedFormat, output)
	}
	return parseExportFormat(ext)
}
